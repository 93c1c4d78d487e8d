// Curateur
// Copyright (c) 2026 The Curateur Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Curateur.
//
// Curateur is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Curateur is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Curateur.  If not, see <http://www.gnu.org/licenses/>.

package screenscraper

import "encoding/xml"

// Wire models for the ScreenScraper XML API. Field names mirror the French
// element names of the upstream schema.

type dataXML struct {
	XMLName xml.Name   `xml:"Data"`
	Error   string     `xml:"erreur"`
	SSUser  *ssuserXML `xml:"ssuser"`
	Jeu     *jeuXML    `xml:"jeu"`
	Jeux    *jeuxXML   `xml:"jeux"`
}

type jeuxXML struct {
	Jeux []jeuXML `xml:"jeu"`
}

type jeuXML struct {
	ID          string        `xml:"id,attr"`
	Systeme     string        `xml:"systeme"`
	Developpeur string        `xml:"developpeur"`
	Editeur     string        `xml:"editeur"`
	Joueurs     string        `xml:"joueurs"`
	Note        string        `xml:"note"`
	Rom         *romXML       `xml:"rom"`
	Noms        []nomXML      `xml:"noms>nom"`
	Synopses    []synopsisXML `xml:"synopsis>synopsis"`
	Dates       []dateXML     `xml:"dates>date"`
	Genres      []genreXML    `xml:"genres>genre"`
	Medias      []mediaXML    `xml:"medias>media"`
}

type romXML struct {
	Size int64 `xml:"romsize"`
}

type nomXML struct {
	Region string `xml:"region,attr"`
	Text   string `xml:",chardata"`
}

type synopsisXML struct {
	Langue string `xml:"langue,attr"`
	Text   string `xml:",chardata"`
}

type dateXML struct {
	Region string `xml:"region,attr"`
	Text   string `xml:",chardata"`
}

type genreXML struct {
	ID         string `xml:"id,attr"`
	Principale string `xml:"principale,attr"`
	Langue     string `xml:"langue,attr"`
	Text       string `xml:",chardata"`
}

type mediaXML struct {
	Type   string `xml:"type,attr"`
	Region string `xml:"region,attr"`
	Format string `xml:"format,attr"`
	URL    string `xml:",chardata"`
}

type ssuserXML struct {
	ID                  string `xml:"id"`
	Niveau              int    `xml:"niveau"`
	MaxThreads          int    `xml:"maxthreads"`
	MaxRequestsPerMin   int    `xml:"maxrequestspermin"`
	RequestsToday       int    `xml:"requeststoday"`
	MaxRequestsPerDay   int    `xml:"maxrequestsperday"`
	RequestsKoToday     int    `xml:"requestskotoday"`
	MaxRequestsKoPerDay int    `xml:"maxrequestskoperday"`
}
