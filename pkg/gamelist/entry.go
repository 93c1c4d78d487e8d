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

// Package gamelist reads, merges and writes EmulationStation-style game
// catalogs without losing fields it does not understand.
package gamelist

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Software and Database identify this tool in the provider block.
const (
	Software = "Curateur"
	Database = "ScreenScraper.fr"
	Web      = "https://www.screenscraper.fr"
)

// Provider is the catalog-level block recording where the data came from.
type Provider struct {
	System   string
	Software string
	Database string
	Web      string
}

// Extra is an element the parser did not recognize, kept verbatim so a
// rewrite never drops another tool's data. Attributes survive alongside
// the inner content.
type Extra struct {
	Tag   string
	Attrs []xml.Attr
	Inner string
}

// Entry is one game in the catalog. Scraped fields come from the provider;
// user fields belong to the player and are never overwritten by a scrape.
type Entry struct {
	ID     string
	Source string
	Path   string

	// scraped
	Name        string
	Desc        string
	Rating      string
	ReleaseDate string
	Developer   string
	Publisher   string
	Genre       string
	Players     string
	Image       string
	Thumbnail   string
	Marquee     string
	Video       string

	// user
	Favorite   bool
	Hidden     bool
	KidGame    bool
	PlayCount  string
	LastPlayed string

	Extras []Extra
}

// Document is a parsed catalog.
type Document struct {
	Provider *Provider
	Games    []Entry
}

// Find returns the entry whose path matches, or nil. Paths are compared
// after stripping a leading "./".
func (d *Document) Find(path string) *Entry {
	want := strings.TrimPrefix(path, "./")
	for i := range d.Games {
		if strings.TrimPrefix(d.Games[i].Path, "./") == want {
			return &d.Games[i]
		}
	}
	return nil
}

// Upsert replaces the entry with the same path or appends a new one.
// It reports whether the entry was new.
func (d *Document) Upsert(entry Entry) bool {
	if existing := d.Find(entry.Path); existing != nil {
		*existing = entry
		return false
	}
	d.Games = append(d.Games, entry)
	return true
}

// scrapedFieldPtrs exposes the scraped fields by tag name for the merge
// logic. Iteration must use sorted keys for deterministic reports.
func (e *Entry) scrapedFieldPtrs() map[string]*string {
	return map[string]*string{
		"name":        &e.Name,
		"desc":        &e.Desc,
		"rating":      &e.Rating,
		"releasedate": &e.ReleaseDate,
		"developer":   &e.Developer,
		"publisher":   &e.Publisher,
		"genre":       &e.Genre,
		"players":     &e.Players,
		"image":       &e.Image,
		"thumbnail":   &e.Thumbnail,
		"marquee":     &e.Marquee,
		"video":       &e.Video,
	}
}

// HasUserData reports whether any user field is set.
func (e *Entry) HasUserData() bool {
	return e.Favorite || e.Hidden || e.KidGame || e.PlayCount != "" || e.LastPlayed != ""
}

// MediaRefs returns the entry's media paths that are set.
func (e *Entry) MediaRefs() []string {
	refs := make([]string, 0, 4)
	for _, ref := range []string{e.Image, e.Thumbnail, e.Marquee, e.Video} {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// FormatRating renders a [0,1] rating without trailing zeros, so 0.75
// stays "0.75" and 1 becomes "1".
func FormatRating(rating float64) string {
	formatted := strconv.FormatFloat(rating, 'f', 6, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimSuffix(formatted, ".")
	return formatted
}

// FormatReleaseDate renders an ISO date (YYYY-MM-DD, or a bare year) in
// the catalog's YYYYMMDDT000000 form. Unparseable input returns empty.
func FormatReleaseDate(isoDate string) string {
	isoDate = strings.TrimSpace(isoDate)
	if isoDate == "" {
		return ""
	}
	parts := strings.SplitN(isoDate, "-", 3)
	year := parts[0]
	if len(year) != 4 {
		return ""
	}
	if _, err := strconv.Atoi(year); err != nil {
		return ""
	}
	month, day := "01", "01"
	if len(parts) > 1 && len(parts[1]) == 2 {
		month = parts[1]
	}
	if len(parts) > 2 && len(parts[2]) >= 2 {
		day = parts[2][:2]
	}
	return fmt.Sprintf("%s%s%sT000000", year, month, day)
}

// JoinGenres renders a genre list in the catalog's hyphen-joined form.
func JoinGenres(genres []string) string {
	return strings.Join(genres, " - ")
}
