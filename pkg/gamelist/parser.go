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

package gamelist

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Parse reads the catalog at path. A missing file yields an empty
// document. Entries without a path element are skipped with a warning
// rather than failing the whole file.
func Parse(fs afero.Fs, path string) (*Document, error) {
	file, err := fs.Open(path)
	if err != nil {
		return &Document{}, nil //nolint:nilerr // missing catalog is an empty catalog
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("error closing catalog file")
		}
	}()
	return parse(file, path)
}

func parse(r io.Reader, path string) (*Document, error) {
	decoder := xml.NewDecoder(r)
	doc := &Document{}
	inRoot := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing catalog %s: %w", path, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !inRoot {
			if start.Name.Local != "gameList" {
				return nil, fmt.Errorf("unexpected root element %q in %s", start.Name.Local, path)
			}
			inRoot = true
			continue
		}

		switch start.Name.Local {
		case "provider":
			provider, err := parseProvider(decoder, start)
			if err != nil {
				return nil, fmt.Errorf("error parsing provider block in %s: %w", path, err)
			}
			doc.Provider = provider
		case "game":
			entry, err := parseGame(decoder, start)
			if err != nil {
				log.Warn().Err(err).Str("catalog", path).Msg("skipping malformed game entry")
				if skipErr := decoder.Skip(); skipErr != nil {
					// stream is unreadable past this point, keep what we have
					log.Warn().Err(skipErr).Str("catalog", path).
						Msg("catalog unreadable after malformed entry")
					return doc, nil
				}
				continue
			}
			if entry.Path == "" {
				log.Warn().Str("catalog", path).Str("name", entry.Name).
					Msg("skipping game entry without a path")
				continue
			}
			doc.Games = append(doc.Games, *entry)
		default:
			if err := decoder.Skip(); err != nil {
				return nil, fmt.Errorf("error parsing catalog %s: %w", path, err)
			}
		}
	}
	return doc, nil
}

func parseProvider(decoder *xml.Decoder, start xml.StartElement) (*Provider, error) {
	var raw struct {
		System   string `xml:"System"`
		Software string `xml:"software"`
		Database string `xml:"database"`
		Web      string `xml:"web"`
	}
	if err := decoder.DecodeElement(&raw, &start); err != nil {
		return nil, err
	}
	return &Provider{
		System:   raw.System,
		Software: raw.Software,
		Database: raw.Database,
		Web:      raw.Web,
	}, nil
}

func parseGame(decoder *xml.Decoder, start xml.StartElement) (*Entry, error) {
	entry := &Entry{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			entry.ID = attr.Value
		case "source":
			entry.Source = attr.Value
		}
	}

	scraped := entry.scrapedFieldPtrs()
	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return entry, nil
			}
		case xml.StartElement:
			tag := t.Name.Local
			if tag == "path" {
				value, err := decodeText(decoder, &t)
				if err != nil {
					return nil, err
				}
				entry.Path = value
				continue
			}
			if ptr, ok := scraped[tag]; ok {
				value, err := decodeText(decoder, &t)
				if err != nil {
					return nil, err
				}
				*ptr = value
				continue
			}
			if isUserTag(tag) {
				value, err := decodeText(decoder, &t)
				if err != nil {
					return nil, err
				}
				entry.setUserField(tag, value)
				continue
			}
			attrs := append([]xml.Attr(nil), t.Attr...)
			var raw struct {
				Inner string `xml:",innerxml"`
			}
			if err := decoder.DecodeElement(&raw, &t); err != nil {
				return nil, err
			}
			entry.Extras = append(entry.Extras, Extra{Tag: tag, Attrs: attrs, Inner: raw.Inner})
		}
	}
}

func decodeText(decoder *xml.Decoder, start *xml.StartElement) (string, error) {
	var value string
	if err := decoder.DecodeElement(&value, start); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func isUserTag(tag string) bool {
	switch tag {
	case "favorite", "hidden", "kidgame", "playcount", "lastplayed":
		return true
	}
	return false
}

func (e *Entry) setUserField(tag, value string) {
	switch tag {
	case "favorite":
		e.Favorite = value == "true"
	case "hidden":
		e.Hidden = value == "true"
	case "kidgame":
		e.KidGame = value == "true"
	case "playcount":
		e.PlayCount = value
	case "lastplayed":
		e.LastPlayed = value
	}
}
