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
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// BackupSuffix is appended to the previous catalog before an overwrite.
const BackupSuffix = ".bak"

// scrapedTagOrder fixes the element order inside a game entry so rewrites
// produce stable diffs.
var scrapedTagOrder = []string{
	"name", "desc", "rating", "releasedate", "developer", "publisher",
	"genre", "players", "image", "thumbnail", "marquee", "video",
}

// Write atomically replaces the catalog at path: the new content goes to a
// temp file which is synced and renamed over the target, and any previous
// catalog is copied aside first.
func Write(fs afero.Fs, path string, doc *Document) error {
	rendered := Render(doc)

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating catalog dir: %w", err)
	}

	if exists, _ := afero.Exists(fs, path); exists {
		previous, err := afero.ReadFile(fs, path)
		if err != nil {
			return fmt.Errorf("error reading catalog for backup: %w", err)
		}
		if err := afero.WriteFile(fs, path+BackupSuffix, previous, 0o644); err != nil {
			return fmt.Errorf("error writing catalog backup: %w", err)
		}
	}

	tempPath := path + ".tmp"
	file, err := fs.Create(tempPath)
	if err != nil {
		return fmt.Errorf("error creating temp catalog: %w", err)
	}
	if _, err := file.Write(rendered); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", tempPath).Msg("error closing temp catalog")
		}
		return fmt.Errorf("error writing temp catalog: %w", err)
	}
	if err := file.Sync(); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", tempPath).Msg("error closing temp catalog")
		}
		return fmt.Errorf("error syncing temp catalog: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("error closing temp catalog: %w", err)
	}

	if err := fs.Rename(tempPath, path); err != nil {
		return fmt.Errorf("error replacing catalog: %w", err)
	}
	return nil
}

// Render produces the catalog document as XML.
func Render(doc *Document) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<gameList>\n")

	if doc.Provider != nil {
		writeProvider(&buf, doc.Provider)
	}
	for i := range doc.Games {
		writeGame(&buf, &doc.Games[i])
	}

	buf.WriteString("</gameList>\n")
	return buf.Bytes()
}

func writeProvider(buf *bytes.Buffer, provider *Provider) {
	buf.WriteString("\t<provider>\n")
	writeField(buf, "System", provider.System)
	writeField(buf, "software", provider.Software)
	writeField(buf, "database", provider.Database)
	writeField(buf, "web", provider.Web)
	buf.WriteString("\t</provider>\n")
}

func writeGame(buf *bytes.Buffer, entry *Entry) {
	buf.WriteString("\t<game")
	if entry.ID != "" {
		fmt.Fprintf(buf, " id=%q", escape(entry.ID))
	}
	if entry.Source != "" {
		fmt.Fprintf(buf, " source=%q", escape(entry.Source))
	}
	buf.WriteString(">\n")

	writeField(buf, "path", entry.Path)
	scraped := entry.scrapedFieldPtrs()
	for _, tag := range scrapedTagOrder {
		if value := *scraped[tag]; value != "" {
			writeField(buf, tag, value)
		}
	}

	// user fields appear only when set
	if entry.Favorite {
		writeField(buf, "favorite", "true")
	}
	if entry.Hidden {
		writeField(buf, "hidden", "true")
	}
	if entry.KidGame {
		writeField(buf, "kidgame", "true")
	}
	if entry.PlayCount != "" {
		writeField(buf, "playcount", entry.PlayCount)
	}
	if entry.LastPlayed != "" {
		writeField(buf, "lastplayed", entry.LastPlayed)
	}

	// unknown elements come back out in the order they were read
	for _, extra := range entry.Extras {
		fmt.Fprintf(buf, "\t\t<%s", extra.Tag)
		for _, attr := range extra.Attrs {
			fmt.Fprintf(buf, " %s=%q", attr.Name.Local, escape(attr.Value))
		}
		fmt.Fprintf(buf, ">%s</%s>\n", extra.Inner, extra.Tag)
	}

	buf.WriteString("\t</game>\n")
}

func writeField(buf *bytes.Buffer, tag, value string) {
	fmt.Fprintf(buf, "\t\t<%s>%s</%s>\n", tag, escape(value), tag)
}

func escape(value string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(value)); err != nil {
		return ""
	}
	return buf.String()
}
