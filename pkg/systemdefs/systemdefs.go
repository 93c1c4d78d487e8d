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

// Package systemdefs reads the frontend's platform index (es_systems.xml)
// into system definitions. The index file is never written back.
package systemdefs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/curateur-project/curateur/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// System is one platform entry from the index.
type System struct {
	Name       string
	Fullname   string
	Path       string
	Platform   string
	Extensions []string
}

// SupportsM3U reports whether the system accepts playlist files.
func (s *System) SupportsM3U() bool {
	for _, ext := range s.Extensions {
		if ext == ".m3u" {
			return true
		}
	}
	return false
}

var romPathMacroRe = regexp.MustCompile(`(?i)%ROMPATH%[/\\]?`)

// ResolveRomPath substitutes the %ROMPATH% macro with the configured ROM
// root and expands a leading ~.
func (s *System) ResolveRomPath(romRoot string) string {
	path := s.Path
	if romPathMacroRe.MatchString(path) {
		path = romPathMacroRe.ReplaceAllString(path, romRoot+"/")
	}
	return filepath.Clean(helpers.ExpandHome(path))
}

type systemListXML struct {
	XMLName xml.Name    `xml:"systemList"`
	Systems []systemXML `xml:"system"`
}

type systemXML struct {
	Name       string `xml:"name"`
	Fullname   string `xml:"fullname"`
	Path       string `xml:"path"`
	Extension  string `xml:"extension"`
	PlatformID string `xml:"platform"`
}

// ParseSystems reads an es_systems.xml file. Systems missing required fields
// are skipped with a warning; an index yielding no systems is an error.
func ParseSystems(fs afero.Fs, path string) ([]System, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform index: %w", err)
	}

	var list systemListXML
	if err := xml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse platform index: %w", err)
	}

	systems := make([]System, 0, len(list.Systems))
	for i := range list.Systems {
		sys, err := convertSystem(&list.Systems[i])
		if err != nil {
			log.Warn().Err(err).Msg("skipping invalid system in platform index")
			continue
		}
		systems = append(systems, sys)
	}

	if len(systems) == 0 {
		return nil, errors.New("no valid systems found in platform index")
	}

	return systems, nil
}

func convertSystem(raw *systemXML) (System, error) {
	name := strings.TrimSpace(raw.Name)
	fullname := strings.TrimSpace(raw.Fullname)
	path := strings.TrimSpace(raw.Path)
	extStr := strings.TrimSpace(raw.Extension)
	platform := strings.TrimSpace(raw.PlatformID)

	if name == "" || fullname == "" || path == "" || extStr == "" || platform == "" {
		return System{}, fmt.Errorf(
			"system missing required fields (name: %q, platform: %q)", name, platform)
	}

	fields := strings.Fields(extStr)
	exts := make([]string, 0, len(fields))
	for _, ext := range fields {
		exts = append(exts, strings.ToLower(ext))
	}

	return System{
		Name:       name,
		Fullname:   fullname,
		Path:       path,
		Platform:   platform,
		Extensions: exts,
	}, nil
}

// FilterByName restricts systems to the given names. An empty selection
// returns everything; unknown names are an error.
func FilterByName(systems []System, names []string) ([]System, error) {
	if len(names) == 0 {
		return systems, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = true
	}

	filtered := make([]System, 0, len(names))
	found := make(map[string]bool, len(names))
	for _, sys := range systems {
		key := strings.ToLower(sys.Name)
		if wanted[key] {
			filtered = append(filtered, sys)
			found[key] = true
		}
	}

	var missing []string
	for n := range wanted {
		if !found[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("systems not found in platform index: %s",
			strings.Join(missing, ", "))
	}

	return filtered, nil
}
