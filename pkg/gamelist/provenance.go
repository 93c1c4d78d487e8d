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
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Provenance records where one entry's data came from, keyed by ROM
// basename in the sidecar file.
type Provenance struct {
	ScrapedAt   time.Time         `json:"scraped_at"`
	Source      string            `json:"source"`
	RomHash     string            `json:"rom_hash,omitempty"`
	MediaHashes map[string]string `json:"media_hashes,omitempty"`
	RomSize     int64             `json:"rom_size,omitempty"`
	MatchScore  float64           `json:"match_score,omitempty"`
}

// ProvenancePath derives the sidecar path for a catalog file.
func ProvenancePath(catalogPath string) string {
	ext := filepath.Ext(catalogPath)
	return strings.TrimSuffix(catalogPath, ext) + ".provenance.json"
}

// LoadProvenance reads the sidecar next to a catalog. Missing or corrupt
// sidecars yield an empty map since provenance is advisory.
func LoadProvenance(fs afero.Fs, path string) map[string]Provenance {
	result := make(map[string]Provenance)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return result
	}
	if err := json.Unmarshal(data, &result); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("discarding corrupt provenance sidecar")
		return make(map[string]Provenance)
	}
	return result
}

// SaveProvenance writes the sidecar via temp file and rename.
func SaveProvenance(fs afero.Fs, path string, entries map[string]Provenance) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding provenance: %w", err)
	}
	tempPath := path + ".tmp"
	if err := afero.WriteFile(fs, tempPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing provenance: %w", err)
	}
	if err := fs.Rename(tempPath, path); err != nil {
		return fmt.Errorf("error replacing provenance: %w", err)
	}
	return nil
}
