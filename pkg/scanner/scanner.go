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

// Package scanner builds a platform's ROM inventory. Each addressable game
// becomes one Entity: a plain file, an .m3u playlist, or a disc folder
// (a directory named like a file that wraps a single disc image).
package scanner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/curateur-project/curateur/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Kind classifies how an Entity is backed on disk.
type Kind int

const (
	KindSingle Kind = iota
	KindPlaylist
	KindDiscFolder
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindPlaylist:
		return "playlist"
	case KindDiscFolder:
		return "disc_folder"
	default:
		return "unknown"
	}
}

// Entity is one addressable game found during a scan. Size and Hash are
// filled in later by the identity phase.
type Entity struct {
	Basename    string
	Path        string
	PrimaryFile string
	Hash        string
	Regions     []string
	Languages   []string
	AuxFiles    []string
	Size        int64
	Kind        Kind
}

// Conflict reports an entity (or pair) dropped during the scan.
type Conflict struct {
	Basename string
	Reason   string
	Paths    []string
}

// Result is the outcome of scanning one platform directory.
type Result struct {
	Entities  []Entity
	Conflicts []Conflict
}

// Scan enumerates the top level of romDir and classifies every entry whose
// extension is in the accepted set. Dot-prefixed entries are skipped.
func Scan(fs afero.Fs, romDir string, extensions []string) (*Result, error) {
	entries, err := afero.ReadDir(fs, romDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ROM directory: %w", err)
	}

	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	result := &Result{}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(romDir, name)
		ext := strings.ToLower(filepath.Ext(name))

		switch {
		case entry.IsDir():
			if !extSet[ext] {
				continue
			}
			ent, ok := scanDiscFolder(fs, fullPath, name)
			if !ok {
				result.Conflicts = append(result.Conflicts, Conflict{
					Basename: name,
					Reason:   "disc folder has no matching inner file",
					Paths:    []string{fullPath},
				})
				continue
			}
			result.Entities = append(result.Entities, ent)

		case ext == ".m3u" && extSet[ext]:
			ent, err := scanPlaylist(fs, fullPath, name)
			if err != nil {
				log.Warn().Err(err).Str("playlist", name).Msg("dropping broken playlist")
				result.Conflicts = append(result.Conflicts, Conflict{
					Basename: helpers.Stem(name),
					Reason:   err.Error(),
					Paths:    []string{fullPath},
				})
				continue
			}
			result.Entities = append(result.Entities, ent)

		case extSet[ext]:
			basename := helpers.Stem(name)
			regions, languages := ParseTags(basename)
			result.Entities = append(result.Entities, Entity{
				Kind:        KindSingle,
				Basename:    basename,
				Path:        fullPath,
				PrimaryFile: fullPath,
				Regions:     regions,
				Languages:   languages,
			})
		}
	}

	result.resolveConflicts()

	log.Debug().
		Int("entities", len(result.Entities)).
		Int("conflicts", len(result.Conflicts)).
		Str("dir", romDir).
		Msg("scan complete")

	return result, nil
}

// scanDiscFolder accepts a directory whose name carries a ROM extension and
// which contains a file named exactly like the directory.
func scanDiscFolder(fs afero.Fs, dirPath, dirName string) (Entity, bool) {
	inner := filepath.Join(dirPath, dirName)
	if !helpers.FileExists(fs, inner) {
		return Entity{}, false
	}

	var aux []string
	if entries, err := afero.ReadDir(fs, dirPath); err == nil {
		for _, e := range entries {
			if e.IsDir() || e.Name() == dirName || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			aux = append(aux, filepath.Join(dirPath, e.Name()))
		}
	}

	regions, languages := ParseTags(dirName)
	return Entity{
		Kind:        KindDiscFolder,
		Basename:    dirName, // extension kept by design
		Path:        dirPath,
		PrimaryFile: inner,
		AuxFiles:    aux,
		Regions:     regions,
		Languages:   languages,
	}, true
}

// resolveConflicts enforces basename uniqueness. A playlist/disc-folder pair
// sharing a stem drops both entities; any other duplicate keeps the first
// occurrence and reports the rest.
func (r *Result) resolveConflicts() {
	type slot struct {
		index int
		kind  Kind
	}

	// playlist stem vs disc folder stem collision check uses the stem
	// without extension since disc folders keep theirs
	stems := make(map[string][]slot)
	for i := range r.Entities {
		stem := r.Entities[i].Basename
		if r.Entities[i].Kind == KindDiscFolder {
			stem = helpers.Stem(stem)
		}
		stems[stem] = append(stems[stem], slot{index: i, kind: r.Entities[i].Kind})
	}

	dropped := make(map[int]bool)
	for stem, slots := range stems {
		if len(slots) < 2 {
			continue
		}
		hasPlaylist := false
		hasDiscFolder := false
		for _, s := range slots {
			if s.kind == KindPlaylist {
				hasPlaylist = true
			}
			if s.kind == KindDiscFolder {
				hasDiscFolder = true
			}
		}

		if hasPlaylist && hasDiscFolder {
			paths := make([]string, 0, len(slots))
			for _, s := range slots {
				dropped[s.index] = true
				paths = append(paths, r.Entities[s.index].Path)
			}
			r.Conflicts = append(r.Conflicts, Conflict{
				Basename: stem,
				Reason:   "playlist and disc folder collide on basename",
				Paths:    paths,
			})
			continue
		}

		// same-kind duplicates: keep first, report the rest
		for _, s := range slots[1:] {
			dropped[s.index] = true
			r.Conflicts = append(r.Conflicts, Conflict{
				Basename: stem,
				Reason:   "duplicate basename",
				Paths:    []string{r.Entities[s.index].Path},
			})
		}
	}

	if len(dropped) == 0 {
		return
	}

	kept := make([]Entity, 0, len(r.Entities)-len(dropped))
	for i := range r.Entities {
		if !dropped[i] {
			kept = append(kept, r.Entities[i])
		}
	}
	r.Entities = kept
}
