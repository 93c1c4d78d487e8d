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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/curateur-project/curateur/pkg/helpers"
)

// CleanupDir is where orphaned media is parked instead of deleted.
const CleanupDir = "CLEANUP"

// PresenceReport summarizes how many catalog entries still have their ROM
// on disk. Orphans holds the catalog paths of entries whose ROM is gone.
type PresenceReport struct {
	Entries int
	Present int
	Orphans []string
}

// Ratio is the fraction of catalog entries whose ROM still exists. An
// empty catalog is fully intact.
func (r PresenceReport) Ratio() float64 {
	if r.Entries == 0 {
		return 1
	}
	return float64(r.Present) / float64(r.Entries)
}

// OK reports whether the presence ratio meets the threshold.
func (r PresenceReport) OK(threshold float64) bool {
	return r.Ratio() >= threshold
}

// CheckPresence compares the catalog's entries against the ROM paths the
// inventory scan found. Paths match after stripping a leading "./".
func CheckPresence(doc *Document, romPaths map[string]bool) PresenceReport {
	report := PresenceReport{Entries: len(doc.Games)}
	for i := range doc.Games {
		path := strings.TrimPrefix(doc.Games[i].Path, "./")
		if romPaths[path] {
			report.Present++
		} else {
			report.Orphans = append(report.Orphans, doc.Games[i].Path)
		}
	}
	return report
}

// RemoveEntries drops the entries with the given catalog paths and returns
// their media references, resolved against baseDir when relative. The refs
// are what a cleanup pass moves to the CLEANUP tree.
func (d *Document) RemoveEntries(paths []string, baseDir string) []string {
	drop := make(map[string]bool, len(paths))
	for _, path := range paths {
		drop[strings.TrimPrefix(path, "./")] = true
	}

	var refs []string
	kept := d.Games[:0]
	for i := range d.Games {
		if !drop[strings.TrimPrefix(d.Games[i].Path, "./")] {
			kept = append(kept, d.Games[i])
			continue
		}
		for _, ref := range d.Games[i].MediaRefs() {
			if !filepath.IsAbs(ref) {
				ref = filepath.Join(baseDir, ref)
			}
			refs = append(refs, filepath.Clean(ref))
		}
	}
	d.Games = kept
	return refs
}

// MoveOrphans parks orphaned media files under
// <mediaRoot>/CLEANUP/<platform>/<type>/, preserving the type directory
// from each orphan's original location. Nothing is ever deleted.
func MoveOrphans(fs afero.Fs, orphans []string, mediaRoot, platform string) (int, error) {
	moved := 0
	for _, orphan := range orphans {
		typeDir := filepath.Base(filepath.Dir(orphan))
		dest := filepath.Join(mediaRoot, CleanupDir, platform, typeDir, filepath.Base(orphan))
		if err := helpers.MoveFile(fs, orphan, dest); err != nil {
			return moved, fmt.Errorf("error moving orphan %s: %w", orphan, err)
		}
		log.Info().Str("from", orphan).Str("to", dest).Msg("moved orphaned media")
		moved++
	}
	return moved, nil
}
