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
	"sort"
)

// Strategy selects how freshly scraped data combines with an existing
// catalog entry.
type Strategy int

const (
	// PreserveUserEdits replaces scraped fields with fresh values while
	// keeping user fields and unknown elements untouched.
	PreserveUserEdits Strategy = iota
	// RefreshMetadata replaces scraped fields like PreserveUserEdits and
	// additionally drops unknown elements, rebuilding the entry clean of
	// other tools' leftovers. User fields still survive.
	RefreshMetadata
	// ResetAll replaces the entry wholesale, dropping user fields and
	// unknown elements.
	ResetAll
)

func (s Strategy) String() string {
	switch s {
	case PreserveUserEdits:
		return "preserve_user_edits"
	case RefreshMetadata:
		return "refresh_metadata"
	case ResetAll:
		return "reset_all"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a config value into a merge strategy.
func ParseStrategy(value string) (Strategy, error) {
	switch value {
	case "preserve_user_edits":
		return PreserveUserEdits, nil
	case "refresh_metadata":
		return RefreshMetadata, nil
	case "reset_all":
		return ResetAll, nil
	default:
		return PreserveUserEdits, fmt.Errorf("unknown merge strategy: %q", value)
	}
}

// Change records what a merge did to one entry.
type Change struct {
	Path    string
	Updated []string
	New     bool
}

// Merge combines a freshly scraped entry with the existing one under the
// given strategy. A nil existing entry makes fresh a new entry. Under
// preserve and refresh, scraped fields take the fresh value, an empty
// fresh value never blanks a populated field, and user fields always
// survive.
func Merge(existing, fresh *Entry, strategy Strategy) (Entry, Change) {
	if existing == nil {
		return *fresh, Change{Path: fresh.Path, New: true}
	}

	if strategy == ResetAll {
		merged := *fresh
		merged.Path = existing.Path
		return merged, Change{Path: existing.Path, Updated: diffScraped(existing, &merged)}
	}

	merged := *existing
	if strategy == RefreshMetadata {
		merged.Extras = nil
	} else {
		merged.Extras = append([]Extra(nil), existing.Extras...)
	}
	if fresh.ID != "" {
		merged.ID = fresh.ID
	}
	if fresh.Source != "" {
		merged.Source = fresh.Source
	}

	var updated []string
	mergedFields := merged.scrapedFieldPtrs()
	freshFields := fresh.scrapedFieldPtrs()
	for _, tag := range sortedTags(mergedFields) {
		freshValue := *freshFields[tag]
		if freshValue == "" {
			continue
		}
		current := mergedFields[tag]
		if *current == freshValue {
			continue
		}
		*current = freshValue
		updated = append(updated, tag)
	}

	return merged, Change{Path: existing.Path, Updated: updated}
}

func diffScraped(before, after *Entry) []string {
	beforeFields := before.scrapedFieldPtrs()
	afterFields := after.scrapedFieldPtrs()
	var updated []string
	for _, tag := range sortedTags(beforeFields) {
		if *beforeFields[tag] != *afterFields[tag] {
			updated = append(updated, tag)
		}
	}
	return updated
}

func sortedTags(fields map[string]*string) []string {
	tags := make([]string, 0, len(fields))
	for tag := range fields {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
