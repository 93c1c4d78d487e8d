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

// Package matcher scores provider candidates against a ROM and verifies
// that an accepted match is actually the same game.
package matcher

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`[(\[][^)\]]*[)\]]`)
	punctuationRegexp = regexp.MustCompile(`[^\p{L}\p{N} ]+`)
	spacesRegexp      = regexp.MustCompile(`\s+`)
)

// Normalize reduces a ROM filename or game title to a comparable form:
// release tags, extension, punctuation and a leading article are stripped,
// case is folded, and runs of whitespace collapse to one space.
func Normalize(name string) string {
	name = tagPattern.ReplaceAllString(name, " ")
	if ext := filepath.Ext(name); ext != "" && len(ext) <= 5 {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ToLower(name)
	name = punctuationRegexp.ReplaceAllString(name, " ")
	name = spacesRegexp.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "the ")
	return strings.TrimSpace(name)
}

// Words splits a normalized name into the words long enough to carry
// meaning for overlap checks.
func Words(normalized string) []string {
	fields := strings.Fields(normalized)
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) >= 3 {
			words = append(words, field)
		}
	}
	return words
}
