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

package scanner

import (
	"regexp"
	"strings"
	"unicode"
)

// Region codes recognized in filenames, keyed by canonical code, with the
// filename indicators that map to them (No-Intro style naming).
var regionIndicators = map[string][]string{
	"us":  {"usa", "us", "u"},
	"eu":  {"europe", "eu", "e"},
	"jp":  {"japan", "jp", "j"},
	"wor": {"world", "wor"},
	"fr":  {"france", "fr"},
	"de":  {"germany", "de"},
	"es":  {"spain", "es"},
	"it":  {"italy", "it"},
	"nl":  {"netherlands", "nl"},
	"pt":  {"portugal", "pt"},
	"br":  {"brazil", "br"},
	"au":  {"australia", "au"},
	"kr":  {"korea", "kr"},
	"cn":  {"china", "cn"},
	"tw":  {"taiwan", "tw"},
}

var languageCodes = map[string]bool{
	"en": true, "fr": true, "de": true, "es": true, "it": true,
	"nl": true, "pt": true, "ja": true, "ko": true, "zh": true,
}

var regionLookup = buildRegionLookup()

func buildRegionLookup() map[string]string {
	lookup := make(map[string]string)
	for code, indicators := range regionIndicators {
		for _, ind := range indicators {
			lookup[ind] = code
		}
	}
	return lookup
}

var parenGroupRe = regexp.MustCompile(`\(([^)]+)\)`)

// ParseTags extracts declared regions and languages from a display basename.
// Tokens come from comma-separated parenthesized groups, e.g.
// "Title (USA) (En,Fr,De)". Unknown tokens are ignored; order is preserved.
//
// Language tokens in No-Intro names are title case ("En", "Fr") while region
// indicators are upper case or full words, which disambiguates codes like
// "fr" that exist in both sets.
func ParseTags(basename string) (regions, languages []string) {
	seenRegion := make(map[string]bool)
	seenLang := make(map[string]bool)

	for _, group := range parenGroupRe.FindAllStringSubmatch(basename, -1) {
		for _, token := range strings.Split(group[1], ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			lower := strings.ToLower(token)

			if isTitleCase(token) && languageCodes[lower] {
				if !seenLang[lower] {
					seenLang[lower] = true
					languages = append(languages, lower)
				}
				continue
			}

			if code, ok := regionLookup[lower]; ok {
				if !seenRegion[code] {
					seenRegion[code] = true
					regions = append(regions, code)
				}
				continue
			}

			if languageCodes[lower] && !seenLang[lower] {
				seenLang[lower] = true
				languages = append(languages, lower)
			}
		}
	}

	return regions, languages
}

func isTitleCase(s string) bool {
	if len(s) < 2 {
		return false
	}
	runes := []rune(s)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsLetter(r) && !unicode.IsLower(r) {
			return false
		}
	}
	return true
}
