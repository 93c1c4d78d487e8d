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

package matcher

import (
	"fmt"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"

	"github.com/curateur-project/curateur/pkg/scraper"
)

// VerifyMode controls how strictly an accepted match must resemble the ROM
// name before its metadata is written.
type VerifyMode int

const (
	VerifyNormal VerifyMode = iota
	VerifyStrict
	VerifyLenient
	VerifyDisabled
)

func (m VerifyMode) String() string {
	switch m {
	case VerifyStrict:
		return "strict"
	case VerifyNormal:
		return "normal"
	case VerifyLenient:
		return "lenient"
	case VerifyDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Threshold is the minimum similarity the mode accepts.
func (m VerifyMode) Threshold() float64 {
	switch m {
	case VerifyStrict:
		return 0.8
	case VerifyNormal:
		return 0.6
	case VerifyLenient:
		return 0.4
	default:
		return 0
	}
}

// ParseVerifyMode parses a config value into a mode.
func ParseVerifyMode(value string) (VerifyMode, error) {
	switch value {
	case "strict":
		return VerifyStrict, nil
	case "normal":
		return VerifyNormal, nil
	case "lenient":
		return VerifyLenient, nil
	case "disabled":
		return VerifyDisabled, nil
	default:
		return VerifyNormal, fmt.Errorf("unknown name verification mode: %q", value)
	}
}

// Verify reports whether record plausibly names the same game as the ROM.
// A candidate passes on string similarity against any regional name, or on
// a word-overlap rescue when at least half of the ROM's significant words
// appear in one of the record's names.
func Verify(mode VerifyMode, romBasename string, record *scraper.Record, preferredRegions []string) bool {
	if mode == VerifyDisabled {
		return true
	}

	romName := Normalize(romBasename)
	if romName == "" {
		return false
	}
	threshold := mode.Threshold()

	bestSim := 0.0
	for _, name := range record.RegionNames(preferredRegions) {
		candidate := Normalize(name)
		if candidate == "" {
			continue
		}
		sim, err := edlib.StringsSimilarity(romName, candidate, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if float64(sim) >= threshold {
			return true
		}
		if float64(sim) > bestSim {
			bestSim = float64(sim)
		}
		if wordOverlap(romName, candidate) >= 0.5 {
			log.Debug().
				Str("rom", romBasename).
				Str("candidate", name).
				Msg("match accepted on word overlap")
			return true
		}
	}

	log.Debug().
		Str("rom", romBasename).
		Float64("best_similarity", bestSim).
		Float64("threshold", threshold).
		Msg("match rejected by name verification")
	return false
}

// wordOverlap is the fraction of the ROM's significant words found in the
// candidate name.
func wordOverlap(romName, candidate string) float64 {
	romWords := Words(romName)
	if len(romWords) == 0 {
		return 0
	}
	candidateWords := make(map[string]bool)
	for _, word := range Words(candidate) {
		candidateWords[word] = true
	}
	matched := 0
	for _, word := range romWords {
		if candidateWords[word] {
			matched++
		}
	}
	return float64(matched) / float64(len(romWords))
}
