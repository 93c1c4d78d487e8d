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
	"math"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"

	"github.com/curateur-project/curateur/pkg/scraper"
)

// Component weights. They sum to 1 so scores stay in [0,1].
const (
	weightFilename = 0.40
	weightRegion   = 0.30
	weightSize     = 0.15
	weightMedia    = 0.10
	weightRating   = 0.05
)

// Rom is the subset of an inventory entity the scorer needs.
type Rom struct {
	Basename string
	Regions  []string
	Size     int64
}

// Scorer ranks provider candidates for a ROM.
type Scorer struct {
	// PreferredRegions is the configured region preference order.
	PreferredRegions []string
}

// Score rates how well record matches rom, in [0,1].
func (s *Scorer) Score(rom Rom, record *scraper.Record) float64 {
	score := weightFilename*s.scoreFilename(rom, record) +
		weightRegion*scoreRegion(rom, record) +
		weightSize*scoreSize(rom.Size, record.RomSize) +
		weightMedia*scoreMedia(record) +
		weightRating*scoreRating(record)
	return math.Min(score, 1)
}

// Best returns the highest-scoring candidate and its score. Ties keep the
// earlier candidate, preserving provider result order.
func (s *Scorer) Best(rom Rom, records []scraper.Record) (*scraper.Record, float64) {
	var best *scraper.Record
	bestScore := -1.0
	for i := range records {
		score := s.Score(rom, &records[i])
		if score > bestScore {
			best = &records[i]
			bestScore = score
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestScore
}

// scoreFilename is the best string similarity between the normalized ROM
// name and any of the record's regional names.
func (s *Scorer) scoreFilename(rom Rom, record *scraper.Record) float64 {
	romName := Normalize(rom.Basename)
	if romName == "" {
		return 0
	}

	best := 0.0
	for _, name := range record.RegionNames(s.PreferredRegions) {
		candidate := Normalize(name)
		if candidate == "" {
			continue
		}
		if candidate == romName {
			return 1
		}
		sim, err := edlib.StringsSimilarity(romName, candidate, edlib.Levenshtein)
		if err != nil {
			log.Debug().Err(err).Str("name", name).Msg("similarity computation failed")
			continue
		}
		if float64(sim) > best {
			best = float64(sim)
		}
	}
	return best
}

// scoreRegion rewards records that cover the ROM's tagged regions, weighted
// by the tag's position in the filename.
func scoreRegion(rom Rom, record *scraper.Record) float64 {
	if len(rom.Regions) == 0 {
		return 0.5
	}
	for i, region := range rom.Regions {
		if _, ok := record.Names[region]; ok {
			return math.Max(1.0-0.2*float64(i), 0.2)
		}
		if _, ok := record.ReleaseDates[region]; ok {
			return math.Max(1.0-0.2*float64(i), 0.2)
		}
	}
	return 0.1
}

// scoreSize compares file sizes by relative difference against the larger
// of the two, so the ratio is symmetric and stays in [0,1). Unknown sizes
// are neutral.
func scoreSize(romSize, recordSize int64) float64 {
	if romSize <= 0 || recordSize <= 0 {
		return 0.5
	}
	if romSize == recordSize {
		return 1
	}
	larger := math.Max(float64(romSize), float64(recordSize))
	diff := math.Abs(float64(romSize)-float64(recordSize)) / larger
	switch {
	case diff < 0.05:
		return 0.9
	case diff < 0.10:
		return 0.7
	case diff < 0.20:
		return 0.5
	default:
		return 0.2
	}
}

// scoreMedia rewards richer records; three distinct media types is treated
// as complete.
func scoreMedia(record *scraper.Record) float64 {
	types := make(map[string]bool)
	for _, item := range record.Media {
		if item.Type != "" {
			types[item.Type] = true
		}
	}
	return math.Min(float64(len(types))/3, 1)
}

func scoreRating(record *scraper.Record) float64 {
	if !record.HasRating {
		return 0.5
	}
	return record.Rating
}
