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

package media

import "github.com/curateur-project/curateur/pkg/scraper"

// Select picks the asset to download from the candidates of one media
// type. Regions are tried in three tiers: regions tagged on the ROM that
// are also preferred (in preference order), then the remaining preferred
// regions, then leftover ROM regions. Regionless types and candidate sets
// with no regional match fall back to the first candidate.
func Select(items []scraper.MediaItem, romRegions, preferred []string) *scraper.MediaItem {
	if len(items) == 0 {
		return nil
	}
	if IsRegionless(items[0].Type) {
		return &items[0]
	}

	for _, region := range regionOrder(romRegions, preferred) {
		for i := range items {
			if items[i].Region == region {
				return &items[i]
			}
		}
	}
	return &items[0]
}

func regionOrder(romRegions, preferred []string) []string {
	romSet := make(map[string]bool, len(romRegions))
	for _, region := range romRegions {
		romSet[region] = true
	}

	order := make([]string, 0, len(romRegions)+len(preferred))
	seen := make(map[string]bool)
	push := func(region string) {
		if !seen[region] {
			seen[region] = true
			order = append(order, region)
		}
	}

	for _, region := range preferred {
		if romSet[region] {
			push(region)
		}
	}
	for _, region := range preferred {
		push(region)
	}
	for _, region := range romRegions {
		push(region)
	}
	return order
}
