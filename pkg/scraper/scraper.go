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

// Package scraper defines the provider-neutral types and interfaces used by
// the scraping pipeline. Provider implementations live in subpackages.
package scraper

import (
	"context"
)

// Provider is the upstream metadata/media service contract.
type Provider interface {
	// Match looks up a single game record by ROM identity (hash, name, size).
	Match(ctx context.Context, query Query) (*Record, error)

	// Search returns candidate records for a free-text query.
	Search(ctx context.Context, platformCode, query string, maxResults int) ([]Record, error)

	// Authenticate validates credentials and returns server-reported caps.
	Authenticate(ctx context.Context) (*UserInfo, error)

	// Info returns provider metadata.
	Info() ProviderInfo
}

// Query contains the identity fields for a match lookup. At least one hash
// or the name+size pair must be set.
type Query struct {
	PlatformCode string
	FileName     string
	CRC32        string
	MD5          string
	SHA1         string
	FileSize     int64
}

// Record is one game's worth of provider data, normalized at the client
// boundary: ratings are scaled to [0,1] and text is entity-decoded.
type Record struct {
	Names        map[string]string
	Descriptions map[string]string
	ReleaseDates map[string]string
	ID           string
	Name         string
	Developer    string
	Publisher    string
	Players      string
	Genres       []string
	Media        []MediaItem
	RomSize      int64
	Rating       float64
	HasRating    bool
}

// MediaItem is one downloadable asset attached to a Record.
type MediaItem struct {
	Type     string
	Region   string
	Language string
	URL      string
	Format   string
	Hash     string
	Size     int64
}

// UserInfo carries the caps the provider reports for the authenticated user.
// Zero values mean the server did not report that cap.
type UserInfo struct {
	ID                string
	Level             int
	MaxThreads        int
	RequestsPerMinute int
	RequestsToday     int
	MaxRequestsPerDay int
	FailedToday       int
	MaxFailedPerDay   int
}

// ProviderInfo describes a provider implementation.
type ProviderInfo struct {
	Name         string
	Website      string
	RequiresAuth bool
}

// MediaByType groups a record's media items by provider type, preserving
// response order within each type.
func (r *Record) MediaByType() map[string][]MediaItem {
	grouped := make(map[string][]MediaItem)
	for _, item := range r.Media {
		if item.Type == "" {
			continue
		}
		grouped[item.Type] = append(grouped[item.Type], item)
	}
	return grouped
}

// RegionNames returns the record's names in a stable preference order: the
// given regions first, then remaining response regions, with the display
// name as a final fallback.
func (r *Record) RegionNames(preferred []string) []string {
	seen := make(map[string]bool, len(r.Names))
	names := make([]string, 0, len(r.Names)+1)
	for _, region := range preferred {
		if name, ok := r.Names[region]; ok && !seen[region] {
			seen[region] = true
			names = append(names, name)
		}
	}
	for region, name := range r.Names {
		if !seen[region] {
			seen[region] = true
			names = append(names, name)
		}
	}
	if r.Name != "" {
		found := false
		for _, name := range names {
			if name == r.Name {
				found = true
				break
			}
		}
		if !found {
			names = append(names, r.Name)
		}
	}
	return names
}
