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

// Package cache persists provider responses between runs so unchanged ROMs
// never cost an API request.
package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/curateur-project/curateur/pkg/helpers/syncutil"
	"github.com/curateur-project/curateur/pkg/scraper"
)

const (
	// FileName is the cache file kept under the catalog cache directory.
	FileName = "response_cache.json"

	// DefaultTTLDays is how long an entry stays fresh.
	DefaultTTLDays = 7
)

// Entry is one cached provider response plus the ROM identity it was
// fetched for. MediaHashes records the hash of each downloaded asset by
// media type, so later runs can detect upstream media changes.
type Entry struct {
	Timestamp   time.Time         `json:"timestamp"`
	Record      scraper.Record    `json:"response"`
	RomHash     string            `json:"rom_hash,omitempty"`
	MediaHashes map[string]string `json:"media_hashes,omitempty"`
	RomSize     int64             `json:"rom_size"`
	TTLDays     int               `json:"ttl_days"`
}

type cacheFile struct {
	Entries map[string]Entry `json:"entries"`
}

// Store is an in-memory cache backed by a JSON file. Writes go to a temp
// file first so a crash never corrupts the previous cache.
type Store struct {
	fs    afero.Fs
	clock clockwork.Clock
	path  string

	mu      syncutil.Mutex
	entries map[string]Entry
	hits    int
	misses  int
}

// Key derives the cache key for a ROM: its hash when one was computed,
// otherwise name plus size.
func Key(hash, basename string, size int64) string {
	if hash != "" {
		return hash
	}
	return fmt.Sprintf("%s:%d", basename, size)
}

// Open loads the cache at path. A missing or unreadable file yields an
// empty store, not an error, since the cache is always reconstructible.
func Open(fs afero.Fs, path string, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	store := &Store{
		fs:      fs,
		clock:   clock,
		path:    path,
		entries: make(map[string]Entry),
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return store
	}
	var parsed cacheFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("discarding corrupt metadata cache")
		return store
	}
	if parsed.Entries != nil {
		store.entries = parsed.Entries
	}
	return store
}

// Get returns the entry for key when it is fresh and the stored ROM size
// still matches. A stale or mismatched entry is evicted and counts as a
// miss.
func (s *Store) Get(key string, romSize int64) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false
	}

	ttlDays := entry.TTLDays
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	expired := s.clock.Now().After(entry.Timestamp.Add(time.Duration(ttlDays) * 24 * time.Hour))
	sizeChanged := romSize > 0 && entry.RomSize > 0 && romSize != entry.RomSize
	if expired || sizeChanged {
		delete(s.entries, key)
		s.misses++
		return nil, false
	}

	s.hits++
	copied := entry
	return &copied, true
}

// Put stores an entry under key, stamping the current time and the default
// TTL when none is set.
func (s *Store) Put(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Timestamp = s.clock.Now()
	if entry.TTLDays <= 0 {
		entry.TTLDays = DefaultTTLDays
	}
	s.entries[key] = entry
}

// SetMediaHash records the hash of a downloaded asset on an existing entry.
func (s *Store) SetMediaHash(key, mediaType, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return
	}
	if entry.MediaHashes == nil {
		entry.MediaHashes = make(map[string]string)
	}
	entry.MediaHashes[mediaType] = hash
	s.entries[key] = entry
}

// Save writes the cache to disk via temp file and rename.
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(cacheFile{Entries: s.entries}, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("error encoding metadata cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating cache dir: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tempPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing metadata cache: %w", err)
	}
	if err := s.fs.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("error replacing metadata cache: %w", err)
	}
	return nil
}

// Stats returns hit and miss counts for this run.
func (s *Store) Stats() (hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
