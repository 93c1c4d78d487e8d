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

package service

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/curateur-project/curateur/pkg/gamelist"
	"github.com/curateur-project/curateur/pkg/helpers/syncutil"
	"github.com/curateur-project/curateur/pkg/scraper/throttle"
)

// Summary collects what happened during one platform's run. Workers update
// it concurrently; rendering happens once the platform finishes.
type Summary struct {
	Platform  string
	StartedAt time.Time

	mu            syncutil.Mutex
	finishedAt    time.Time
	scanned       int
	actions       map[ActionKind]int
	failed        []string
	notFound      []string
	pending       []string
	errorReasons  map[string]int
	changes       []gamelist.Change
	cacheHits     int
	cacheMisses   int
	cleanupMoves  int
	throttleStats map[string]throttle.Stats
}

// NewSummary starts a summary for one platform.
func NewSummary(platform string, startedAt time.Time) *Summary {
	return &Summary{
		Platform:      platform,
		StartedAt:     startedAt,
		actions:       make(map[ActionKind]int),
		errorReasons:  make(map[string]int),
		throttleStats: make(map[string]throttle.Stats),
	}
}

func (s *Summary) SetScanned(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanned = count
}

func (s *Summary) CountAction(kind ActionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[kind]++
}

func (s *Summary) AddFailed(basename, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, basename)
	s.errorReasons[reason]++
}

func (s *Summary) AddNotFound(basename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notFound = append(s.notFound, basename)
}

func (s *Summary) AddError(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorReasons[reason]++
}

func (s *Summary) AddChange(change gamelist.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, change)
}

func (s *Summary) SetPending(basenames []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = basenames
}

func (s *Summary) SetCacheStats(hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits = hits
	s.cacheMisses = misses
}

func (s *Summary) SetCleanupMoves(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupMoves = count
}

func (s *Summary) SetThrottleStats(endpoint string, stats throttle.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttleStats[endpoint] = stats
}

func (s *Summary) Finish(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishedAt = at
}

// NotFoundItems returns the ROMs the provider had no record for.
func (s *Summary) NotFoundItems() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]string, len(s.notFound))
	copy(items, s.notFound)
	return items
}

// FailedCount returns how many items exhausted retries.
func (s *Summary) FailedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failed)
}

// FileName derives the artifact name from the start time.
func (s *Summary) FileName() string {
	return fmt.Sprintf("curateur_summary_%s_%s.log",
		s.StartedAt.Format("20060102"), s.StartedAt.Format("150405"))
}

// Render produces the stable, greppable text artifact.
func (s *Summary) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "platform: %s\n", s.Platform)
	fmt.Fprintf(&b, "started: %s\n", s.StartedAt.Format(time.RFC3339))
	if !s.finishedAt.IsZero() {
		fmt.Fprintf(&b, "finished: %s\n", s.finishedAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "duration: %s\n", s.finishedAt.Sub(s.StartedAt).Round(time.Second))
	}

	b.WriteString("\ncounts:\n")
	fmt.Fprintf(&b, "  scanned: %d\n", s.scanned)
	fmt.Fprintf(&b, "  skipped: %d\n", s.actions[ActionSkip])
	fmt.Fprintf(&b, "  full_scraped: %d\n", s.actions[ActionFullScrape])
	fmt.Fprintf(&b, "  media_only: %d\n", s.actions[ActionMediaOnly])
	fmt.Fprintf(&b, "  updated: %d\n", s.actions[ActionUpdate])
	fmt.Fprintf(&b, "  failed: %d\n", len(s.failed))
	fmt.Fprintf(&b, "  not_found: %d\n", len(s.notFound))
	fmt.Fprintf(&b, "  cache_hits: %d\n", s.cacheHits)
	fmt.Fprintf(&b, "  cache_misses: %d\n", s.cacheMisses)
	fmt.Fprintf(&b, "  cleanup_moves: %d\n", s.cleanupMoves)

	if len(s.throttleStats) > 0 {
		b.WriteString("\nthrottle:\n")
		endpoints := make([]string, 0, len(s.throttleStats))
		for endpoint := range s.throttleStats {
			endpoints = append(endpoints, endpoint)
		}
		sort.Strings(endpoints)
		for _, endpoint := range endpoints {
			stats := s.throttleStats[endpoint]
			fmt.Fprintf(&b, "  %s: wait=%s rate_limits=%d max_backoff=%dx\n",
				endpoint, stats.TotalWait.Round(time.Millisecond), stats.RateLimits, stats.MaxMultiplier)
		}
	}

	if len(s.errorReasons) > 0 {
		b.WriteString("\ntop errors:\n")
		type reasonCount struct {
			reason string
			count  int
		}
		reasons := make([]reasonCount, 0, len(s.errorReasons))
		for reason, count := range s.errorReasons {
			reasons = append(reasons, reasonCount{reason, count})
		}
		sort.Slice(reasons, func(i, j int) bool {
			if reasons[i].count != reasons[j].count {
				return reasons[i].count > reasons[j].count
			}
			return reasons[i].reason < reasons[j].reason
		})
		for i, rc := range reasons {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "  %dx %s\n", rc.count, rc.reason)
		}
	}

	if len(s.changes) > 0 {
		b.WriteString("\nchanges:\n")
		for _, change := range s.changes {
			if change.New {
				fmt.Fprintf(&b, "  added %s\n", change.Path)
				continue
			}
			if len(change.Updated) > 0 {
				fmt.Fprintf(&b, "  updated %s: %s\n", change.Path, strings.Join(change.Updated, ", "))
			}
		}
	}

	if len(s.notFound) > 0 {
		b.WriteString("\nnot found:\n")
		for _, basename := range s.notFound {
			fmt.Fprintf(&b, "  %s\n", basename)
		}
	}
	if len(s.failed) > 0 {
		b.WriteString("\nfailed:\n")
		for _, basename := range s.failed {
			fmt.Fprintf(&b, "  %s\n", basename)
		}
	}
	if len(s.pending) > 0 {
		b.WriteString("\npending at cancel:\n")
		for _, basename := range s.pending {
			fmt.Fprintf(&b, "  %s\n", basename)
		}
	}
	return b.String()
}

// Write places the summary artifact in the platform's catalog directory.
func (s *Summary) Write(fs afero.Fs, catalogDir string) error {
	path := filepath.Join(catalogDir, s.FileName())
	if err := afero.WriteFile(fs, path, []byte(s.Render()), 0o644); err != nil {
		return fmt.Errorf("error writing summary artifact: %w", err)
	}
	return nil
}

// WriteNotFound writes the platform's not-found list, or removes nothing
// when the list is empty.
func (s *Summary) WriteNotFound(fs afero.Fs, catalogDir string) error {
	items := s.NotFoundItems()
	if len(items) == 0 {
		return nil
	}
	path := filepath.Join(catalogDir, s.Platform+"_not_found.txt")
	content := strings.Join(items, "\n") + "\n"
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("error writing not-found list: %w", err)
	}
	return nil
}
