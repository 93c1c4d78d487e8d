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

package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curateur-project/curateur/pkg/scraper"
)

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ABCD1234", Key("ABCD1234", "game.sfc", 1024))
	assert.Equal(t, "game.sfc:1024", Key("", "game.sfc", 1024))
}

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	store := Open(afero.NewMemMapFs(), "/cache/metadata_cache.json", clock)

	store.Put("key1", Entry{
		Record:  scraper.Record{Name: "Chrono Voyage"},
		RomHash: "ABCD1234",
		RomSize: 1024,
	})

	entry, ok := store.Get("key1", 1024)
	require.True(t, ok)
	assert.Equal(t, "Chrono Voyage", entry.Record.Name)
	assert.Equal(t, DefaultTTLDays, entry.TTLDays)

	hits, misses := store.Stats()
	assert.Equal(t, 1, hits)
	assert.Zero(t, misses)
}

func TestExpiredEntryEvicted(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	store := Open(afero.NewMemMapFs(), "/cache/metadata_cache.json", clock)

	store.Put("key1", Entry{RomSize: 1024})

	clock.Advance(DefaultTTLDays*24*time.Hour + time.Hour)
	_, ok := store.Get("key1", 1024)
	assert.False(t, ok)
	assert.Zero(t, store.Len())

	_, misses := store.Stats()
	assert.Equal(t, 1, misses)
}

func TestSizeMismatchInvalidates(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	store := Open(afero.NewMemMapFs(), "/cache/metadata_cache.json", clock)

	store.Put("key1", Entry{RomSize: 1024})

	_, ok := store.Get("key1", 2048)
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClock()
	path := "/catalog/.cache/metadata_cache.json"

	store := Open(fs, path, clock)
	store.Put("key1", Entry{
		Record:  scraper.Record{Name: "Chrono Voyage"},
		RomSize: 1024,
	})
	store.SetMediaHash("key1", "covers", "HASH1")
	require.NoError(t, store.Save())

	reloaded := Open(fs, path, clock)
	entry, ok := reloaded.Get("key1", 1024)
	require.True(t, ok)
	assert.Equal(t, "Chrono Voyage", entry.Record.Name)
	assert.Equal(t, "HASH1", entry.MediaHashes["covers"])
}

func TestCorruptFileYieldsEmptyStore(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path := "/cache/metadata_cache.json"
	require.NoError(t, afero.WriteFile(fs, path, []byte("{not json"), 0o644))

	store := Open(fs, path, clockwork.NewFakeClock())
	assert.Zero(t, store.Len())
}

func TestSetMediaHashOnMissingKeyIsNoop(t *testing.T) {
	t.Parallel()

	store := Open(afero.NewMemMapFs(), "/cache/metadata_cache.json", clockwork.NewFakeClock())
	store.SetMediaHash("missing", "covers", "HASH")
	assert.Zero(t, store.Len())
}
