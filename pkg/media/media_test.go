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

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curateur-project/curateur/pkg/scanner/hasher"
	"github.com/curateur-project/curateur/pkg/scraper"
)

func TestDirFor(t *testing.T) {
	t.Parallel()

	dir, ok := DirFor("box-2D")
	require.True(t, ok)
	assert.Equal(t, "covers", dir)

	_, ok = DirFor("maps")
	assert.False(t, ok)

	provider, ok := ProviderFor("screenshots")
	require.True(t, ok)
	assert.Equal(t, "ss", provider)
}

func TestAllowedContentType(t *testing.T) {
	t.Parallel()

	assert.True(t, AllowedContentType("image/png"))
	assert.True(t, AllowedContentType("video/mp4"))
	assert.True(t, AllowedContentType("application/pdf"))
	assert.True(t, AllowedContentType("application/octet-stream; charset=binary"))
	assert.False(t, AllowedContentType("text/html"))
	assert.False(t, AllowedContentType("application/json"))
}

func TestSelectRegionOrder(t *testing.T) {
	t.Parallel()

	items := []scraper.MediaItem{
		{Type: "box-2D", Region: "jp", URL: "jp.png"},
		{Type: "box-2D", Region: "eu", URL: "eu.png"},
		{Type: "box-2D", Region: "us", URL: "us.png"},
	}

	// rom region that is also preferred wins
	picked := Select(items, []string{"eu"}, []string{"us", "eu"})
	require.NotNil(t, picked)
	assert.Equal(t, "eu.png", picked.URL)

	// no rom regions: preference order applies
	picked = Select(items, nil, []string{"us", "eu"})
	require.NotNil(t, picked)
	assert.Equal(t, "us.png", picked.URL)

	// no overlap anywhere: first candidate
	picked = Select(items, []string{"br"}, []string{"kr"})
	require.NotNil(t, picked)
	assert.Equal(t, "jp.png", picked.URL)
}

func TestSelectRegionlessType(t *testing.T) {
	t.Parallel()

	items := []scraper.MediaItem{
		{Type: "video", Region: "", URL: "first.mp4"},
		{Type: "video", Region: "us", URL: "second.mp4"},
	}
	picked := Select(items, []string{"us"}, []string{"us"})
	require.NotNil(t, picked)
	assert.Equal(t, "first.mp4", picked.URL)
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func TestFetchDownloadsAndHashes(t *testing.T) {
	t.Parallel()

	payload := pngBytes(t, 100, 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	fs := afero.NewMemMapFs()
	downloader := NewDownloader(Options{
		Fs:       fs,
		Mode:     ValidationNormal,
		HashAlgo: hasher.CRC32,
	})

	result, err := downloader.Fetch(context.Background(),
		scraper.MediaItem{Type: "box-2D", URL: server.URL},
		"/media/snes/covers/game.png", "")
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.NotEmpty(t, result.Hash)
	assert.Equal(t, int64(len(payload)), result.Size)

	data, err := afero.ReadFile(fs, "/media/snes/covers/game.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	// no temp file left behind
	exists, _ := afero.Exists(fs, "/media/snes/covers/game.png.part")
	assert.False(t, exists)
}

func TestFetchSkipsExisting(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/media/covers/game.png", []byte("old"), 0o644))

	downloader := NewDownloader(Options{
		Fs:           fs,
		SkipExisting: true,
		HashAlgo:     hasher.CRC32,
	})

	result, err := downloader.Fetch(context.Background(),
		scraper.MediaItem{Type: "box-2D", URL: "http://127.0.0.1:1/unreachable"},
		"/media/covers/game.png", "")
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.NotEmpty(t, result.Hash)
}

func TestFetchSkipsWhenHashMatchesProvenance(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/media/covers/game.png", []byte("payload"), 0o644))
	identity, err := hasher.Compute(fs, "/media/covers/game.png", hasher.CRC32, 0)
	require.NoError(t, err)

	downloader := NewDownloader(Options{Fs: fs, HashAlgo: hasher.CRC32})

	// matching stored hash short-circuits even with skip-existing off
	result, err := downloader.Fetch(context.Background(),
		scraper.MediaItem{Type: "box-2D", URL: "http://127.0.0.1:1/unreachable"},
		"/media/covers/game.png", identity.Hash)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, identity.Hash, result.Hash)

	// stale stored hash falls through to a real download
	payload := pngBytes(t, 100, 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	result, err = downloader.Fetch(context.Background(),
		scraper.MediaItem{Type: "box-2D", URL: server.URL},
		"/media/covers/game.png", "DEADBEEF")
	require.NoError(t, err)
	assert.False(t, result.Skipped)

	data, err := afero.ReadFile(fs, "/media/covers/game.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchWithRateCap(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(t, 100, 100))
	}))
	t.Cleanup(server.Close)

	fs := afero.NewMemMapFs()
	downloader := NewDownloader(Options{
		Fs:                fs,
		HashAlgo:          hasher.CRC32,
		RequestsPerSecond: 1000,
	})

	for _, dest := range []string{"/media/covers/a.png", "/media/covers/b.png"} {
		result, err := downloader.Fetch(context.Background(),
			scraper.MediaItem{Type: "box-2D", URL: server.URL}, dest, "")
		require.NoError(t, err)
		assert.False(t, result.Skipped)
	}
}

func TestFetchRejectsBadContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not media</html>"))
	}))
	t.Cleanup(server.Close)

	downloader := NewDownloader(Options{Fs: afero.NewMemMapFs(), Mode: ValidationNormal})
	_, err := downloader.Fetch(context.Background(),
		scraper.MediaItem{Type: "box-2D", URL: server.URL}, "/media/covers/game.png", "")
	require.Error(t, err)
	assert.Equal(t, scraper.KindSoftDegrade, scraper.KindOf(err))
}

func TestFetchStrictRejectsSmallImage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(t, 16, 16))
	}))
	t.Cleanup(server.Close)

	fs := afero.NewMemMapFs()
	downloader := NewDownloader(Options{
		Fs:           fs,
		Mode:         ValidationStrict,
		MinImageSide: 64,
		HashAlgo:     hasher.CRC32,
	})

	_, err := downloader.Fetch(context.Background(),
		scraper.MediaItem{Type: "box-2D", URL: server.URL}, "/media/covers/game.png", "")
	require.Error(t, err)
	assert.Equal(t, scraper.KindSoftDegrade, scraper.KindOf(err))

	// rejected file is cleaned up
	exists, _ := afero.Exists(fs, "/media/covers/game.png")
	assert.False(t, exists)
	exists, _ = afero.Exists(fs, "/media/covers/game.png.part")
	assert.False(t, exists)
}

func TestFetchStrictRejectsCorruptImage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("not a png at all"))
	}))
	t.Cleanup(server.Close)

	downloader := NewDownloader(Options{
		Fs:       afero.NewMemMapFs(),
		Mode:     ValidationStrict,
		HashAlgo: hasher.CRC32,
	})

	_, err := downloader.Fetch(context.Background(),
		scraper.MediaItem{Type: "box-2D", URL: server.URL}, "/media/covers/game.png", "")
	require.Error(t, err)
	assert.Equal(t, scraper.KindSoftDegrade, scraper.KindOf(err))
}

func TestDestPath(t *testing.T) {
	t.Parallel()

	item := &scraper.MediaItem{Format: "png"}
	path := DestPath("/media", "snes", "covers", "Chrono Voyage (USA)", item)
	assert.Equal(t, "/media/snes/covers/Chrono Voyage (USA).png", path)

	item = &scraper.MediaItem{URL: "https://cdn.example/video.mp4"}
	path = DestPath("/media", "snes", "videos", "Chrono Voyage (USA)", item)
	assert.Equal(t, "/media/snes/videos/Chrono Voyage (USA).mp4", path)

	// disc-folder basenames keep their inner extension
	item = &scraper.MediaItem{Format: "jpg"}
	path = DestPath("/media", "psx", "covers", "Demo Orbit (Disc 1).cue", item)
	assert.Equal(t, "/media/psx/covers/Demo Orbit (Disc 1).cue.jpg", path)
}
