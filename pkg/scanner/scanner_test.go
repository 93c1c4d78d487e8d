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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestScanSingleFiles(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/roms/nes/World Explorer (World).zip", "rom")
	writeFile(t, fs, "/roms/nes/Cave Story (USA) (En,Fr).nes", "rom")
	writeFile(t, fs, "/roms/nes/.hidden.nes", "rom")
	writeFile(t, fs, "/roms/nes/notes.txt", "skip me")

	result, err := Scan(fs, "/roms/nes", []string{".nes", ".zip"})
	require.NoError(t, err)

	require.Len(t, result.Entities, 2)
	assert.Empty(t, result.Conflicts)

	cave := result.Entities[0]
	assert.Equal(t, KindSingle, cave.Kind)
	assert.Equal(t, "Cave Story (USA) (En,Fr)", cave.Basename)
	assert.Equal(t, []string{"us"}, cave.Regions)
	assert.Equal(t, []string{"en", "fr"}, cave.Languages)

	world := result.Entities[1]
	assert.Equal(t, "World Explorer (World)", world.Basename)
	assert.Equal(t, []string{"wor"}, world.Regions)
}

func TestScanPlaylist(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/roms/psx/Sample Saga.m3u",
		"# comment\n./.multidisc/Sample Saga (Disc 1).cue\n\n./.multidisc/Sample Saga (Disc 2).cue\n")
	writeFile(t, fs, "/roms/psx/.multidisc/Sample Saga (Disc 1).cue", "disc1")
	writeFile(t, fs, "/roms/psx/.multidisc/Sample Saga (Disc 2).cue", "disc2")

	result, err := Scan(fs, "/roms/psx", []string{".cue", ".m3u"})
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	ent := result.Entities[0]
	assert.Equal(t, KindPlaylist, ent.Kind)
	assert.Equal(t, "Sample Saga", ent.Basename)
	assert.Equal(t, "/roms/psx/.multidisc/Sample Saga (Disc 1).cue", ent.PrimaryFile)
	require.Len(t, ent.AuxFiles, 1)
}

func TestScanPlaylistMissingDisc1(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/roms/psx/Ghost.m3u", "./Ghost (Disc 1).cue\n")

	result, err := Scan(fs, "/roms/psx", []string{".cue", ".m3u"})
	require.NoError(t, err)

	assert.Empty(t, result.Entities)
	require.Len(t, result.Conflicts, 1)
	assert.Contains(t, result.Conflicts[0].Reason, "disc 1 missing")
}

func TestScanDiscFolder(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/roms/psx/Demo Orbit (Disc 1).cue/Demo Orbit (Disc 1).cue", "cue")
	writeFile(t, fs, "/roms/psx/Demo Orbit (Disc 1).cue/track01.bin", "data")

	result, err := Scan(fs, "/roms/psx", []string{".cue"})
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	ent := result.Entities[0]
	assert.Equal(t, KindDiscFolder, ent.Kind)
	// extension is kept in the display basename for disc folders
	assert.Equal(t, "Demo Orbit (Disc 1).cue", ent.Basename)
	assert.Equal(t, "/roms/psx/Demo Orbit (Disc 1).cue/Demo Orbit (Disc 1).cue", ent.PrimaryFile)
	assert.Equal(t, []string{"/roms/psx/Demo Orbit (Disc 1).cue/track01.bin"}, ent.AuxFiles)
}

func TestScanPlaylistDiscFolderConflict(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/roms/psx/Title.m3u", "./Title.cue/Title.cue\n")
	writeFile(t, fs, "/roms/psx/Title.cue/Title.cue", "cue")
	writeFile(t, fs, "/roms/psx/Other Game.cue", "cue")

	result, err := Scan(fs, "/roms/psx", []string{".cue", ".m3u"})
	require.NoError(t, err)

	// both conflicting entities dropped, unrelated entity kept
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Other Game", result.Entities[0].Basename)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "Title", result.Conflicts[0].Basename)
	assert.Len(t, result.Conflicts[0].Paths, 2)
}

func TestParseTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		basename  string
		regions   []string
		languages []string
	}{
		{"usa only", "Game (USA)", []string{"us"}, nil},
		{"multi region", "Game (USA, Europe)", []string{"us", "eu"}, nil},
		{"languages", "Game (Europe) (En,Fr,De)", []string{"eu"}, []string{"en", "fr", "de"}},
		{"world", "Game (World)", []string{"wor"}, nil},
		{"japan", "Game (Japan) (Ja)", []string{"jp"}, []string{"ja"}},
		{"no tags", "Plain Game", nil, nil},
		{"unknown token", "Game (Rev 1) (Proto)", nil, nil},
		{"duplicate region", "Game (USA) (US)", []string{"us"}, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			regions, languages := ParseTags(tt.basename)
			assert.Equal(t, tt.regions, regions)
			assert.Equal(t, tt.languages, languages)
		})
	}
}

func TestScanDeterministicOrder(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/roms/nes/b.nes", "b")
	writeFile(t, fs, "/roms/nes/a.nes", "a")
	writeFile(t, fs, "/roms/nes/c.nes", "c")

	result, err := Scan(fs, "/roms/nes", []string{".nes"})
	require.NoError(t, err)

	names := []string{}
	for _, e := range result.Entities {
		names = append(names, e.Basename)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}
