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
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/curateur-project/curateur/pkg/helpers"
	"github.com/spf13/afero"
)

// ParseM3U returns the disc paths listed in a playlist, resolved relative to
// the playlist's directory. Blank lines and #-comments are ignored.
func ParseM3U(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	dir := filepath.Dir(path)
	var discs []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(dir, line)
		}
		discs = append(discs, filepath.Clean(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	return discs, nil
}

// scanPlaylist turns an .m3u file into a playlist entity. The first listed
// disc provides the identity file and must exist.
func scanPlaylist(fs afero.Fs, path, name string) (Entity, error) {
	discs, err := ParseM3U(fs, path)
	if err != nil {
		return Entity{}, err
	}
	if len(discs) == 0 {
		return Entity{}, errors.New("playlist lists no discs")
	}

	disc1 := discs[0]
	if !helpers.FileExists(fs, disc1) {
		return Entity{}, fmt.Errorf("playlist disc 1 missing: %s", disc1)
	}

	basename := helpers.Stem(name)
	regions, languages := ParseTags(basename)
	return Entity{
		Kind:        KindPlaylist,
		Basename:    basename,
		Path:        path,
		PrimaryFile: disc1,
		AuxFiles:    discs[1:],
		Regions:     regions,
		Languages:   languages,
	}, nil
}
