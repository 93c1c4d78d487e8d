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

// Package hasher computes ROM identity hashes by streaming file contents.
package hasher

import (
	"crypto/md5"  //nolint:gosec // matching provider lookup keys, not security
	"crypto/sha1" //nolint:gosec // matching provider lookup keys, not security
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// Algorithm selects which hash identifies a ROM to the provider.
type Algorithm int

const (
	CRC32 Algorithm = iota
	MD5
	SHA1
)

func (a Algorithm) String() string {
	switch a {
	case CRC32:
		return "crc32"
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a config string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "crc32":
		return CRC32, nil
	case "md5":
		return MD5, nil
	case "sha1":
		return SHA1, nil
	default:
		return CRC32, fmt.Errorf("unknown hash algorithm: %s", s)
	}
}

// chunkSize is the read block for streaming large ROM images.
const chunkSize = 1 << 20

// Identity is the identifying tuple of a ROM's primary file. Hash is empty
// when the file exceeded the configured size cap.
type Identity struct {
	Hash      string
	Algorithm Algorithm
	Size      int64
}

// Compute hashes the file at path. Files larger than sizeCap (when > 0) are
// not hashed; the caller falls back to name+size matching. Output is
// uppercase hex; computing the same file twice yields identical results.
func Compute(fs afero.Fs, path string, algo Algorithm, sizeCap int64) (*Identity, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := info.Size()

	if sizeCap > 0 && size > sizeCap {
		return &Identity{Algorithm: algo, Size: size}, nil
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var h hash.Hash
	switch algo {
	case CRC32:
		h = crc32.NewIEEE()
	case MD5:
		h = md5.New() //nolint:gosec // provider lookup key
	case SHA1:
		h = sha1.New() //nolint:gosec // provider lookup key
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %d", algo)
	}

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, fmt.Errorf("failed to read file for hashing: %w", err)
	}

	return &Identity{
		Hash:      strings.ToUpper(hex.EncodeToString(h.Sum(nil))),
		Algorithm: algo,
		Size:      size,
	}, nil
}
