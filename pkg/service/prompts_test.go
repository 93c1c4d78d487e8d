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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curateur-project/curateur/pkg/scraper"
)

func TestNonInteractiveDefaults(t *testing.T) {
	t.Parallel()

	prompter := NewNonInteractivePrompter()
	assert.False(t, prompter.ConfirmCleanup("snes", 5))
	assert.False(t, prompter.ConfirmMediaCleanup("covers", 3))

	_, ok := prompter.SelectCandidate("game", []scraper.Record{{Name: "Game"}})
	assert.False(t, ok)
}

func TestTerminalConfirmCleanup(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	prompter := NewTerminalPrompter(strings.NewReader("y\nno\n"), &out)

	assert.True(t, prompter.ConfirmCleanup("snes", 5))
	assert.False(t, prompter.ConfirmCleanup("snes", 5))
	assert.Contains(t, out.String(), "5 catalog entries for snes have no ROM")
}

func TestTerminalSelectCandidate(t *testing.T) {
	t.Parallel()

	candidates := []scraper.Record{{Name: "Game A"}, {Name: "Game B"}}

	var out bytes.Buffer
	prompter := NewTerminalPrompter(strings.NewReader("2\n"), &out)
	index, ok := prompter.SelectCandidate("game", candidates)
	require.True(t, ok)
	assert.Equal(t, 1, index)
	assert.Contains(t, out.String(), "[2] Game B")

	// empty line skips
	prompter = NewTerminalPrompter(strings.NewReader("\n"), &out)
	_, ok = prompter.SelectCandidate("game", candidates)
	assert.False(t, ok)

	// out-of-range skips
	prompter = NewTerminalPrompter(strings.NewReader("9\n"), &out)
	_, ok = prompter.SelectCandidate("game", candidates)
	assert.False(t, ok)

	// junk skips
	prompter = NewTerminalPrompter(strings.NewReader("abc\n"), &out)
	_, ok = prompter.SelectCandidate("game", candidates)
	assert.False(t, ok)
}

func TestTerminalConfirmMediaCleanup(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	prompter := NewTerminalPrompter(strings.NewReader("yes\n"), &out)
	assert.True(t, prompter.ConfirmMediaCleanup("covers", 12))
	assert.Contains(t, out.String(), `Media type "covers" is disabled`)
}
