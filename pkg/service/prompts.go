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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/curateur-project/curateur/pkg/helpers/syncutil"
	"github.com/curateur-project/curateur/pkg/scraper"
)

// Prompter is the operator interaction surface. Implementations must be
// safe for concurrent use; at most one prompt is in flight at a time.
type Prompter interface {
	// ConfirmCleanup asks whether catalog entries whose ROMs are gone
	// should be pruned, with their media parked under CLEANUP.
	ConfirmCleanup(platform string, orphanCount int) bool

	// SelectCandidate asks the operator to pick a search result. ok is
	// false when the operator skips the item.
	SelectCandidate(romBasename string, candidates []scraper.Record) (index int, ok bool)

	// ConfirmMediaCleanup asks before moving a now-disabled media type's
	// files to CLEANUP.
	ConfirmMediaCleanup(typeDir string, fileCount int) bool
}

// nonInteractive resolves every prompt to its safe default: no cleanup,
// skip unmatched items.
type nonInteractive struct{}

// NewNonInteractivePrompter returns the prompter used for non-TTY runs.
func NewNonInteractivePrompter() Prompter {
	return nonInteractive{}
}

func (nonInteractive) ConfirmCleanup(string, int) bool { return false }

func (nonInteractive) SelectCandidate(string, []scraper.Record) (int, bool) { return 0, false }

func (nonInteractive) ConfirmMediaCleanup(string, int) bool { return false }

// TerminalPrompter reads answers from an interactive terminal. A mutex
// serializes prompts so workers never interleave output.
type TerminalPrompter struct {
	mu  syncutil.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter builds a prompter over the given streams.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) ConfirmCleanup(platform string, orphanCount int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%d catalog entries for %s have no ROM on disk. Prune them and move their media to CLEANUP? [y/N] ",
		orphanCount, platform)
	return p.readYesNo()
}

func (p *TerminalPrompter) SelectCandidate(romBasename string, candidates []scraper.Record) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "No confident match for %s. Candidates:\n", romBasename)
	for i, candidate := range candidates {
		fmt.Fprintf(p.out, "  [%d] %s\n", i+1, candidate.Name)
	}
	fmt.Fprintf(p.out, "Select 1-%d, or press enter to skip: ", len(candidates))

	line, err := p.in.ReadString('\n')
	if err != nil {
		return 0, false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false
	}
	index, err := strconv.Atoi(line)
	if err != nil || index < 1 || index > len(candidates) {
		return 0, false
	}
	return index - 1, true
}

func (p *TerminalPrompter) ConfirmMediaCleanup(typeDir string, fileCount int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "Media type %q is disabled; %d files on disk. Move to CLEANUP? [y/N] ",
		typeDir, fileCount)
	return p.readYesNo()
}

func (p *TerminalPrompter) readYesNo() bool {
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
