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

// Package service drives scraping runs: it evaluates what each ROM needs,
// schedules the work, and assembles the resulting catalogs.
package service

import (
	"fmt"

	"github.com/curateur-project/curateur/pkg/gamelist"
)

// ActionKind is what the evaluator decided for one ROM.
type ActionKind int

const (
	ActionSkip ActionKind = iota
	ActionFullScrape
	ActionMediaOnly
	ActionUpdate
)

func (k ActionKind) String() string {
	switch k {
	case ActionSkip:
		return "skip"
	case ActionFullScrape:
		return "full_scrape"
	case ActionMediaOnly:
		return "media_only"
	case ActionUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Action is the evaluator's verdict: what to do and which media types to
// fetch. Every non-skip action needs a provider call, because media URLs
// only exist in provider responses.
type Action struct {
	Kind         ActionKind
	MediaTypes   []string
	NeedsNetwork bool
}

// UpdatePolicy controls when already-cataloged entries are rescraped.
type UpdatePolicy int

const (
	UpdateChangedOnly UpdatePolicy = iota
	UpdateNever
	UpdateAlways
)

// ParseUpdatePolicy parses a config value into a policy.
func ParseUpdatePolicy(value string) (UpdatePolicy, error) {
	switch value {
	case "never":
		return UpdateNever, nil
	case "changed_only":
		return UpdateChangedOnly, nil
	case "always":
		return UpdateAlways, nil
	default:
		return UpdateChangedOnly, fmt.Errorf("unknown update policy: %q", value)
	}
}

// EvalInput is the state the evaluator looks at for one ROM. Entry and
// Provenance are nil when the ROM is not in the catalog yet.
type EvalInput struct {
	Entry        *gamelist.Entry
	Provenance   *gamelist.Provenance
	CurrentHash  string
	EnabledMedia []string
	PresentMedia []string
	SkipScraped  bool
	Policy       UpdatePolicy
}

// Evaluate is a pure function from catalog state to one action.
func Evaluate(in EvalInput) Action {
	if in.Entry == nil {
		return fullScrape(in.EnabledMedia)
	}
	if !fieldsComplete(in.Entry) {
		return fullScrape(in.EnabledMedia)
	}

	if in.Policy == UpdateAlways {
		return Action{Kind: ActionUpdate, MediaTypes: in.EnabledMedia, NeedsNetwork: true}
	}
	if in.Policy == UpdateChangedOnly && hashChanged(in) {
		return Action{Kind: ActionUpdate, MediaTypes: in.EnabledMedia, NeedsNetwork: true}
	}

	if in.SkipScraped {
		missing := missingMedia(in.EnabledMedia, in.PresentMedia)
		if len(missing) == 0 {
			return Action{Kind: ActionSkip}
		}
		return Action{Kind: ActionMediaOnly, MediaTypes: missing, NeedsNetwork: true}
	}

	return fullScrape(in.EnabledMedia)
}

func fullScrape(enabled []string) Action {
	return Action{Kind: ActionFullScrape, MediaTypes: enabled, NeedsNetwork: true}
}

// fieldsComplete reports whether the provider-owned fields required by
// policy are populated.
func fieldsComplete(entry *gamelist.Entry) bool {
	return entry.Name != "" && entry.Desc != ""
}

// hashChanged compares the stored provenance hash against the current one.
// It is the sole signal for "ROM changed"; a missing stored hash means no
// change can be detected.
func hashChanged(in EvalInput) bool {
	if in.Provenance == nil || in.Provenance.RomHash == "" || in.CurrentHash == "" {
		return false
	}
	return in.Provenance.RomHash != in.CurrentHash
}

func missingMedia(enabled, present []string) []string {
	presentSet := make(map[string]bool, len(present))
	for _, typeDir := range present {
		presentSet[typeDir] = true
	}
	var missing []string
	for _, typeDir := range enabled {
		if !presentSet[typeDir] {
			missing = append(missing, typeDir)
		}
	}
	return missing
}
