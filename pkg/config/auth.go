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

package config

import (
	"strings"
	"sync/atomic"
)

// Auth is the schema of the auth.toml file kept beside the main config.
// Credentials are stored separately so the main config can be shared freely.
type Auth struct {
	Creds map[string]CredentialEntry `toml:"creds,omitempty"`
}

type CredentialEntry struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Bearer   string `toml:"bearer"`
}

var authCfg atomic.Value

func GetAuthCfg() Auth {
	val := authCfg.Load()
	if val == nil {
		return Auth{}
	}
	auth, ok := val.(Auth)
	if !ok {
		return Auth{}
	}
	return auth
}

// SetAuthCfg replaces the in-memory auth config. Used by tests and by Load.
func SetAuthCfg(auth Auth) {
	authCfg.Store(auth)
}

// LookupAuth finds the credential entry whose key is a prefix of reqURL.
// The longest matching prefix wins.
func LookupAuth(auth Auth, reqURL string) *CredentialEntry {
	var best string
	for prefix := range auth.Creds {
		if strings.HasPrefix(reqURL, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil
	}
	entry := auth.Creds[best]
	return &entry
}
