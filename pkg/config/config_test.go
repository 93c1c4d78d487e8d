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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigCreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, CfgFile))
	assert.Equal(t, []string{"us", "wor", "eu", "jp"}, cfg.Regions())
	assert.Equal(t, "changed_only", cfg.ScrapingCfg().UpdatePolicy)
	assert.Equal(t, "preserve_user_edits", cfg.ScrapingCfg().MergePolicy)
	assert.InDelta(t, 0.95, cfg.ScrapingCfg().IntegrityThreshold, 0.001)
	assert.Equal(t, "crc32", cfg.RuntimeCfg().HashAlgorithm)
	assert.True(t, cfg.MediaCfg().SkipExistingMedia)
	assert.InDelta(t, 2.0, cfg.MediaCfg().DownloadRatePerS, 0.001)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
config_schema = 1

[scraping]
update_policy = "always"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "always", cfg.ScrapingCfg().UpdatePolicy)
	// untouched sections keep defaults
	assert.Equal(t, "preserve_user_edits", cfg.ScrapingCfg().MergePolicy)
	assert.Equal(t, 30, cfg.APICfg().RequestTimeoutS)
}

func TestLoadSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	content := "config_schema = 99\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version mismatch")
}

func TestValidateRejectsBadEnum(t *testing.T) {
	dir := t.TempDir()
	content := `
config_schema = 1

[media]
validation = "sometimes"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}

func TestValidateDefaultsPass(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestLookupAuthLongestPrefix(t *testing.T) {
	t.Parallel()

	auth := Auth{Creds: map[string]CredentialEntry{
		"https://example.com":     {Username: "short"},
		"https://example.com/api": {Username: "long"},
	}}

	entry := LookupAuth(auth, "https://example.com/api/v2/thing")
	require.NotNil(t, entry)
	assert.Equal(t, "long", entry.Username)

	assert.Nil(t, LookupAuth(auth, "https://other.example.org"))
}

func TestSettersOverride(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetDryRun(true)
	assert.True(t, cfg.RuntimeCfg().DryRun)

	cfg.SetPlatformSelection([]string{"nes", "snes"})
	assert.Equal(t, []string{"nes", "snes"}, cfg.PlatformSelection())
}
