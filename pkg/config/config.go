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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/curateur-project/curateur/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "CURATEUR_CFG"
	CfgFile       = "curateur.toml"
	AuthFile      = "auth.toml"
	AppName       = "curateur"
)

// Values is the full on-disk configuration schema.
type Values struct {
	Paths        Paths    `toml:"paths"`
	Platforms    []string `toml:"platforms,omitempty,multiline"`
	Regions      []string `toml:"regions,omitempty,multiline"`
	Languages    []string `toml:"languages,omitempty,multiline"`
	Media        Media    `toml:"media,omitempty"`
	Scraping     Scraping `toml:"scraping,omitempty"`
	Search       Search   `toml:"search,omitempty"`
	API          API      `toml:"api,omitempty"`
	Runtime      Runtime  `toml:"runtime,omitempty"`
	ConfigSchema int      `toml:"config_schema"`
	DebugLogging bool     `toml:"debug_logging"`
}

type Paths struct {
	RomRoot       string `toml:"rom_root"`
	MediaRoot     string `toml:"media_root"`
	CatalogRoot   string `toml:"catalog_root"`
	PlatformIndex string `toml:"platform_index"`
}

type Media struct {
	EnabledTypes      []string `toml:"enabled_types,omitempty,multiline"`
	Validation        string   `toml:"validation" validate:"oneof=disabled normal strict"`
	MinImageSide      int      `toml:"min_image_side" validate:"gte=0"`
	SkipExistingMedia bool     `toml:"skip_existing_media"`
	// DownloadRatePerS caps download requests per second against the media
	// CDN. Zero disables the cap.
	DownloadRatePerS float64 `toml:"download_rate_per_s" validate:"gte=0"`
}

type Scraping struct {
	UpdatePolicy       string  `toml:"update_policy" validate:"oneof=never changed_only always"`
	MergePolicy        string  `toml:"merge_policy" validate:"oneof=preserve_user_edits refresh_metadata reset_all"`
	NameVerification   string  `toml:"name_verification" validate:"oneof=strict normal lenient disabled"`
	IntegrityThreshold float64 `toml:"integrity_threshold" validate:"gte=0,lte=1"`
	SkipScraped        bool    `toml:"skip_scraped"`
}

type Search struct {
	Threshold      float64 `toml:"threshold" validate:"gte=0,lte=1"`
	MaxResults     int     `toml:"max_results" validate:"gte=1"`
	EnableFallback bool    `toml:"enable_fallback"`
	Interactive    bool    `toml:"interactive"`
}

type API struct {
	RequestTimeoutS    int         `toml:"request_timeout_s" validate:"gte=1"`
	MaxRetries         int         `toml:"max_retries" validate:"gte=0"`
	InitialRetryDelayS int         `toml:"initial_retry_delay_s" validate:"gte=0"`
	QuotaWarningRatio  float64     `toml:"quota_warning_ratio" validate:"gte=0,lte=1"`
	Override           APIOverride `toml:"override,omitempty"`
}

// APIOverride lowers provider-reported limits. Zero means no override; values
// can only reduce the provider caps, never raise them.
type APIOverride struct {
	MaxWorkers        int `toml:"max_workers" validate:"gte=0"`
	RequestsPerMinute int `toml:"requests_per_minute" validate:"gte=0"`
	DailyQuota        int `toml:"daily_quota" validate:"gte=0"`
}

type Runtime struct {
	HashAlgorithm    string `toml:"hash_algorithm" validate:"oneof=crc32 md5 sha1"`
	HashSizeCapBytes int64  `toml:"hash_size_cap_bytes" validate:"gte=0"`
	DryRun           bool   `toml:"dry_run"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Regions:      []string{"us", "wor", "eu", "jp"},
	Languages:    []string{"en"},
	Media: Media{
		EnabledTypes:      []string{"covers", "screenshots", "titlescreens", "marquees"},
		Validation:        "normal",
		MinImageSide:      64,
		SkipExistingMedia: true,
		DownloadRatePerS:  2,
	},
	Scraping: Scraping{
		UpdatePolicy:       "changed_only",
		MergePolicy:        "preserve_user_edits",
		NameVerification:   "normal",
		IntegrityThreshold: 0.95,
		SkipScraped:        true,
	},
	Search: Search{
		Threshold:      0.6,
		MaxResults:     10,
		EnableFallback: true,
	},
	API: API{
		RequestTimeoutS:    30,
		MaxRetries:         3,
		InitialRetryDelayS: 2,
		QuotaWarningRatio:  0.95,
	},
	Runtime: Runtime{
		HashAlgorithm:    "crc32",
		HashSizeCapBytes: 1 << 30,
	},
}

// Instance holds loaded configuration guarded for concurrent access.
type Instance struct {
	cfgPath  string
	authPath string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// DefaultConfigDir returns the per-user config directory for Curateur.
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultLogDir returns the per-user state directory used for log files.
func DefaultLogDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	cfg.authPath = filepath.Join(filepath.Dir(cfgPath), AuthFile)

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals

	if _, err := os.Stat(c.authPath); err == nil {
		log.Info().Msg("loading auth file")
		authData, err := os.ReadFile(c.authPath)
		if err != nil {
			return fmt.Errorf("failed to read auth file: %w", err)
		}

		var authVals Auth
		err = toml.Unmarshal(authData, &authVals)
		if err != nil {
			return fmt.Errorf("failed to unmarshal auth file: %w", err)
		}

		log.Info().Msgf("loaded %d auth entries", len(authVals.Creds))

		authCfg.Store(authVals)
	}

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(c.cfgPath, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges and enumerations across the whole config.
func (c *Instance) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&c.vals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Instance) PathsCfg() Paths {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Paths
}

func (c *Instance) PlatformSelection() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sel := make([]string, len(c.vals.Platforms))
	copy(sel, c.vals.Platforms)
	return sel
}

func (c *Instance) Regions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	regions := make([]string, len(c.vals.Regions))
	copy(regions, c.vals.Regions)
	return regions
}

func (c *Instance) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]string, len(c.vals.Languages))
	copy(langs, c.vals.Languages)
	return langs
}

func (c *Instance) MediaCfg() Media {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Media
}

func (c *Instance) ScrapingCfg() Scraping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scraping
}

func (c *Instance) SearchCfg() Search {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Search
}

func (c *Instance) APICfg() API {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API
}

func (c *Instance) RuntimeCfg() Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Runtime
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(debug bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = debug
}

// SetDryRun forces dry-run mode regardless of the config file (flag override).
func (c *Instance) SetDryRun(dryRun bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Runtime.DryRun = dryRun
}

// SetPlatformSelection replaces the platform allowlist (flag override).
func (c *Instance) SetPlatformSelection(platforms []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Platforms = platforms
}
