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
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/curateur-project/curateur/pkg/scanner/hasher"
	"github.com/curateur-project/curateur/pkg/scraper"
	"github.com/curateur-project/curateur/pkg/shared/httpclient"
)

// ValidationMode controls how hard a downloaded asset is checked before it
// is kept.
type ValidationMode int

const (
	ValidationNormal ValidationMode = iota
	ValidationDisabled
	ValidationStrict
)

// ParseValidationMode parses a config value into a mode.
func ParseValidationMode(value string) (ValidationMode, error) {
	switch value {
	case "disabled":
		return ValidationDisabled, nil
	case "normal":
		return ValidationNormal, nil
	case "strict":
		return ValidationStrict, nil
	default:
		return ValidationNormal, fmt.Errorf("unknown media validation mode: %q", value)
	}
}

// Options configures a Downloader.
type Options struct {
	Fs           afero.Fs
	Client       *httpclient.Client
	Mode         ValidationMode
	MinImageSide int
	SkipExisting bool
	HashAlgo     hasher.Algorithm
	// RequestsPerSecond caps download pace against the media CDN.
	// Zero means unlimited.
	RequestsPerSecond float64
}

// Downloader fetches media assets to their final paths. Failed or invalid
// downloads surface as soft-degrade errors so one bad asset never sinks
// the whole item.
type Downloader struct {
	fs           afero.Fs
	client       *httpclient.Client
	limiter      *rate.Limiter
	mode         ValidationMode
	minImageSide int
	skipExisting bool
	hashAlgo     hasher.Algorithm
}

// NewDownloader builds a Downloader from options.
func NewDownloader(opts Options) *Downloader {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	client := opts.Client
	if client == nil {
		client = httpclient.NewClient()
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Downloader{
		fs:           fs,
		client:       client,
		limiter:      limiter,
		mode:         opts.Mode,
		minImageSide: opts.MinImageSide,
		skipExisting: opts.SkipExisting,
		hashAlgo:     opts.HashAlgo,
	}
}

// Result describes one fetched (or skipped) asset.
type Result struct {
	Path    string
	Hash    string
	Size    int64
	Skipped bool
}

// Fetch downloads item to destPath. An existing file whose content hash
// matches storedHash (the hash recorded in provenance) short-circuits, as
// does any existing file when skip-existing is on; both are still hashed
// so provenance stays complete.
func (d *Downloader) Fetch(ctx context.Context, item scraper.MediaItem, destPath, storedHash string) (*Result, error) {
	if exists, _ := afero.Exists(d.fs, destPath); exists {
		if storedHash != "" {
			identity, err := hasher.Compute(d.fs, destPath, d.hashAlgo, 0)
			if err == nil && identity.Hash == storedHash {
				return &Result{Path: destPath, Hash: identity.Hash, Size: identity.Size, Skipped: true}, nil
			}
		}
		if d.skipExisting {
			return d.describeExisting(destPath)
		}
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("download rate wait cancelled: %w", err)
		}
	}

	resp, err := d.client.Get(ctx, item.URL)
	if err != nil {
		return nil, softDegrade("media download failed: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()

	if resp.StatusCode != 200 {
		return nil, softDegrade("media download returned HTTP %d for %s", resp.StatusCode, item.URL)
	}
	if d.mode != ValidationDisabled {
		contentType := resp.Header.Get("Content-Type")
		if contentType != "" && !AllowedContentType(contentType) {
			return nil, softDegrade("unexpected content type %q for %s", contentType, item.URL)
		}
	}

	if err := d.fs.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("error creating media dir: %w", err)
	}

	tempPath := destPath + ".part"
	written, err := d.writeTemp(tempPath, resp.Body)
	if err != nil {
		return nil, err
	}

	if err := d.validate(tempPath, written); err != nil {
		if removeErr := d.fs.Remove(tempPath); removeErr != nil {
			log.Warn().Err(removeErr).Str("path", tempPath).Msg("error removing rejected download")
		}
		return nil, err
	}

	if err := d.fs.Rename(tempPath, destPath); err != nil {
		return nil, fmt.Errorf("error placing media file: %w", err)
	}

	identity, err := hasher.Compute(d.fs, destPath, d.hashAlgo, 0)
	if err != nil {
		return nil, fmt.Errorf("error hashing media file: %w", err)
	}
	return &Result{Path: destPath, Hash: identity.Hash, Size: written}, nil
}

func (d *Downloader) describeExisting(destPath string) (*Result, error) {
	identity, err := hasher.Compute(d.fs, destPath, d.hashAlgo, 0)
	if err != nil {
		return nil, fmt.Errorf("error hashing existing media file: %w", err)
	}
	return &Result{Path: destPath, Hash: identity.Hash, Size: identity.Size, Skipped: true}, nil
}

func (d *Downloader) writeTemp(tempPath string, body io.Reader) (int64, error) {
	file, err := d.fs.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("error creating temp file: %w", err)
	}
	written, err := io.Copy(file, body)
	if err != nil {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", tempPath).Msg("error closing temp file")
		}
		if removeErr := d.fs.Remove(tempPath); removeErr != nil {
			log.Warn().Err(removeErr).Str("path", tempPath).Msg("error removing partial download")
		}
		return 0, softDegrade("media download interrupted: %v", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("error closing temp file: %w", err)
	}
	return written, nil
}

func (d *Downloader) validate(path string, size int64) error {
	if d.mode == ValidationDisabled {
		return nil
	}
	if size == 0 {
		return softDegrade("media download is empty: %s", path)
	}
	if d.mode != ValidationStrict {
		return nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return d.validateImage(path)
	case ".pdf":
		return d.validatePDF(path)
	}
	return nil
}

func (d *Downloader) validateImage(path string) error {
	file, err := d.fs.Open(path)
	if err != nil {
		return fmt.Errorf("error opening media file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("error closing media file")
		}
	}()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return softDegrade("media file is not a decodable image: %s", path)
	}
	if d.minImageSide > 0 && (cfg.Width < d.minImageSide || cfg.Height < d.minImageSide) {
		return softDegrade("image %dx%d below minimum side %d: %s",
			cfg.Width, cfg.Height, d.minImageSide, path)
	}
	return nil
}

func (d *Downloader) validatePDF(path string) error {
	file, err := d.fs.Open(path)
	if err != nil {
		return fmt.Errorf("error opening media file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("error closing media file")
		}
	}()

	header := make([]byte, 4)
	if _, err := io.ReadFull(file, header); err != nil || !bytes.Equal(header, []byte("%PDF")) {
		return softDegrade("media file is not a PDF: %s", path)
	}
	return nil
}

func softDegrade(format string, args ...any) error {
	return scraper.NewProviderError(scraper.KindSoftDegrade, 0, fmt.Sprintf(format, args...))
}

// DestPath computes the final path for an asset: the media root, platform,
// type directory, then the ROM's display basename with the asset's own
// extension appended. Disc-folder basenames keep their inner extension, so
// nothing is stripped here.
func DestPath(mediaRoot, platform, typeDir, romBasename string, item *scraper.MediaItem) string {
	ext := item.Format
	if ext == "" {
		ext = strings.TrimPrefix(filepath.Ext(item.URL), ".")
	}
	name := romBasename
	if ext != "" {
		name = name + "." + ext
	}
	return filepath.Join(mediaRoot, platform, typeDir, name)
}
