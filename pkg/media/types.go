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

// Package media downloads, validates and organizes game media assets.
package media

import "strings"

// providerToDir maps provider media type codes to the directory each asset
// lands in under <media>/<platform>/. The map is closed: unknown provider
// types are ignored rather than guessed at.
var providerToDir = map[string]string{
	"box-2D":        "covers",
	"ss":            "screenshots",
	"sstitle":       "titlescreens",
	"screenmarquee": "marquees",
	"fanart":        "fanart",
	"video":         "videos",
	"wheel":         "wheel",
	"manuel":        "manuals",
	"box-3D":        "3dboxes",
	"box-2D-back":   "backcovers",
}

var dirToProvider = func() map[string]string {
	m := make(map[string]string, len(providerToDir))
	for provider, dir := range providerToDir {
		m[dir] = provider
	}
	return m
}()

// regionless marks provider types whose assets carry no meaningful region.
var regionless = map[string]bool{
	"fanart": true,
	"video":  true,
}

// DirFor returns the media directory for a provider type code.
func DirFor(providerType string) (string, bool) {
	dir, ok := providerToDir[providerType]
	return dir, ok
}

// ProviderFor returns the provider type code for a media directory name,
// as used by the enabled-types config.
func ProviderFor(dir string) (string, bool) {
	provider, ok := dirToProvider[dir]
	return provider, ok
}

// IsRegionless reports whether region selection applies to this provider
// type.
func IsRegionless(providerType string) bool {
	return regionless[providerType]
}

// Dirs returns all known media directory names.
func Dirs() []string {
	dirs := make([]string, 0, len(dirToProvider))
	for dir := range dirToProvider {
		dirs = append(dirs, dir)
	}
	return dirs
}

// AllowedContentType reports whether a response content type is acceptable
// for a media download. Some mirrors serve binary types for everything, so
// the generic ones stay allowed.
func AllowedContentType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return true
	case strings.HasPrefix(contentType, "video/"):
		return true
	case contentType == "application/pdf",
		contentType == "application/force-download",
		contentType == "application/octet-stream":
		return true
	}
	return false
}
