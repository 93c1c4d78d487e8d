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

package scraper

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind categorizes provider failures into the policies the scheduler
// understands.
type ErrorKind int

const (
	// KindFatal aborts the whole run (credentials, blacklisted client,
	// exhausted daily quota).
	KindFatal ErrorKind = iota
	// KindRetryable is transient (rate limits, server saturation, network).
	KindRetryable
	// KindNotFound means the provider has no record for this identity.
	KindNotFound
	// KindSoftDegrade is a partial failure that leaves a gap but does not
	// stop the item (e.g. one media asset failed validation).
	KindSoftDegrade
)

func (k ErrorKind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindRetryable:
		return "retryable"
	case KindNotFound:
		return "not_found"
	case KindSoftDegrade:
		return "soft_degrade"
	default:
		return "unknown"
	}
}

// ProviderError is a categorized upstream failure. RetryAfter is the
// server-suggested delay when one was present. Malformed marks a response
// the client could not decode; these retry like any transient failure but
// demote to not-found once retries run out.
type ProviderError struct {
	Message    string
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration
	Malformed  bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (%s, HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// NewProviderError builds a categorized error.
func NewProviderError(kind ErrorKind, statusCode int, message string) *ProviderError {
	return &ProviderError{Kind: kind, StatusCode: statusCode, Message: message}
}

// NewMalformedError builds the retryable error for an undecodable response.
func NewMalformedError(statusCode int, message string) *ProviderError {
	return &ProviderError{Kind: KindRetryable, StatusCode: statusCode, Message: message, Malformed: true}
}

// IsMalformed reports whether err came from an undecodable response.
func IsMalformed(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Malformed
}

// KindOf extracts the error kind; non-provider errors (I/O, context, net)
// default to retryable so they flow through the retry policy.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindRetryable
}

// IsFatal reports whether err should abort the run.
func IsFatal(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindFatal
}

// IsNotFound reports whether the provider has no record for the identity.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindNotFound
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	return KindOf(err) == KindRetryable
}

// RetryAfterOf returns the server-suggested retry delay, or 0.
func RetryAfterOf(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}
