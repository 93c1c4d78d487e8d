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

// Package throttle paces provider requests: a sliding per-minute window,
// multiplicative backoff after rate-limit responses, and a daily quota
// guard.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/curateur-project/curateur/pkg/helpers/syncutil"
	"github.com/curateur-project/curateur/pkg/scraper"
)

const (
	windowSpan    = time.Minute
	maxBackoffMul = 8
)

// Options configures a Limiter. Zero-valued caps mean "no limit".
type Options struct {
	// RequestsPerMinute is the sliding-window capacity.
	RequestsPerMinute int
	// DailyQuota is the total request budget for the day.
	DailyQuota int
	// RetryDelay is the base backoff delay used when the server does not
	// suggest one.
	RetryDelay time.Duration
	// QuotaWarningRatio triggers a one-time warning when daily usage
	// crosses it.
	QuotaWarningRatio float64
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Limiter serializes admission decisions for all workers sharing one
// provider account.
type Limiter struct {
	clock clockwork.Clock

	mu          syncutil.Mutex
	window      []time.Time
	perMinute   int
	retryDelay  time.Duration
	consecutive int
	nextAllowed time.Time

	dailyQuota int
	usedToday  int
	warnRatio  float64
	warned     bool

	totalWait     time.Duration
	rateLimits    int
	maxMultiplier int
}

// New builds a Limiter from options.
func New(opts Options) *Limiter {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return &Limiter{
		clock:      clock,
		perMinute:  opts.RequestsPerMinute,
		retryDelay: retryDelay,
		dailyQuota: opts.DailyQuota,
		warnRatio:  opts.QuotaWarningRatio,
	}
}

// ApplyCaps tightens the limiter with server-reported caps. A cap already
// set by override is kept when it is stricter. Usage counters sync to the
// server's numbers, which include requests made by other clients today.
func (l *Limiter) ApplyCaps(info *scraper.UserInfo) {
	if info == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if info.RequestsPerMinute > 0 &&
		(l.perMinute == 0 || info.RequestsPerMinute < l.perMinute) {
		l.perMinute = info.RequestsPerMinute
	}
	if info.MaxRequestsPerDay > 0 &&
		(l.dailyQuota == 0 || info.MaxRequestsPerDay < l.dailyQuota) {
		l.dailyQuota = info.MaxRequestsPerDay
	}
	if info.RequestsToday > l.usedToday {
		l.usedToday = info.RequestsToday
	}
}

// Wait blocks until a request may be sent, then reserves its window slot.
// It returns a fatal error when the daily quota is exhausted, and the
// context error when ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()

		if l.dailyQuota > 0 && l.usedToday >= l.dailyQuota {
			l.mu.Unlock()
			return scraper.NewProviderError(scraper.KindFatal, 0,
				fmt.Sprintf("daily quota exhausted (%d/%d requests)", l.usedToday, l.dailyQuota))
		}

		if now.Before(l.nextAllowed) {
			wakeAt := l.nextAllowed
			l.mu.Unlock()
			if err := l.sleepUntil(ctx, wakeAt); err != nil {
				return err
			}
			continue
		}

		l.evict(now)
		if l.perMinute <= 0 || len(l.window) < l.perMinute {
			l.window = append(l.window, now)
			l.usedToday++
			l.maybeWarn()
			l.mu.Unlock()
			return nil
		}

		wakeAt := l.window[0].Add(windowSpan)
		l.mu.Unlock()
		if err := l.sleepUntil(ctx, wakeAt); err != nil {
			return err
		}
	}
}

// OnSuccess resets the backoff state after a successful response.
func (l *Limiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutive = 0
	l.nextAllowed = time.Time{}
}

// OnRateLimited applies multiplicative backoff after a 429. The delay
// doubles with each consecutive rate limit, capped at 8x, and the request
// window is cleared so admission restarts cleanly after the pause.
func (l *Limiter) OnRateLimited(retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = l.retryDelay
	}
	l.consecutive++
	multiplier := 1
	for i := 1; i < l.consecutive && multiplier < maxBackoffMul; i++ {
		multiplier *= 2
	}

	delay := time.Duration(multiplier) * retryAfter
	l.nextAllowed = l.clock.Now().Add(delay)
	l.window = l.window[:0]
	l.rateLimits++
	if multiplier > l.maxMultiplier {
		l.maxMultiplier = multiplier
	}

	log.Warn().
		Dur("delay", delay).
		Int("consecutive", l.consecutive).
		Msg("rate limited, backing off")
}

// Remaining returns today's used and total request budget. Total is 0 when
// no daily quota applies.
func (l *Limiter) Remaining() (used, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usedToday, l.dailyQuota
}

func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-windowSpan)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// maybeWarn logs once per run when usage crosses the warning ratio.
// Caller holds the lock.
func (l *Limiter) maybeWarn() {
	if l.warned || l.dailyQuota <= 0 || l.warnRatio <= 0 {
		return
	}
	if float64(l.usedToday) >= l.warnRatio*float64(l.dailyQuota) {
		l.warned = true
		log.Warn().
			Int("used", l.usedToday).
			Int("quota", l.dailyQuota).
			Msg("approaching daily request quota")
	}
}

func (l *Limiter) sleepUntil(ctx context.Context, wakeAt time.Time) error {
	wait := wakeAt.Sub(l.clock.Now())
	if wait <= 0 {
		return nil
	}
	l.mu.Lock()
	l.totalWait += wait
	l.mu.Unlock()

	timer := l.clock.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("throttle wait cancelled: %w", ctx.Err())
	case <-timer.Chan():
		return nil
	}
}

// Stats describes what the limiter did during a run, for the platform
// summary.
type Stats struct {
	TotalWait     time.Duration
	RateLimits    int
	MaxMultiplier int
}

// Stats returns a snapshot of the limiter's counters.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		TotalWait:     l.totalWait,
		RateLimits:    l.rateLimits,
		MaxMultiplier: l.maxMultiplier,
	}
}
