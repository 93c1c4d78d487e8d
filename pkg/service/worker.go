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
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/curateur-project/curateur/pkg/gamelist"
	"github.com/curateur-project/curateur/pkg/media"
	"github.com/curateur-project/curateur/pkg/scanner"
	"github.com/curateur-project/curateur/pkg/scanner/hasher"
	"github.com/curateur-project/curateur/pkg/scraper"
	"github.com/curateur-project/curateur/pkg/scraper/cache"
	"github.com/curateur-project/curateur/pkg/scraper/matcher"
)

// workerLoop pops items until the queue drains or a fatal error stops the
// run. A fatal return closes the queue so sibling workers unblock.
func (r *platformRun) workerLoop(ctx context.Context) error {
	for {
		item, ok := r.queue.Pop()
		if !ok {
			return nil
		}
		err := r.processItem(ctx, item)
		r.taskDone()
		if err != nil {
			r.queue.Close()
			return err
		}
	}
}

// processItem runs one ROM through the full pipeline: resolve a provider
// record, fetch media, merge into the catalog. A non-nil return is fatal
// for the platform; per-item failures are recorded and absorbed.
func (r *platformRun) processItem(ctx context.Context, item *Item) error {
	entity := &item.Entity
	logger := log.With().Str("rom", entity.Basename).Str("platform", r.system.Name).Logger()

	record, score, err := r.resolveRecord(ctx, item)
	if err != nil {
		return r.routeFailure(item, err, &logger)
	}
	if record == nil {
		logger.Info().Msg("no provider record")
		r.summary.AddNotFound(entity.Basename)
		return nil
	}

	if !matcher.Verify(r.verifyMode, entity.Basename, record, r.regions) {
		logger.Warn().Str("candidate", record.Name).Msg("rejecting record that failed name verification")
		r.summary.AddNotFound(entity.Basename)
		return nil
	}

	key := cache.Key(entity.Hash, entity.Basename, entity.Size)
	mediaPaths, mediaHashes := r.fetchMedia(ctx, item, record, key, &logger)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.commitEntry(entity, record, score, mediaPaths, mediaHashes)

	if !r.dryRun && r.svc.checkpoint != nil {
		if err := r.svc.checkpoint.MarkProcessed(r.system.Name, entity.Basename); err != nil {
			logger.Warn().Err(err).Msg("error writing checkpoint")
		}
	}
	r.summary.CountAction(item.Action.Kind)
	logger.Info().Str("action", item.Action.Kind.String()).Msg("item processed")
	return nil
}

// routeFailure converts a pipeline error into scheduler policy: retryables
// requeue at high priority until retries run out, not-found is recorded,
// anything else aborts the platform. Cancellation propagates untouched so
// remaining items drain into the pending list instead of burning retries.
func (r *platformRun) routeFailure(item *Item, err error, logger *zerolog.Logger) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	basename := item.Entity.Basename
	switch scraper.KindOf(err) {
	case scraper.KindRetryable:
		if r.requeue(item) {
			logger.Warn().Err(err).Int("attempt", item.Retries+1).Msg("transient failure, requeued")
			return nil
		}
		if scraper.IsMalformed(err) {
			logger.Warn().Err(err).Msg("provider kept answering garbage, treating as not found")
			r.summary.AddNotFound(basename)
			return nil
		}
		logger.Error().Err(err).Msg("retries exhausted")
		r.summary.AddFailed(basename, err.Error())
		return nil
	case scraper.KindNotFound:
		r.summary.AddNotFound(basename)
		return nil
	case scraper.KindSoftDegrade:
		r.summary.AddError(err.Error())
		return nil
	default:
		return err
	}
}

// resolveRecord finds the provider record for an item: cache first, then a
// hash match, then the free-text search fallback. A nil record with nil
// error means the item was skipped interactively or had no candidates.
func (r *platformRun) resolveRecord(ctx context.Context, item *Item) (*scraper.Record, float64, error) {
	entity := &item.Entity

	key := cache.Key(entity.Hash, entity.Basename, entity.Size)
	if cached, ok := r.cache.Get(key, entity.Size); ok {
		record := cached.Record
		return &record, 1, nil
	}

	if err := r.matchLimiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	record, err := r.svc.provider.Match(ctx, r.matchQuery(entity))
	if err == nil {
		r.matchLimiter.OnSuccess()
		r.cache.Put(key, cache.Entry{
			Record:  *record,
			RomHash: entity.Hash,
			RomSize: entity.Size,
		})
		return record, 1, nil
	}

	switch scraper.KindOf(err) {
	case scraper.KindNotFound:
		return r.searchFallback(ctx, item, key)
	case scraper.KindRetryable:
		r.matchLimiter.OnRateLimited(scraper.RetryAfterOf(err))
		return nil, 0, err
	default:
		return nil, 0, err
	}
}

// searchFallback resolves an unmatched ROM through free-text search, the
// scorer, and optionally the operator.
func (r *platformRun) searchFallback(ctx context.Context, item *Item, key string) (*scraper.Record, float64, error) {
	if !r.searchCfg.EnableFallback {
		return nil, 0, nil
	}
	entity := &item.Entity

	if err := r.searchLimiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	candidates, err := r.svc.provider.Search(ctx,
		r.system.Platform, matcher.Normalize(entity.Basename), r.searchCfg.MaxResults)
	if err != nil {
		if scraper.KindOf(err) == scraper.KindRetryable {
			r.searchLimiter.OnRateLimited(scraper.RetryAfterOf(err))
		}
		return nil, 0, err
	}
	r.searchLimiter.OnSuccess()
	if len(candidates) == 0 {
		return nil, 0, nil
	}

	rom := matcher.Rom{
		Basename: entity.Basename,
		Regions:  entity.Regions,
		Size:     entity.Size,
	}
	best, score := r.scorer.Best(rom, candidates)
	if best != nil && score >= r.searchCfg.Threshold {
		r.cacheSearchResult(key, entity, best)
		return best, score, nil
	}

	if r.searchCfg.Interactive {
		index, ok := r.svc.prompter.SelectCandidate(entity.Basename, candidates)
		if ok {
			picked := candidates[index]
			r.cacheSearchResult(key, entity, &picked)
			return &picked, r.scorer.Score(rom, &picked), nil
		}
	}
	return nil, 0, nil
}

func (r *platformRun) cacheSearchResult(key string, entity *scanner.Entity, record *scraper.Record) {
	r.cache.Put(key, cache.Entry{
		Record:  *record,
		RomHash: entity.Hash,
		RomSize: entity.Size,
	})
}

func (r *platformRun) matchQuery(entity *scanner.Entity) scraper.Query {
	query := scraper.Query{
		PlatformCode: r.system.Platform,
		FileName:     entity.Basename,
		FileSize:     entity.Size,
	}
	switch r.hashAlgo {
	case hasher.CRC32:
		query.CRC32 = entity.Hash
	case hasher.MD5:
		query.MD5 = entity.Hash
	case hasher.SHA1:
		query.SHA1 = entity.Hash
	}
	return query
}

// fetchMedia downloads every requested media type for the item. Each asset
// fails independently; failures become summary errors, never item errors.
func (r *platformRun) fetchMedia(ctx context.Context, item *Item, record *scraper.Record,
	key string, logger *zerolog.Logger,
) (map[string]string, map[string]string) {
	paths := make(map[string]string)
	hashes := make(map[string]string)
	byType := record.MediaByType()
	priorHashes := r.priorMediaHashes(item.Entity.Basename)

	for _, typeDir := range item.Action.MediaTypes {
		if ctx.Err() != nil {
			return paths, hashes
		}
		providerType, ok := media.ProviderFor(typeDir)
		if !ok {
			continue
		}
		candidates := byType[providerType]
		picked := media.Select(candidates, item.Entity.Regions, r.regions)
		if picked == nil {
			logger.Debug().Str("type", typeDir).Msg("no media offered for type")
			continue
		}

		dest := media.DestPath(r.mediaRoot, r.system.Name, typeDir, item.Entity.Basename, picked)
		if r.dryRun {
			logger.Info().Str("type", typeDir).Str("dest", dest).Msg("dry run: media not downloaded")
			paths[typeDir] = dest
			continue
		}

		result, err := r.downloader.Fetch(ctx, *picked, dest, priorHashes[typeDir])
		if err != nil {
			logger.Warn().Err(err).Str("type", typeDir).Msg("media asset failed")
			r.summary.AddError(err.Error())
			continue
		}
		paths[typeDir] = result.Path
		hashes[typeDir] = result.Hash
		r.cache.SetMediaHash(key, typeDir, result.Hash)
	}
	return paths, hashes
}

// commitEntry builds the fresh catalog entry and merges it in under the
// document lock.
func (r *platformRun) commitEntry(entity *scanner.Entity, record *scraper.Record,
	score float64, mediaPaths, mediaHashes map[string]string,
) {
	fresh := r.buildEntry(entity, record, mediaPaths)

	r.docMu.Lock()
	defer r.docMu.Unlock()

	existing := r.doc.Find(fresh.Path)
	merged, change := gamelist.Merge(existing, &fresh, r.strategy)
	r.doc.Upsert(merged)
	r.summary.AddChange(change)

	prov := gamelist.Provenance{
		ScrapedAt:   r.svc.clock.Now().UTC(),
		Source:      gamelist.Database,
		RomHash:     entity.Hash,
		RomSize:     entity.Size,
		MatchScore:  score,
		MediaHashes: mediaHashes,
	}
	if prior, ok := r.prov[entity.Basename]; ok && len(prior.MediaHashes) > 0 {
		if prov.MediaHashes == nil {
			prov.MediaHashes = make(map[string]string, len(prior.MediaHashes))
		}
		for mediaType, hash := range prior.MediaHashes {
			if _, present := prov.MediaHashes[mediaType]; !present {
				prov.MediaHashes[mediaType] = hash
			}
		}
	}
	r.prov[entity.Basename] = prov
}

// priorMediaHashes copies the stored per-type media hashes for an entity,
// so workers can consult provenance without holding the document lock.
func (r *platformRun) priorMediaHashes(basename string) map[string]string {
	r.docMu.Lock()
	defer r.docMu.Unlock()
	prior, ok := r.prov[basename]
	if !ok || len(prior.MediaHashes) == 0 {
		return nil
	}
	hashes := make(map[string]string, len(prior.MediaHashes))
	for mediaType, hash := range prior.MediaHashes {
		hashes[mediaType] = hash
	}
	return hashes
}

// buildEntry maps a provider record onto catalog fields. Descriptions
// follow the language preference; dates follow the region preference.
func (r *platformRun) buildEntry(entity *scanner.Entity, record *scraper.Record,
	mediaPaths map[string]string,
) gamelist.Entry {
	entry := gamelist.Entry{
		ID:        record.ID,
		Source:    gamelist.Database,
		Path:      r.entryPath(entity),
		Name:      record.Name,
		Desc:      pickLocalized(record.Descriptions, r.languages),
		Developer: record.Developer,
		Publisher: record.Publisher,
		Players:   record.Players,
		Genre:     gamelist.JoinGenres(record.Genres),
		Image:     mediaPaths["screenshots"],
		Thumbnail: mediaPaths["covers"],
		Marquee:   mediaPaths["marquees"],
		Video:     mediaPaths["videos"],
	}
	if record.HasRating {
		entry.Rating = gamelist.FormatRating(record.Rating)
	}
	if raw := pickLocalized(record.ReleaseDates, r.regions); raw != "" {
		entry.ReleaseDate = gamelist.FormatReleaseDate(raw)
	}
	return entry
}

// pickLocalized returns the first value matching the preference order,
// then "en", then the lexicographically first key so output is stable.
func pickLocalized(values map[string]string, preferred []string) string {
	if len(values) == 0 {
		return ""
	}
	for _, key := range preferred {
		if value, ok := values[key]; ok && value != "" {
			return value
		}
	}
	if value, ok := values["en"]; ok && value != "" {
		return value
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] != "" {
			return values[key]
		}
	}
	return ""
}
