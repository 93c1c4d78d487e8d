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
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/curateur-project/curateur/pkg/config"
	"github.com/curateur-project/curateur/pkg/gamelist"
	"github.com/curateur-project/curateur/pkg/helpers"
	"github.com/curateur-project/curateur/pkg/helpers/syncutil"
	"github.com/curateur-project/curateur/pkg/media"
	"github.com/curateur-project/curateur/pkg/scanner"
	"github.com/curateur-project/curateur/pkg/scanner/hasher"
	"github.com/curateur-project/curateur/pkg/scraper"
	"github.com/curateur-project/curateur/pkg/scraper/cache"
	"github.com/curateur-project/curateur/pkg/scraper/matcher"
	"github.com/curateur-project/curateur/pkg/scraper/throttle"
	"github.com/curateur-project/curateur/pkg/shared/httpclient"
	"github.com/curateur-project/curateur/pkg/systemdefs"
)

// CatalogFile is the per-platform catalog document name.
const CatalogFile = "gamelist.xml"

// Options wires a Service together. Fs, Clock and Prompter default to the
// real filesystem, the real clock and the non-interactive prompter.
type Options struct {
	Config     *config.Instance
	Provider   scraper.Provider
	Fs         afero.Fs
	Clock      clockwork.Clock
	Prompter   Prompter
	Checkpoint *Checkpoint
}

// Service owns one scraping run: component lifetimes, the platform loop,
// and the final summaries.
type Service struct {
	cfg        *config.Instance
	provider   scraper.Provider
	fs         afero.Fs
	clock      clockwork.Clock
	prompter   Prompter
	checkpoint *Checkpoint
}

// New builds a Service from options.
func New(opts Options) *Service {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	prompter := opts.Prompter
	if prompter == nil {
		prompter = NewNonInteractivePrompter()
	}
	return &Service{
		cfg:        opts.Config,
		provider:   opts.Provider,
		fs:         fs,
		clock:      clock,
		prompter:   prompter,
		checkpoint: opts.Checkpoint,
	}
}

// Run executes the platform loop sequentially. The returned summaries cover
// every platform that started, including partially-processed ones on
// cancellation. The error is non-nil for fatal conditions and for operator
// cancellation.
func (s *Service) Run(ctx context.Context) ([]*Summary, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	paths := s.cfg.PathsCfg()
	systems, err := systemdefs.ParseSystems(s.fs, paths.PlatformIndex)
	if err != nil {
		return nil, err
	}
	systems, err = systemdefs.FilterByName(systems, s.cfg.PlatformSelection())
	if err != nil {
		return nil, err
	}

	var summaries []*Summary
	for i := range systems {
		summary, err := s.runPlatform(ctx, &systems[i])
		if summary != nil {
			summaries = append(summaries, summary)
		}
		if err != nil {
			return summaries, err
		}
		if ctx.Err() != nil {
			return summaries, fmt.Errorf("run cancelled: %w", ctx.Err())
		}
	}
	return summaries, nil
}

// platformRun carries the per-platform state shared by workers.
type platformRun struct {
	svc    *Service
	system *systemdefs.System

	romDir      string
	catalogDir  string
	catalogPath string
	mediaRoot   string
	mediaDir    string

	docMu syncutil.Mutex
	doc   *gamelist.Document
	prov  map[string]gamelist.Provenance

	cache         *cache.Store
	matchLimiter  *throttle.Limiter
	searchLimiter *throttle.Limiter
	downloader    *media.Downloader
	scorer        *matcher.Scorer
	verifyMode    matcher.VerifyMode
	strategy      gamelist.Strategy

	queue   *Queue
	summary *Summary

	// outstanding counts queued plus in-flight items; the queue closes
	// when it reaches zero so retried items can still re-enter.
	outstanding atomic.Int64

	regions     []string
	languages   []string
	enabledDirs []string
	hashAlgo    hasher.Algorithm
	hashCap     int64
	maxRetries  int
	dryRun      bool
	searchCfg   config.Search
}

func (s *Service) runPlatform(ctx context.Context, system *systemdefs.System) (*Summary, error) {
	paths := s.cfg.PathsCfg()
	scraping := s.cfg.ScrapingCfg()
	mediaCfg := s.cfg.MediaCfg()
	apiCfg := s.cfg.APICfg()
	runtime := s.cfg.RuntimeCfg()

	summary := NewSummary(system.Name, s.clock.Now())
	log.Info().Str("platform", system.Name).Msg("starting platform")

	strategy, err := gamelist.ParseStrategy(scraping.MergePolicy)
	if err != nil {
		return summary, err
	}
	verifyMode, err := matcher.ParseVerifyMode(scraping.NameVerification)
	if err != nil {
		return summary, err
	}
	validationMode, err := media.ParseValidationMode(mediaCfg.Validation)
	if err != nil {
		return summary, err
	}
	hashAlgo, err := hasher.ParseAlgorithm(runtime.HashAlgorithm)
	if err != nil {
		return summary, err
	}

	run := &platformRun{
		svc:         s,
		system:      system,
		romDir:      system.ResolveRomPath(paths.RomRoot),
		catalogDir:  filepath.Join(paths.CatalogRoot, system.Name),
		mediaRoot:   paths.MediaRoot,
		mediaDir:    filepath.Join(paths.MediaRoot, system.Name),
		prov:        make(map[string]gamelist.Provenance),
		scorer:      &matcher.Scorer{PreferredRegions: s.cfg.Regions()},
		verifyMode:  verifyMode,
		strategy:    strategy,
		queue:       NewQueue(),
		summary:     summary,
		regions:     s.cfg.Regions(),
		languages:   s.cfg.Languages(),
		enabledDirs: mediaCfg.EnabledTypes,
		hashAlgo:    hashAlgo,
		hashCap:     runtime.HashSizeCapBytes,
		maxRetries:  apiCfg.MaxRetries,
		dryRun:      runtime.DryRun,
		searchCfg:   s.cfg.SearchCfg(),
	}
	run.catalogPath = filepath.Join(run.catalogDir, CatalogFile)

	doc, err := gamelist.Parse(s.fs, run.catalogPath)
	if err != nil {
		return summary, err
	}
	run.doc = doc
	run.prov = gamelist.LoadProvenance(s.fs, gamelist.ProvenancePath(run.catalogPath))

	scanResult, err := scanner.Scan(s.fs, run.romDir, system.Extensions)
	if err != nil {
		return summary, err
	}
	summary.SetScanned(len(scanResult.Entities))
	for _, conflict := range scanResult.Conflicts {
		summary.AddError("scan conflict: " + conflict.Reason)
		log.Warn().
			Str("basename", conflict.Basename).
			Str("reason", conflict.Reason).
			Msg("inventory conflict")
	}

	// integrity gate before anything mutates the catalog
	if err := run.checkIntegrity(scraping.IntegrityThreshold, scanResult.Entities); err != nil {
		return summary, err
	}
	run.cleanupDisabledMedia(mediaCfg.EnabledTypes)

	run.hashEntities(scanResult.Entities)

	// authenticate once per platform to pick up server caps
	userInfo, err := s.provider.Authenticate(ctx)
	if err != nil {
		return summary, err
	}
	run.initLimiters(apiCfg, userInfo)
	workers := workerCount(apiCfg.Override.MaxWorkers, userInfo.MaxThreads)

	run.cache = cache.Open(s.fs, filepath.Join(run.catalogDir, ".cache", cache.FileName), s.clock)
	run.downloader = media.NewDownloader(media.Options{
		Fs:                s.fs,
		Client:            httpclient.NewClientWithTimeout(time.Duration(apiCfg.RequestTimeoutS) * time.Second),
		Mode:              validationMode,
		MinImageSide:      mediaCfg.MinImageSide,
		SkipExisting:      mediaCfg.SkipExistingMedia,
		HashAlgo:          hashAlgo,
		RequestsPerSecond: mediaCfg.DownloadRatePerS,
	})

	enqueued := run.enqueue(scanResult.Entities, scraping)
	if enqueued == 0 {
		run.queue.Close()
	}

	log.Info().
		Int("entities", len(scanResult.Entities)).
		Int("enqueued", enqueued).
		Int("workers", workers).
		Str("platform", system.Name).
		Msg("dispatching work")

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			return run.workerLoop(groupCtx)
		})
	}
	runErr := group.Wait()

	// anything still queued at cancellation goes into the summary
	if pending := run.queue.Drain(); len(pending) > 0 {
		names := make([]string, 0, len(pending))
		for _, item := range pending {
			names = append(names, item.Entity.Basename)
		}
		summary.SetPending(names)
	}

	complete := runErr == nil && ctx.Err() == nil
	if err := run.finalize(complete); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			log.Error().Err(err).Msg("error finalizing platform")
		}
	}

	summary.Finish(s.clock.Now())
	if err := s.writeArtifacts(run); err != nil {
		log.Error().Err(err).Msg("error writing summary artifacts")
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return summary, runErr
	}
	if ctx.Err() != nil {
		return summary, fmt.Errorf("platform cancelled: %w", ctx.Err())
	}
	return summary, nil
}

// checkIntegrity runs the pre-scrape gate. When the share of catalog
// entries whose ROM still exists falls below the threshold, the operator
// is offered a prune: orphan entries leave the catalog and their media is
// parked under CLEANUP. Declining leaves the catalog untouched; the run
// proceeds either way.
func (r *platformRun) checkIntegrity(threshold float64, entities []scanner.Entity) error {
	present := make(map[string]bool, len(entities))
	for i := range entities {
		present[filepath.Base(entities[i].Path)] = true
	}
	report := gamelist.CheckPresence(r.doc, present)
	if report.OK(threshold) || len(report.Orphans) == 0 {
		return nil
	}

	log.Warn().
		Str("platform", r.system.Name).
		Float64("ratio", report.Ratio()).
		Float64("threshold", threshold).
		Int("orphans", len(report.Orphans)).
		Msg("catalog entries without ROMs exceed threshold")

	if !r.svc.prompter.ConfirmCleanup(r.system.Name, len(report.Orphans)) {
		return nil
	}
	if r.dryRun {
		log.Info().Int("orphans", len(report.Orphans)).Msg("dry run: orphan prune skipped")
		return nil
	}

	refs := r.doc.RemoveEntries(report.Orphans, r.catalogDir)
	for _, orphan := range report.Orphans {
		stripped := strings.TrimPrefix(orphan, "./")
		delete(r.prov, stripped)
		delete(r.prov, helpers.Stem(stripped))
	}
	var files []string
	for _, ref := range refs {
		if helpers.FileExists(r.svc.fs, ref) {
			files = append(files, ref)
		}
	}
	moved, err := gamelist.MoveOrphans(r.svc.fs, files, r.mediaRoot, r.system.Name)
	r.summary.SetCleanupMoves(moved)
	if err != nil {
		return err
	}
	log.Info().
		Int("pruned", len(report.Orphans)).
		Int("media_moved", moved).
		Str("platform", r.system.Name).
		Msg("pruned orphan catalog entries")
	return nil
}

// cleanupDisabledMedia offers to park media directories whose type is no
// longer in the enabled set.
func (r *platformRun) cleanupDisabledMedia(enabled []string) {
	enabledSet := make(map[string]bool, len(enabled))
	for _, dir := range enabled {
		enabledSet[dir] = true
	}
	for _, typeDir := range media.Dirs() {
		if enabledSet[typeDir] {
			continue
		}
		dirPath := filepath.Join(r.mediaDir, typeDir)
		entries, err := afero.ReadDir(r.svc.fs, dirPath)
		if err != nil || len(entries) == 0 {
			continue
		}
		var files []string
		for _, entry := range entries {
			if !entry.IsDir() {
				files = append(files, filepath.Join(dirPath, entry.Name()))
			}
		}
		if len(files) == 0 || !r.svc.prompter.ConfirmMediaCleanup(typeDir, len(files)) {
			continue
		}
		if r.dryRun {
			log.Info().Str("type", typeDir).Msg("dry run: media cleanup skipped")
			continue
		}
		moved, err := gamelist.MoveOrphans(r.svc.fs, files, r.mediaRoot, r.system.Name)
		if err != nil {
			log.Error().Err(err).Str("type", typeDir).Msg("error moving disabled media")
		}
		r.summary.SetCleanupMoves(moved)
	}
}

func (r *platformRun) hashEntities(entities []scanner.Entity) {
	for i := range entities {
		entity := &entities[i]
		identity, err := hasher.Compute(r.svc.fs, entity.PrimaryFile, r.hashAlgo, r.hashCap)
		if err != nil {
			r.summary.AddError("hash failure: " + entity.Basename)
			log.Warn().Err(err).Str("rom", entity.Basename).Msg("error hashing ROM")
			continue
		}
		entity.Hash = identity.Hash
		entity.Size = identity.Size
	}
}

func (r *platformRun) initLimiters(apiCfg config.API, userInfo *scraper.UserInfo) {
	build := func() *throttle.Limiter {
		limiter := throttle.New(throttle.Options{
			RequestsPerMinute: apiCfg.Override.RequestsPerMinute,
			DailyQuota:        apiCfg.Override.DailyQuota,
			RetryDelay:        time.Duration(apiCfg.InitialRetryDelayS) * time.Second,
			QuotaWarningRatio: apiCfg.QuotaWarningRatio,
			Clock:             r.svc.clock,
		})
		limiter.ApplyCaps(userInfo)
		return limiter
	}
	r.matchLimiter = build()
	r.searchLimiter = build()
}

// enqueue evaluates every entity and queues the ones that need work.
func (r *platformRun) enqueue(entities []scanner.Entity, scraping config.Scraping) int {
	policy, err := ParseUpdatePolicy(scraping.UpdatePolicy)
	if err != nil {
		policy = UpdateChangedOnly
	}

	enqueued := 0
	for i := range entities {
		entity := entities[i]

		if r.svc.checkpoint != nil {
			processed, err := r.svc.checkpoint.IsProcessed(r.system.Name, entity.Basename)
			if err == nil && processed {
				r.summary.CountAction(ActionSkip)
				log.Debug().Str("rom", entity.Basename).Msg("already processed, resuming past it")
				continue
			}
		}

		action := Evaluate(EvalInput{
			Entry:        r.doc.Find(r.entryPath(&entity)),
			Provenance:   r.provenanceFor(entity.Basename),
			CurrentHash:  entity.Hash,
			EnabledMedia: r.enabledDirs,
			PresentMedia: r.presentMedia(&entity),
			SkipScraped:  scraping.SkipScraped,
			Policy:       policy,
		})
		if action.Kind == ActionSkip {
			r.summary.CountAction(ActionSkip)
			continue
		}

		r.outstanding.Add(1)
		r.queue.Push(&Item{Entity: entity, Action: action, Priority: PriorityNormal})
		enqueued++
	}
	return enqueued
}

// requeue puts a retryable item back at high priority. It returns false
// when retries are exhausted.
func (r *platformRun) requeue(item *Item) bool {
	if item.Retries >= r.maxRetries {
		return false
	}
	r.outstanding.Add(1)
	r.queue.Push(&Item{
		Entity:   item.Entity,
		Action:   item.Action,
		Priority: PriorityHigh,
		Retries:  item.Retries + 1,
	})
	return true
}

// taskDone marks one item fully resolved; the last one closes the queue.
func (r *platformRun) taskDone() {
	if r.outstanding.Add(-1) == 0 {
		r.queue.Close()
	}
}

func (r *platformRun) provenanceFor(basename string) *gamelist.Provenance {
	if prov, ok := r.prov[basename]; ok {
		return &prov
	}
	return nil
}

// presentMedia lists the enabled type directories that already hold a file
// for this entity.
func (r *platformRun) presentMedia(entity *scanner.Entity) []string {
	var present []string
	for _, typeDir := range r.enabledDirs {
		dirPath := filepath.Join(r.mediaDir, typeDir)
		entries, err := afero.ReadDir(r.svc.fs, dirPath)
		if err != nil {
			continue
		}
		prefix := entity.Basename + "."
		for _, fileEntry := range entries {
			if !fileEntry.IsDir() && strings.HasPrefix(fileEntry.Name(), prefix) {
				present = append(present, typeDir)
				break
			}
		}
	}
	return present
}

// entryPath is how this entity appears in the catalog's path field.
func (r *platformRun) entryPath(entity *scanner.Entity) string {
	return "./" + filepath.Base(entity.Path)
}

// finalize prunes entries whose ROMs vanished, then commits the catalog,
// provenance and cache. Nothing is written in dry-run mode. The checkpoint
// resets only after a complete, committed platform.
func (r *platformRun) finalize(complete bool) error {
	r.docMu.Lock()
	defer r.docMu.Unlock()

	kept := r.doc.Games[:0]
	for i := range r.doc.Games {
		romPath := filepath.Join(r.romDir, strings.TrimPrefix(r.doc.Games[i].Path, "./"))
		if exists, _ := afero.Exists(r.svc.fs, romPath); exists {
			kept = append(kept, r.doc.Games[i])
		} else {
			log.Info().Str("path", r.doc.Games[i].Path).Msg("dropping entry for missing ROM")
		}
	}
	r.doc.Games = kept

	if r.doc.Provider == nil {
		r.doc.Provider = &gamelist.Provider{
			System:   r.system.Fullname,
			Software: gamelist.Software,
			Database: gamelist.Database,
			Web:      gamelist.Web,
		}
	}

	if r.cache != nil {
		hits, misses := r.cache.Stats()
		r.summary.SetCacheStats(hits, misses)
	}
	if r.matchLimiter != nil {
		r.summary.SetThrottleStats("match", r.matchLimiter.Stats())
	}
	if r.searchLimiter != nil {
		r.summary.SetThrottleStats("search", r.searchLimiter.Stats())
	}

	if r.dryRun {
		log.Info().Str("platform", r.system.Name).Msg("dry run: catalog not written")
		return nil
	}

	if err := gamelist.Write(r.svc.fs, r.catalogPath, r.doc); err != nil {
		return err
	}
	if err := gamelist.SaveProvenance(r.svc.fs,
		gamelist.ProvenancePath(r.catalogPath), r.prov); err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Save(); err != nil {
			return err
		}
	}
	if complete && r.svc.checkpoint != nil {
		if err := r.svc.checkpoint.ResetPlatform(r.system.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeArtifacts(run *platformRun) error {
	if err := s.fs.MkdirAll(run.catalogDir, 0o755); err != nil {
		return fmt.Errorf("error creating catalog dir: %w", err)
	}
	if err := run.summary.Write(s.fs, run.catalogDir); err != nil {
		return err
	}
	return run.summary.WriteNotFound(s.fs, run.catalogDir)
}

// workerCount derives the pool size: the provider-reported thread cap
// bounded by the operator override, floored at one worker.
func workerCount(override, providerCap int) int {
	count := providerCap
	if count <= 0 {
		count = 1
	}
	if override > 0 && override < count {
		count = override
	}
	if count < 1 {
		count = 1
	}
	return count
}
