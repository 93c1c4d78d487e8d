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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/curateur-project/curateur/pkg/config"
	"github.com/curateur-project/curateur/pkg/helpers"
	"github.com/curateur-project/curateur/pkg/scraper/screenscraper"
	"github.com/curateur-project/curateur/pkg/service"
)

const (
	exitOK        = 0
	exitFatal     = 1
	exitCancelled = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	platformList := flag.String(
		"platforms",
		"",
		"comma-separated platform names to process (default: all configured)",
	)
	dryRun := flag.Bool(
		"dry-run",
		false,
		"report planned work without writing catalogs or media",
	)
	debug := flag.Bool(
		"debug",
		false,
		"enable debug logging",
	)
	nonInteractive := flag.Bool(
		"non-interactive",
		false,
		"answer all prompts with their safe default",
	)
	configDir := flag.String(
		"config",
		config.DefaultConfigDir(),
		"config directory",
	)
	flag.Parse()

	interactive := !*nonInteractive &&
		isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	var extraWriters []io.Writer
	if interactive {
		extraWriters = append(extraWriters, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if err := helpers.InitLogging(config.DefaultLogDir(), *debug, extraWriters); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return exitFatal
	}

	cfg, err := config.NewConfig(*configDir, config.BaseDefaults)
	if err != nil {
		log.Error().Err(err).Msg("error loading config")
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return exitFatal
	}
	if *debug {
		cfg.SetDebugLogging(true)
	}
	if *dryRun {
		cfg.SetDryRun(true)
	}
	if *platformList != "" {
		var names []string
		for _, name := range strings.Split(*platformList, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				names = append(names, trimmed)
			}
		}
		cfg.SetPlatformSelection(names)
	}

	checkpoint, err := service.OpenCheckpoint(filepath.Join(*configDir, service.CheckpointFile))
	if err != nil {
		log.Error().Err(err).Msg("error opening checkpoint db")
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return exitFatal
	}
	defer func() {
		if closeErr := checkpoint.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing checkpoint db")
		}
	}()

	var prompter service.Prompter
	if interactive {
		prompter = service.NewTerminalPrompter(os.Stdin, os.Stderr)
	} else {
		prompter = service.NewNonInteractivePrompter()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := service.New(service.Options{
		Config:     cfg,
		Provider:   screenscraper.NewClient(cfg),
		Prompter:   prompter,
		Checkpoint: checkpoint,
	})

	summaries, err := svc.Run(ctx)
	for _, summary := range summaries {
		fmt.Fprint(os.Stdout, summary.Render())
		fmt.Fprintln(os.Stdout)
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		log.Warn().Msg("run cancelled by operator")
		fmt.Fprintln(os.Stderr, "Cancelled. Progress was checkpointed; rerun to resume.")
		return exitCancelled
	default:
		log.Error().Err(err).Msg("run failed")
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return exitFatal
	}
}
