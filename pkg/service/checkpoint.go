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
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// CheckpointFile is the resume database kept in the config directory.
const CheckpointFile = "checkpoint.db"

// Checkpoint records which ROMs finished processing, so a cancelled run
// resumes where it stopped instead of re-spending API quota. One bucket
// per platform, keyed by display basename.
type Checkpoint struct {
	db *bolt.DB
}

// OpenCheckpoint opens (or creates) the resume database at path.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("error creating checkpoint dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("error opening checkpoint db: %w", err)
	}
	return &Checkpoint{db: db}, nil
}

// MarkProcessed records that a ROM completed, with the time it finished.
func (c *Checkpoint) MarkProcessed(platform, basename string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(platform))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(basename), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("error writing checkpoint: %w", err)
	}
	return nil
}

// IsProcessed reports whether a ROM already completed in a previous
// (possibly interrupted) run.
func (c *Checkpoint) IsProcessed(platform, basename string) (bool, error) {
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(platform))
		if bucket == nil {
			return nil
		}
		found = bucket.Get([]byte(basename)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error reading checkpoint: %w", err)
	}
	return found, nil
}

// ResetPlatform clears a platform's checkpoint marks, typically after its
// catalog was written successfully.
func (c *Checkpoint) ResetPlatform(platform string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(platform)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(platform))
	})
	if err != nil {
		return fmt.Errorf("error resetting checkpoint: %w", err)
	}
	return nil
}

// Close releases the database.
func (c *Checkpoint) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("error closing checkpoint db: %w", err)
	}
	return nil
}
