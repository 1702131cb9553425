// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/resource"
)

// DirEnv overrides where snapshots are kept.
const DirEnv = "VCARD_SNAPSHOT_DIR"

// ErrNone is returned when no snapshot was saved for a query.
var ErrNone = errors.New("no snapshot saved")

// Dir resolves the base snapshot directory.
// Precedence:
//  1. VCARD_SNAPSHOT_DIR, if set and non-empty
//  2. os.UserCacheDir()/vcardctl/snapshots
//
// Returns ("", false) if a base cannot be resolved.
func Dir() (string, bool) {
	if c, ok := os.LookupEnv(DirEnv); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "vcardctl", "snapshots"), true
	}
	return "", false
}

// Purge removes snapshots older than maxAge. A non-positive maxAge or a
// missing directory is a no-op.
func Purge(maxAge time.Duration) error {
	if maxAge <= 0 {
		log.Debug("snapshot cleaning disabled")
		return nil
	}
	base, ok := Dir()
	if !ok {
		return nil
	}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || time.Since(info.ModTime()) <= maxAge {
			return nil
		}
		if err := os.Remove(path); err == nil {
			log.Debugf("removed snapshot %s", path)
		} else {
			log.WithError(err).Warnf("failed to remove snapshot %s", path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to purge snapshots: %w", err)
	}
	return nil
}

// Store keeps one snapshot per query. Entries live under
// <base>/<base id>/<resource>/<md5 of key>; the file's modification time is
// when it was taken.
type Store struct {
	dir string
}

// NewStore returns the Store of baseID.
func NewStore(baseID string) (*Store, error) {
	if baseID == "" {
		return nil, errors.New("snapshots need a base id")
	}
	base, ok := Dir()
	if !ok {
		return nil, fmt.Errorf("no snapshot directory, set %s", DirEnv)
	}
	return &Store{dir: filepath.Join(base, baseID)}, nil
}

func (s *Store) path(res resource.Key, key string) string {
	return filepath.Join(s.dir, string(res), encodeKey(key))
}

// Load returns the records saved under key and when they were saved.
func (s *Store) Load(res resource.Key, key string) ([]airtable.Record, time.Time, error) {
	p := s.path(res, key)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, fmt.Errorf("%w for %s", ErrNone, res)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var recs []airtable.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse snapshot %s: %w", p, err)
	}
	return recs, info.ModTime(), nil
}

// Save writes recs under key, replacing an earlier snapshot. Creates
// directories as needed.
func (s *Store) Save(res resource.Key, key string, recs []airtable.Record) error {
	if recs == nil {
		recs = []airtable.Record{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	p := s.path(res, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(p, b, os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Debugf("saved %d records of %s to %s", len(recs), res, p)
	return nil
}

// encodeKey hashes k with MD5 and returns the hex string.
func encodeKey(k string) string {
	h := md5.New()
	_, _ = h.Write([]byte(k))
	return hex.EncodeToString(h.Sum(nil))
}
