package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"authload/internal/report"
)

const (
	BucketRuns  = "runs"
	BucketIndex = "index"

	// MaxRuns is how many summaries the store keeps.
	MaxRuns = 100
)

var ErrNotFound = errors.New("run not found")

// Store keeps run summaries in a bbolt file. Runs are keyed by start time so
// cursor order is chronological; the index bucket maps run IDs to those keys.
type Store struct {
	db   *bbolt.DB
	path string
}

// DefaultPath is ~/.authload/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".authload", "history.db"), nil
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{BucketRuns, BucketIndex} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(sum report.Summary) []byte {
	return []byte(fmt.Sprintf("%020d-%s", sum.StartedAt.UnixNano(), sum.ID))
}

// Save stores the summary and drops the oldest runs beyond MaxRuns.
func (s *Store) Save(sum report.Summary) error {
	if sum.ID == "" {
		return errors.New("summary has no id")
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(BucketRuns))
		index := tx.Bucket([]byte(BucketIndex))

		if old := index.Get([]byte(sum.ID)); old != nil {
			if err := runs.Delete(old); err != nil {
				return err
			}
		}
		key := runKey(sum)
		if err := runs.Put(key, data); err != nil {
			return err
		}
		if err := index.Put([]byte(sum.ID), key); err != nil {
			return err
		}
		return prune(runs, index, MaxRuns)
	})
}

func prune(runs, index *bbolt.Bucket, keep int) error {
	c := runs.Cursor()
	n := 0
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	excess := n - keep
	if excess <= 0 {
		return nil
	}
	var stale [][]byte
	for k, v := c.First(); k != nil && len(stale) < excess; k, v = c.Next() {
		var sum report.Summary
		if err := json.Unmarshal(v, &sum); err == nil {
			if err := index.Delete([]byte(sum.ID)); err != nil {
				return err
			}
		}
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := runs.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// List returns stored runs, newest first. Entries that fail to decode are skipped.
func (s *Store) List() ([]report.Summary, error) {
	var items []report.Summary

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketRuns)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item report.Summary
			if err := json.Unmarshal(v, &item); err == nil {
				items = append(items, item)
			}
		}
		return nil
	})
	return items, err
}

func (s *Store) Get(id string) (*report.Summary, error) {
	var item report.Summary
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket([]byte(BucketIndex)).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		v := tx.Bucket([]byte(BucketRuns)).Get(key)
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
