// Package history keeps a log of init and verify runs in a badger database.
//
// Each run is stored under run/<timestamp>/<id>, so key order is
// chronological, with an id/<id> pointer for lookup by id. Values are JSON
// compressed with zstd.
package history

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/jamesainslie/siv/pkg/siv/logging"
)

var logger = logging.Get("history")

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("history record not found")

const (
	runPrefix = "run/"
	idPrefix  = "id/"

	// keyTimeLayout is RFC 3339 with fixed-width nanoseconds so keys sort
	// in time order.
	keyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store wraps Badger for run history.
type Store struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates a history store in the directory at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.dec.Close()
	_ = s.enc.Close()
	return s.db.Close()
}

// Put stores a run record. A missing ID or StartedAt is filled in.
func (s *Store) Put(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	value, err := s.encode(rec)
	if err != nil {
		return err
	}
	key := runKey(rec)

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set([]byte(idPrefix+rec.ID), key)
	})
	if err != nil {
		return fmt.Errorf("failed to store run %s: %w", rec.ID, err)
	}

	logger.Debug("run recorded", "id", rec.ID, "mode", rec.Mode, "root", rec.Root)
	return nil
}

// Get returns the run with the given id.
func (s *Store) Get(id string) (*Record, error) {
	var rec *Record

	err := s.db.View(func(txn *badger.Txn) error {
		ptr, err := txn.Get([]byte(idPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		key, err := ptr.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			rec, err = s.decode(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns runs newest first. If limit is 0 or negative, all runs are
// returned.
func (s *Store) List(limit int) ([]Record, error) {
	records := []Record{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek finds the last key <= the target.
		for it.Seek([]byte(runPrefix + "\xff")); it.ValidForPrefix([]byte(runPrefix)); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, err := s.decode(val)
				if err != nil {
					return err
				}
				records = append(records, *rec)
				return nil
			})
			if err != nil {
				return err
			}
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Prune removes runs started before cutoff and returns how many were
// removed.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	bound := []byte(runPrefix + cutoff.UTC().Format(keyTimeLayout))
	removed := 0

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, bound) >= 0 {
				break
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if id := idFromKey(key); id != "" {
				if err := txn.Delete([]byte(idPrefix + id)); err != nil {
					return err
				}
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}

	if removed > 0 {
		logger.Info("history pruned", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

func (s *Store) encode(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}
	return s.enc.EncodeAll(data, nil), nil
}

func (s *Store) decode(val []byte) (*Record, error) {
	data, err := s.dec.DecodeAll(val, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress run: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &rec, nil
}

func runKey(rec *Record) []byte {
	return []byte(runPrefix + rec.StartedAt.UTC().Format(keyTimeLayout) + "/" + rec.ID)
}

func idFromKey(key []byte) string {
	k := string(key)
	i := strings.LastIndexByte(k, '/')
	if i < 0 || i == len(k)-1 {
		return ""
	}
	return k[i+1:]
}
