// Package storage provides durable key-value storage backed by badger.
package storage

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	badger "github.com/dgraph-io/badger/v4"
	zlog "github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Config represents storage configuration.
type Config struct {
	Path     string // Directory holding the database files
	InMemory bool   // Keep everything in memory (nothing survives a restart)
}

// Store is a string-keyed byte store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("storage path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open storage at %q", cfg.Path)
	}

	zlog.Debug().Msgf("storage opened: path=%s in_memory=%v", cfg.Path, cfg.InMemory)
	return &Store{db: db}, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read key %q", key)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write key %q", key)
	}
	return nil
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	zlog.Error().Msg(badgerMsg(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	zlog.Warn().Msg(badgerMsg(format, args...))
}

// Badger is chatty at info level.
func (badgerLogger) Infof(format string, args ...interface{}) {
	zlog.Debug().Msg(badgerMsg(format, args...))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	zlog.Trace().Msg(badgerMsg(format, args...))
}

func badgerMsg(format string, args ...interface{}) string {
	return "badger: " + strings.TrimSpace(fmt.Sprintf(format, args...))
}
