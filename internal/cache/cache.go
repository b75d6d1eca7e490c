package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const DefaultTTL = 24 * time.Hour

// Store is a JSON value cache on Badger with per-entry expiry.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

type options struct {
	inMemory bool
	ttl      time.Duration
}

type Option func(*options)

// WithInMemory keeps the cache in memory only; dir is ignored.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// Open opens (or creates) a cache under dir.
func Open(dir string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	bo := badger.DefaultOptions(dir)
	if o.inMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	}
	bo = bo.WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	logger.Info("cache.open", "dir", dir, "in_memory", o.inMemory, "ttl", o.ttl.String())
	return &Store{db: db, ttl: o.ttl, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key hashes parts into a fixed-length cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get decodes the value under key into v. It reports false on a miss or an expired entry.
func (s *Store) Get(key string, v any) (bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

// Set stores v as JSON under key with the store's TTL.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), raw)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// badgerLogger routes badger's internal logging to slog; info chatter goes to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, args ...interface{}) {
	l.logger.Error("badger", "msg", fmt.Sprintf(f, args...))
}

func (l badgerLogger) Warningf(f string, args ...interface{}) {
	l.logger.Warn("badger", "msg", fmt.Sprintf(f, args...))
}

func (l badgerLogger) Infof(f string, args ...interface{}) {
	l.logger.Debug("badger", "msg", fmt.Sprintf(f, args...))
}

func (l badgerLogger) Debugf(f string, args ...interface{}) {
	l.logger.Debug("badger", "msg", fmt.Sprintf(f, args...))
}
