// Package repository persists ranking sessions. A Store writes the whole
// session as one JSON value under a single key of a pluggable key/value
// Backend (file, SQLite, Redis or memory).
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/rating"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/okian/pairrank/pkg/metrics"
)

// Store provides read/write access to the saved session.
type Store interface {
	// Load returns the saved snapshot, ErrNotFound when there is none and
	// ErrCorrupt when it cannot be decoded. Missing item fields are filled
	// with defaults.
	Load(ctx context.Context) (model.Snapshot, error)
	// Save overwrites the saved snapshot.
	Save(ctx context.Context, snap model.Snapshot) error
	// Reset removes the snapshot and the welcome flag.
	Reset(ctx context.Context) error

	WelcomeSeen(ctx context.Context) (bool, error)
	MarkWelcomeSeen(ctx context.Context) error

	// Backend names the underlying key/value backend.
	Backend() string
	Close() error
}

// Backend is a minimal byte-oriented key/value store.
type Backend interface {
	Name() string
	// Get returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type kvStore struct {
	backend    Backend
	stateKey   string
	welcomeKey string
	minUncert  float64
	log        logger.Logger
}

// New creates a Store over b.
func New(b Backend, opts ...Option) Store {
	s := &kvStore{
		backend:    b,
		stateKey:   DefaultStateKey,
		welcomeKey: DefaultWelcomeKey,
		minUncert:  rating.DefaultMinUncertainty,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *kvStore) Backend() string { return s.backend.Name() }

// observe records latency and failures of one backend operation.
func (s *kvStore) observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(s.backend.Name(), op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(s.backend.Name(), op)
	}
}

func (s *kvStore) Load(ctx context.Context) (snap model.Snapshot, err error) {
	start := time.Now()
	defer func() { s.observe("load", start, err) }()

	data, err := s.backend.Get(ctx, s.stateKey)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap, migrated, err := decodeSnapshot(data, s.minUncert)
	if err != nil {
		s.log.Warn(ctx, "saved session could not be decoded",
			logger.String("backend", s.backend.Name()),
			logger.Error(err),
		)
		return model.Snapshot{}, err
	}
	if migrated > 0 {
		s.log.Info(ctx, "migrated saved session", logger.Int("items", migrated))
	}
	return snap, nil
}

func (s *kvStore) Save(ctx context.Context, snap model.Snapshot) (err error) {
	start := time.Now()
	defer func() { s.observe("save", start, err) }()

	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.backend.Set(ctx, s.stateKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *kvStore) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.observe("reset", start, err) }()

	if err := s.backend.Delete(ctx, s.stateKey, s.welcomeKey); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	s.log.Info(ctx, "saved session cleared", logger.String("backend", s.backend.Name()))
	return nil
}

func (s *kvStore) WelcomeSeen(ctx context.Context) (seen bool, err error) {
	start := time.Now()
	defer func() { s.observe("welcome_get", start, err) }()

	v, err := s.backend.Get(ctx, s.welcomeKey)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(v) == "true", nil
}

func (s *kvStore) MarkWelcomeSeen(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.observe("welcome_set", start, err) }()
	return s.backend.Set(ctx, s.welcomeKey, []byte("true"))
}

func (s *kvStore) Close() error {
	return s.backend.Close()
}
