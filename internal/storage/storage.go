package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides local DB/cache abstraction.

// Store tracks published observation IDs.
type Store interface {
	Close() error
	SeenObservation(id string) (bool, error)
	MarkObservation(id string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ObservationTTL  time.Duration
	CleanupInterval time.Duration
}

const (
	defaultObservationTTL  = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ObservationTTL <= 0 {
		opts.ObservationTTL = defaultObservationTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                         { return nil }
func (noopStore) SeenObservation(string) (bool, error) { return false, nil }
func (noopStore) MarkObservation(string) error         { return nil }
