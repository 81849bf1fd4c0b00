package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/simdex/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	defaultClientName = "simdex"
	// defaultBatchSize bounds one DoMulti pipeline during bulk reads and
	// deletes; a full corpus listing is split into pipelines of this size.
	defaultBatchSize = 256

	readyInitialDelay = 50 * time.Millisecond
	readyMaxDelay     = time.Second
)

// Config describes a Redis or Valkey deployment. Only core commands and EVAL
// are issued, so either server works without modules.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ClientName is reported in CLIENT LIST. Defaults to "simdex".
	ClientName string
	// BatchSize caps commands per pipeline and the SCAN COUNT hint.
	BatchSize int
}

// Store keeps simdex keys in Redis or Valkey through rueidis.
type Store struct {
	client rueidis.Client
	batch  int
}

// NewStore dials the server described by cfg.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("redis: batch size must not be negative, got %d", cfg.BatchSize)
	}
	name := cfg.ClientName
	if name == "" {
		name = defaultClientName
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return newStore(client, cfg.BatchSize), nil
}

func newStore(client rueidis.Client, batch int) *Store {
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Store{client: client, batch: batch}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings right away and then with doubling pauses until the
// server answers or timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := readyInitialDelay
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("store not ready after %s: %w", timeout, errors.Join(ctx.Err(), err))
		case <-t.C:
		}
		delay = min(delay*2, readyMaxDelay)
	}
}

// chunks splits n items into [start, end) windows of at most s.batch.
func (s *Store) chunks(n int, fn func(start, end int) error) error {
	for start := 0; start < n; start += s.batch {
		if err := fn(start, min(start+s.batch, n)); err != nil {
			return err
		}
	}
	return nil
}
