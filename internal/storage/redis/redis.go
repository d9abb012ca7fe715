// Package redis stores the ledger in Redis. Multi-key updates use optimistic
// locking: every commit bumps a version key that all updates WATCH.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"bankdash/internal/storage"
)

const (
	defaultPrefix = "bankdash"
	maxRetries    = 10
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	client *goredis.Client
	prefix string
}

// New connects and pings the server.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis store: address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis store: connection failed: %w", err)
	}
	s := NewWithClient(client, cfg.Prefix)
	slog.InfoContext(ctx, "Redis store ready", "addr", cfg.Addr, "prefix", s.prefix)
	return s, nil
}

func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k string) string { return s.prefix + ":" + k }

func (s *Store) versionKey() string { return s.prefix + ":__version" }

func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return true, storage.Decode(key, raw, dst)
}

func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *goredis.Tx) error {
			staged := storage.NewStaging(func(key string) ([]byte, bool, error) {
				raw, err := rtx.Get(ctx, s.key(key)).Bytes()
				if errors.Is(err, goredis.Nil) {
					return nil, false, nil
				}
				if err != nil {
					return nil, false, fmt.Errorf("redis get %q: %w", key, err)
				}
				return raw, true, nil
			})
			if err := fn(staged); err != nil {
				return err
			}
			if !staged.Dirty() {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				if err := staged.Writes(func(key string, raw []byte) error {
					return pipe.Set(ctx, s.key(key), raw, 0).Err()
				}); err != nil {
					return err
				}
				return pipe.Incr(ctx, s.versionKey()).Err()
			})
			return err
		}, s.versionKey())

		if errors.Is(err, goredis.TxFailedErr) {
			slog.DebugContext(ctx, "Redis update conflict, retrying", "attempt", attempt+1)
			continue
		}
		return err
	}
	return storage.ErrConflict
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
