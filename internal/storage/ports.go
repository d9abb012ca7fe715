// Package storage defines the key-value store the ledger lives in and the
// SQLite implementation of it. Other backends live in sub-packages.
//
// Values are JSON documents, so every backend persists the same shape.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Store keys.
const (
	KeyAccounts     = "accounts"
	KeyTransactions = "transactions"
	KeySeeded       = "seeded"
)

// ErrConflict is returned when an optimistic update lost against a
// concurrent writer more times than the backend retries.
var ErrConflict = errors.New("storage: concurrent update conflict")

// Reader reads single keys outside of a transaction.
type Reader interface {
	// Get decodes the value at key into dst. found is false when the key
	// does not exist; dst is left untouched in that case.
	Get(ctx context.Context, key string, dst any) (found bool, err error)
}

// Tx is the view of the store inside Update. Reads observe earlier writes
// made through the same Tx.
type Tx interface {
	Get(key string, dst any) (found bool, err error)
	Set(key string, value any) error
}

// KV is a JSON key-value store with atomic multi-key updates.
type KV interface {
	Reader
	// Update runs fn and commits every Set it made together. If fn returns
	// an error nothing is written.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Load implements get(key) -> value | default.
func Load[T any](ctx context.Context, r Reader, key string, def T) (T, error) {
	var v T
	found, err := r.Get(ctx, key, &v)
	if err != nil {
		return def, fmt.Errorf("load %q: %w", key, err)
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// Set stores value at key in its own transaction.
func Set(ctx context.Context, kv KV, key string, value any) error {
	return kv.Update(ctx, func(tx Tx) error {
		return tx.Set(key, value)
	})
}

// Modify replaces the value at key with fn(current), where current is def
// when the key is absent.
func Modify[T any](ctx context.Context, kv KV, key string, def T, fn func(T) T) error {
	return kv.Update(ctx, func(tx Tx) error {
		cur, err := TxLoad(tx, key, def)
		if err != nil {
			return err
		}
		return tx.Set(key, fn(cur))
	})
}

// TxLoad is Load for use inside Update.
func TxLoad[T any](tx Tx, key string, def T) (T, error) {
	var v T
	found, err := tx.Get(key, &v)
	if err != nil {
		return def, fmt.Errorf("load %q: %w", key, err)
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// Staging is a Tx that buffers writes in memory on top of a read function.
// Backends use it to collect the writes of one Update and commit them at once.
type Staging struct {
	read   func(key string) ([]byte, bool, error)
	writes map[string][]byte
	order  []string
}

func NewStaging(read func(key string) ([]byte, bool, error)) *Staging {
	return &Staging{read: read, writes: make(map[string][]byte)}
}

func (s *Staging) Get(key string, dst any) (bool, error) {
	raw, ok := s.writes[key]
	if !ok {
		var err error
		raw, ok, err = s.read(key)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (s *Staging) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if _, seen := s.writes[key]; !seen {
		s.order = append(s.order, key)
	}
	s.writes[key] = raw
	return nil
}

// Writes calls fn for every staged key in first-write order.
func (s *Staging) Writes(fn func(key string, raw []byte) error) error {
	for _, k := range s.order {
		if err := fn(k, s.writes[k]); err != nil {
			return err
		}
	}
	return nil
}

// Dirty reports whether anything was staged.
func (s *Staging) Dirty() bool { return len(s.order) > 0 }

// Decode unmarshals a raw stored value.
func Decode(key string, raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}
