package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Hanaasagi/tlmode/internal/observable"
)

const writeTimeout = 2 * time.Second

// SyncStore is an observable value that writes every change through to
// storage. It satisfies observable.Store.
type SyncStore[T any] struct {
	name         string
	defaultValue T
	value        *observable.Value[T]
	storage      *Storage
}

// NewSyncStore loads the value saved under name, or starts from
// defaultValue when nothing was saved yet.
func NewSyncStore[T any](ctx context.Context, storage *Storage, name string, defaultValue T) (*SyncStore[T], error) {
	initial := defaultValue
	saved, ok, err := Load[T](ctx, storage, name)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	if ok {
		initial = saved
	}

	return &SyncStore[T]{
		name:         name,
		defaultValue: defaultValue,
		value:        observable.NewValue(initial),
		storage:      storage,
	}, nil
}

// Name returns the storage key.
func (s *SyncStore[T]) Name() string {
	return s.name
}

func (s *SyncStore[T]) Get() T {
	return s.value.Get()
}

// Set publishes value and persists it. A failed write is logged; the new
// value stays in effect for this session.
func (s *SyncStore[T]) Set(value T) {
	s.value.Set(value)
	s.persist(value)
}

// Update sets the value to fn(current).
func (s *SyncStore[T]) Update(fn func(T) T) {
	s.Set(fn(s.value.Get()))
}

// Reset restores the default value.
func (s *SyncStore[T]) Reset() {
	s.Set(s.defaultValue)
}

func (s *SyncStore[T]) Subscribe(fn func(T)) *observable.Subscription {
	return s.value.Subscribe(fn)
}

func (s *SyncStore[T]) persist(value T) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := Save(ctx, s.storage, s.name, value); err != nil {
		slog.Warn("Failed to persist store", "name", s.name, "error", err)
	}
}
