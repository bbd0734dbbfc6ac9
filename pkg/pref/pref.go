// Package pref persists a projection of application state across sessions.
//
// A Persister watches a store, and whenever its projection of the state
// changes it writes the projection as JSON to a KV backend. Load reads it
// back so a new session can be rehydrated.
//
// Example:
//
//	p := &pref.Persister[*store.Tree, ui.Prefs]{
//		KV:     pref.NewMemoryKV(),
//		Select: func(t *store.Tree) ui.Prefs { return ui.From(t).Prefs() },
//	}
//	if prefs, ok, _ := p.Load(ctx, "user-7"); ok {
//		st.Dispatch(ctx, ui.Hydrate{Prefs: prefs})
//	}
//	stop := p.Attach(st, "user-7")
//	defer stop()
package pref

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nanacaring/cmsportal/pkg/store"
)

// DefaultPrefix is prepended to every subject to form the storage key.
const DefaultPrefix = "prefs/"

// DefaultTimeout bounds a single backend write.
const DefaultTimeout = 5 * time.Second

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("pref: not found")

// KV is a byte-oriented key value backend.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Source is the part of a store a Persister watches.
type Source[S any] interface {
	GetState() S
	Subscribe(listener store.Listener[S]) (unsubscribe func())
}

// Persister saves the projection Select(state) under Prefix+subject.
type Persister[S any, P comparable] struct {
	KV     KV
	Select func(S) P
	Prefix string
	// Timeout bounds each write. Zero uses DefaultTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (p *Persister[S, P]) key(subject string) string {
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + subject
}

func (p *Persister[S, P]) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Load returns the stored projection for subject. ok is false when nothing
// has been stored yet.
func (p *Persister[S, P]) Load(ctx context.Context, subject string) (v P, ok bool, err error) {
	data, err := p.KV.Get(ctx, p.key(subject))
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("pref: load %s: %w", subject, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("pref: decode %s: %w", subject, err)
	}
	return v, true, nil
}

// Save writes v for subject.
func (p *Persister[S, P]) Save(ctx context.Context, subject string, v P) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("pref: encode %s: %w", subject, err)
	}
	if err := p.KV.Put(ctx, p.key(subject), data); err != nil {
		return fmt.Errorf("pref: save %s: %w", subject, err)
	}
	return nil
}

// Attach subscribes to src and saves the projection each time it changes.
// The projection at attach time is taken as already stored. Write failures
// are logged and never reach the dispatcher.
func (p *Persister[S, P]) Attach(src Source[S], subject string) (stop func()) {
	var mu sync.Mutex
	last := p.Select(src.GetState())

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return src.Subscribe(func(state S) {
		cur := p.Select(state)

		mu.Lock()
		defer mu.Unlock()
		if cur == last {
			return
		}
		last = cur

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := p.Save(ctx, subject, cur); err != nil {
			p.logger().Warn("preference write failed", "subject", subject, "error", err)
		}
	})
}

// MemoryKV keeps values in process memory.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}
