package store

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-composer/internal/gateway"
)

// Registry hands out one loaded store per user, sharing a gateway
type Registry struct {
	gw   gateway.Gateway
	log  *logrus.Entry
	opts Options

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// registryEntry is one user's store. ready is closed once the load finished.
type registryEntry struct {
	ready chan struct{}
	store *Store
	err   error
}

// NewRegistry creates an empty registry
func NewRegistry(gw gateway.Gateway, log *logrus.Entry, opts Options) *Registry {
	return &Registry{
		gw:      gw,
		log:     log,
		opts:    opts,
		entries: make(map[string]*registryEntry),
	}
}

// Get returns the user's store, creating and loading it on first use. Callers
// asking for a user whose store is still loading wait for that load; loads of
// different users run concurrently.
func (r *Registry) Get(ctx context.Context, userID string) (*Store, error) {
	r.mu.Lock()
	if e, ok := r.entries[userID]; ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
			return e.store, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &registryEntry{ready: make(chan struct{})}
	r.entries[userID] = e
	r.mu.Unlock()

	e.store, e.err = r.open(ctx, userID)
	if e.err != nil {
		e.store = nil
		r.mu.Lock()
		delete(r.entries, userID)
		r.mu.Unlock()
	}
	close(e.ready)
	return e.store, e.err
}

func (r *Registry) open(ctx context.Context, userID string) (*Store, error) {
	s, err := New(userID, r.gw, r.log, r.opts)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Len returns the number of loaded stores
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.loaded() {
			n++
		}
	}
	return n
}

func (e *registryEntry) loaded() bool {
	select {
	case <-e.ready:
		return e.store != nil
	default:
		return false
	}
}

// Close flushes every loaded store
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if !e.loaded() {
			continue
		}
		e.store.Close()
		delete(r.entries, id)
	}
}
