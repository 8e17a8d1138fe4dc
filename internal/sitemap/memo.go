package sitemap

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
)

// flight is one build for a key. done is closed once sm/err are set.
type flight struct {
	done chan struct{}
	sm   *models.SiteMap
	err  error
}

// memo holds one flight per key for the life of the process. Successful
// flights stay until invalidated; failed ones are dropped on completion.
type memo struct {
	mu      sync.Mutex
	flights map[string]*flight
}

func newMemo() *memo {
	return &memo{flights: make(map[string]*flight)}
}

// memoKey is the JSON array of the build arguments.
func memoKey(rootPageID, rootSpaceID string) string {
	b, _ := json.Marshal([]string{pageid.Normalize(rootPageID), rootSpaceID})
	return string(b)
}

// do returns the flight's result for key, starting fn when no flight
// exists. fn runs detached from ctx cancellation; ctx only bounds how long
// this caller waits. hit reports whether a finished flight was reused.
func (m *memo) do(ctx context.Context, key string, fn func(context.Context) (*models.SiteMap, error)) (*models.SiteMap, bool, error) {
	m.mu.Lock()
	f, ok := m.flights[key]
	if !ok {
		f = &flight{done: make(chan struct{})}
		m.flights[key] = f
		go m.run(context.WithoutCancel(ctx), key, f, fn)
	}
	m.mu.Unlock()

	// A finished flight wins over an expired ctx.
	select {
	case <-f.done:
		return f.sm, ok && f.err == nil, f.err
	default:
	}

	select {
	case <-f.done:
		return f.sm, false, f.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (m *memo) run(ctx context.Context, key string, f *flight, fn func(context.Context) (*models.SiteMap, error)) {
	sm, err := fn(ctx)
	m.mu.Lock()
	f.sm, f.err = sm, err
	if err != nil && m.flights[key] == f {
		delete(m.flights, key)
	}
	m.mu.Unlock()
	close(f.done)
}

func (m *memo) forget(key string) {
	m.mu.Lock()
	delete(m.flights, key)
	m.mu.Unlock()
}

func (m *memo) forgetAll() {
	m.mu.Lock()
	clear(m.flights)
	m.mu.Unlock()
}
