package datasync

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fingram/internal/api"
	"fingram/internal/core"
	"fingram/internal/log"
)

// Fetcher loads the value for one key with whatever client is bound at the
// time the fetch actually runs.
type Fetcher func(ctx context.Context, client api.Client) (any, error)

// Result is one read outcome. Stale means the value came from the cache
// past its freshness window and a revalidation is in flight.
type Result struct {
	Key   string
	Value any
	Err   error
	Stale bool
}

// Manager implements stale-while-revalidate over the selector's client
// binding. Concurrent fetches of the same key are deduplicated, mutations
// trigger an asynchronous refetch of the summary, category and transaction
// keys, and a client binding change drops everything.
type Manager struct {
	clientFn func() api.Client
	cache    *swrCache
	group    singleflight.Group
	logger   *log.Logger

	mu       sync.Mutex
	fetchers map[string]Fetcher
	subs     []func(Result)
}

// Options tunes the cache. Zero values fall back to sane defaults.
type Options struct {
	FreshFor   time.Duration
	MaxEntries int
}

func NewManager(clientFn func() api.Client, opts Options, logger *log.Logger) *Manager {
	if opts.FreshFor <= 0 {
		opts.FreshFor = 30 * time.Second
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 256
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		clientFn: clientFn,
		cache:    newSWRCache(opts.MaxEntries, opts.FreshFor),
		logger:   logger.WithComponent("datasync"),
		fetchers: make(map[string]Fetcher),
	}
}

// Subscribe registers a listener for every completed fetch. Listeners run on
// the fetching goroutine and must not block.
func (m *Manager) Subscribe(fn func(Result)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Get is the SWR read. An empty key means "nothing to fetch" and yields an
// empty result. A fresh cached value is returned as is; a stale one is
// returned immediately while a revalidation runs in the background; a miss
// blocks on the fetch.
func (m *Manager) Get(ctx context.Context, key string, fetch Fetcher) Result {
	if key == "" {
		return Result{}
	}
	m.mu.Lock()
	m.fetchers[key] = fetch
	m.mu.Unlock()

	value, fresh, ok := m.cache.get(key)
	if ok && fresh {
		return Result{Key: key, Value: value}
	}
	if ok {
		go m.revalidate(key, fetch)
		return Result{Key: key, Value: value, Stale: true}
	}

	fetched, err := m.fetchShared(ctx, key, fetch)
	return Result{Key: key, Value: fetched, Err: err}
}

// Refresh forces a blocking fetch, bypassing freshness.
func (m *Manager) Refresh(ctx context.Context, key string) Result {
	if key == "" {
		return Result{}
	}
	m.mu.Lock()
	fetch, ok := m.fetchers[key]
	m.mu.Unlock()
	if !ok {
		return Result{Key: key}
	}
	value, err := m.fetchShared(ctx, key, fetch)
	return Result{Key: key, Value: value, Err: err}
}

// Invalidate ages one key out of its freshness window.
func (m *Manager) Invalidate(key string) {
	m.cache.markStale(key)
}

// InvalidatePrefix ages out every key sharing the prefix; unrelated keys are
// untouched.
func (m *Manager) InvalidatePrefix(prefix string) {
	m.cache.markStalePrefix(prefix)
}

// InvalidateAll drops the cache entirely. Wired to client binding changes:
// data from one backend must never be served against another.
func (m *Manager) InvalidateAll() {
	m.cache.clear()
	m.logger.Debug("cache cleared")
}

// Mutate runs a write against the bound client. On success the summary,
// category and transaction keys are invalidated and refetched
// asynchronously; on failure nothing is invalidated.
func (m *Manager) Mutate(ctx context.Context, fn func(ctx context.Context, client api.Client) error) error {
	if err := fn(ctx, m.clientFn()); err != nil {
		return err
	}
	m.afterMutation()
	return nil
}

func (m *Manager) afterMutation() {
	m.Invalidate("summary")
	m.Invalidate("categories")
	m.InvalidatePrefix(transactionsPrefix)

	refetch := make([]string, 0, 4)
	m.mu.Lock()
	for key := range m.fetchers {
		if key == "summary" || key == "categories" || strings.HasPrefix(key, transactionsPrefix) {
			refetch = append(refetch, key)
		}
	}
	m.mu.Unlock()

	go func() {
		g := new(errgroup.Group)
		for _, key := range refetch {
			key := key
			g.Go(func() error {
				m.mu.Lock()
				fetch := m.fetchers[key]
				m.mu.Unlock()
				if fetch != nil {
					m.revalidate(key, fetch)
				}
				return nil
			})
		}
		g.Wait()
	}()
}

func (m *Manager) revalidate(key string, fetch Fetcher) {
	if _, err := m.fetchShared(context.Background(), key, fetch); err != nil {
		m.logger.Debug("revalidation failed", "key", key, "error", err)
	}
}

// fetchShared funnels concurrent fetches of one key into a single call.
func (m *Manager) fetchShared(ctx context.Context, key string, fetch Fetcher) (any, error) {
	value, err, _ := m.group.Do(key, func() (any, error) {
		client := m.clientFn()
		if client == nil {
			return nil, core.ErrNotAuthenticated
		}
		v, err := fetch(ctx, client)
		if err != nil {
			return nil, err
		}
		m.cache.set(key, v)
		return v, nil
	})
	m.notify(Result{Key: key, Value: value, Err: err})
	return value, err
}

func (m *Manager) notify(res Result) {
	m.mu.Lock()
	subs := make([]func(Result), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(res)
	}
}
