// Package cache memoizes the answers to canonical queries.
//
// Entries are keyed by canonical form, so two queries equal up to a renaming of their
// inference variables share an entry, whichever table they were asked in.
package cache

import (
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/cottand/ilesolve/internal/log"
	"github.com/cottand/ilesolve/solve/infer"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// Key identifies a canonical query
type Key struct {
	text string
	hash uint64
}

// KeyOf returns the key of a canonical query: its printed canonical form, binder kinds
// and universes included
func KeyOf[T any](c infer.Canonicalized[T]) Key {
	text := c.Quantified.String()
	return Key{text: text, hash: xxhash.Sum64String(text)}
}

func (k Key) String() string {
	return fmt.Sprintf("%016x", k.hash)
}

type entry[A any] struct {
	text   string
	answer A
}

// Cache is a fixed-size LRU cache of answers of type A. It is safe for concurrent use.
type Cache[A any] struct {
	name    string
	entries *lru.Cache[uint64, entry[A]]
	flight  singleflight.Group
	hits    prometheus.Counter
	misses  prometheus.Counter
	logger  *slog.Logger
}

// New creates a cache holding up to size answers. Its hit and miss counters are
// registered on reg, labelled with name, unless reg is nil.
func New[A any](name string, size int, reg prometheus.Registerer) (*Cache[A], error) {
	entries, err := lru.New[uint64, entry[A]](size)
	if err != nil {
		return nil, errors.Wrapf(err, "creating query cache %s", name)
	}
	c := &Cache[A]{
		name:    name,
		entries: entries,
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ilesolve_query_cache_hits_total",
			Help:        "Canonical queries answered from the cache",
			ConstLabels: prometheus.Labels{"cache": name},
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ilesolve_query_cache_misses_total",
			Help:        "Canonical queries not found in the cache",
			ConstLabels: prometheus.Labels{"cache": name},
		}),
		logger: log.Section("cache").With("cache", name),
	}
	if reg == nil {
		return c, nil
	}
	for _, collector := range []prometheus.Collector{c.hits, c.misses} {
		if err := reg.Register(collector); err != nil {
			return nil, errors.Wrapf(err, "registering metrics of query cache %s", name)
		}
	}
	return c, nil
}

func (c *Cache[A]) Get(k Key) (A, bool) {
	answer, ok := c.lookup(k)
	if !ok {
		c.misses.Inc()
		return answer, false
	}
	c.hits.Inc()
	return answer, true
}

// lookup is Get without counting
func (c *Cache[A]) lookup(k Key) (A, bool) {
	e, ok := c.entries.Get(k.hash)
	if !ok || e.text != k.text {
		var zero A
		return zero, false
	}
	return e.answer, true
}

// Add stores answer under k, evicting the least recently used answer if the cache is
// full
func (c *Cache[A]) Add(k Key, answer A) {
	if evicted := c.entries.Add(k.hash, entry[A]{text: k.text, answer: answer}); evicted {
		c.logger.Debug("evicted an answer", "size", c.entries.Len())
	}
}

// GetOrCompute returns the answer stored under k, or computes and stores it.
// Concurrent callers missing on the same key share a single call to compute.
// Failed computations are not stored.
func (c *Cache[A]) GetOrCompute(k Key, compute func() (A, error)) (A, error) {
	if answer, ok := c.Get(k); ok {
		return answer, nil
	}
	v, err, shared := c.flight.Do(k.text, func() (any, error) {
		// an earlier flight may have stored it after our Get
		if answer, ok := c.lookup(k); ok {
			return answer, nil
		}
		answer, err := compute()
		if err != nil {
			return answer, err
		}
		c.Add(k, answer)
		return answer, nil
	})
	if shared {
		c.logger.Debug("shared an answer with a concurrent query", "key", k)
	}
	answer, _ := v.(A)
	return answer, err
}

func (c *Cache[A]) Len() int {
	return c.entries.Len()
}

func (c *Cache[A]) Purge() {
	c.entries.Purge()
	c.logger.Debug("purged")
}
