package connector

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/maxpert/airlock/telemetry"
	"github.com/rs/zerolog/log"
)

// pooled is a connector shared by in-flight statements. It is closed once it
// has left the cache and its last lease is released.
type pooled struct {
	key  string
	kind Kind
	conn Connector

	mu      sync.Mutex
	leases  int
	evicted bool
}

// acquire takes a lease unless the entry was already evicted
func (p *pooled) acquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.evicted {
		return false
	}
	p.leases++
	return true
}

func (p *pooled) release() {
	p.mu.Lock()
	p.leases--
	closeNow := p.evicted && p.leases == 0
	p.mu.Unlock()

	if closeNow {
		p.close()
	}
}

func (p *pooled) evict() {
	p.mu.Lock()
	p.evicted = true
	closeNow := p.leases == 0
	p.mu.Unlock()

	if closeNow {
		p.close()
	}
}

func (p *pooled) close() {
	telemetry.OpenConnectors.With(string(p.kind)).Dec()
	if err := p.conn.Close(); err != nil {
		log.Warn().Err(err).Str("entry", p.key).Msg("Failed to close evicted connector")
	}
}

// Pool keeps opened connector instances keyed by the catalog entry that owns
// them. When the pool is full the least recently used entry is evicted; an
// evicted connector is closed after its last lease is released.
type Pool struct {
	registry *Registry
	mu       sync.Mutex // serializes open-if-absent
	cache    *lru.Cache[string, *pooled]
}

// NewPool creates a pool holding at most size open connectors.
func NewPool(registry *Registry, size int) (*Pool, error) {
	cache, err := lru.NewWithEvict[string, *pooled](size, func(_ string, p *pooled) {
		p.evict()
	})
	if err != nil {
		return nil, err
	}

	return &Pool{registry: registry, cache: cache}, nil
}

// Registry returns the registry the pool opens connectors from.
func (p *Pool) Registry() *Registry {
	return p.registry
}

// Acquire returns the connector for key, opening it with kind and opts on
// first use, together with a release func the caller must call exactly once
// when done with the connector.
func (p *Pool) Acquire(key string, kind Kind, opts Options) (Connector, func(), error) {
	if e, ok := p.cache.Get(key); ok && e.acquire() {
		return e.conn, e.release, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.cache.Get(key); ok && e.acquire() {
		return e.conn, e.release, nil
	}

	conn, err := p.registry.Open(kind, opts)
	if err != nil {
		return nil, nil, err
	}

	log.Debug().Str("entry", key).Str("kind", string(kind)).Msg("Opened connector")
	telemetry.OpenConnectors.With(string(kind)).Inc()

	e := &pooled{key: key, kind: kind, conn: conn, leases: 1}
	p.cache.Add(key, e)
	return conn, e.release, nil
}

// Remove evicts the connector for key, if open.
func (p *Pool) Remove(key string) {
	p.cache.Remove(key)
}

// Len returns the number of cached connectors.
func (p *Pool) Len() int {
	return p.cache.Len()
}

// Close evicts every pooled connector.
func (p *Pool) Close() {
	p.cache.Purge()
}
