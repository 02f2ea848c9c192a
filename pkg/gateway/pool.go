package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrNoEndpoints is returned by Pool.Next when the pool has no members at all.
var ErrNoEndpoints = errors.New("no endpoints in pool")

// Pool owns the ordered set of endpoints backing one logical service and the
// round-robin rotation cursor. The mutex serializes selections so a read plus
// cursor advance is atomic with respect to concurrent selections.
type Pool struct {
	service   string
	probePath string
	client    *http.Client

	mu        sync.Mutex
	endpoints []*Endpoint
	cursor    int
}

// NewPool builds a Pool with one Endpoint per URL, preserving order.
func NewPool(service string, urls []string, probePath string, probeTimeout time.Duration) *Pool {
	endpoints := make([]*Endpoint, 0, len(urls))
	for _, u := range urls {
		endpoints = append(endpoints, NewEndpoint(u))
	}
	return &Pool{
		service:   service,
		probePath: probePath,
		client:    &http.Client{Timeout: probeTimeout},
		endpoints: endpoints,
	}
}

// Service returns the logical service name this pool serves.
func (p *Pool) Service() string {
	return p.service
}

// Size returns the number of endpoints in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Next selects the next endpoint in rotation, skipping unhealthy ones. When
// every endpoint is unhealthy it returns the one at the original cursor
// position anyway rather than failing closed: a known-bad endpoint beats a
// guaranteed outage, and an all-unhealthy pool may reflect a problem with the
// prober's network view rather than the backends themselves.
func (p *Pool) Next() (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	start := p.cursor
	for range p.endpoints {
		endpoint := p.endpoints[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.endpoints)
		if endpoint.Status() != StatusUnhealthy {
			return endpoint, nil
		}
	}
	return p.endpoints[start], nil
}

// ProbeHealth checks every endpoint concurrently and records the outcome on
// its health tracker. Individual probe failures mark endpoints down and are
// logged; the sweep as a whole cannot fail.
func (p *Pool) ProbeHealth(ctx context.Context) {
	p.mu.Lock()
	endpoints := make([]*Endpoint, len(p.endpoints))
	copy(endpoints, p.endpoints)
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, endpoint := range endpoints {
		wg.Add(1)
		go func(e *Endpoint) {
			defer wg.Done()
			p.probe(ctx, e)
		}(endpoint)
	}
	wg.Wait()
}

// probe issues a single GET <endpoint><probePath>. Only a 200 counts as
// healthy; any other status or transport error counts against the endpoint.
func (p *Pool) probe(ctx context.Context, e *Endpoint) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL()+p.probePath, nil)
	if err != nil {
		log.Error().Err(err).Str("service", p.service).Str("endpoint", e.URL()).Msg("Error building health probe request")
		e.RecordFailure()
		return
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("service", p.service).Str("endpoint", e.URL()).Msg("Health probe failed")
		e.RecordFailure()
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("service", p.service).Str("endpoint", e.URL()).Msg("Health probe returned non-OK status")
		e.RecordFailure()
		return
	}
	e.RecordSuccess(time.Since(start))
}

// PoolStatus is the diagnostic projection of one service pool.
type PoolStatus struct {
	Service   string           `json:"service"`
	Endpoints []EndpointStatus `json:"endpoints"`
}

// Snapshot returns the health state of every endpoint in the pool.
func (p *Pool) Snapshot() PoolStatus {
	p.mu.Lock()
	endpoints := make([]*Endpoint, len(p.endpoints))
	copy(endpoints, p.endpoints)
	p.mu.Unlock()

	status := PoolStatus{
		Service:   p.service,
		Endpoints: make([]EndpointStatus, 0, len(endpoints)),
	}
	for _, e := range endpoints {
		status.Endpoints = append(status.Endpoints, e.Snapshot())
	}
	return status
}
