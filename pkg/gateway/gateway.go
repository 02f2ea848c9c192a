package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/smartmeeting/gateway/pkg/config"
	"github.com/smartmeeting/gateway/pkg/logger"
	"github.com/smartmeeting/gateway/pkg/metrics"
)

var log = logger.New("gateway")

// Gateway routes inbound requests to backend service pools and records the
// outcome of every proxied call on the endpoint that served it. One Gateway
// is constructed at startup and injected into the HTTP handlers; there is no
// package-level instance.
type Gateway struct {
	router *Router
	pools  map[string]*Pool
	client *http.Client
}

// New builds a Gateway from configuration: one pool per logical service plus
// the path-segment routing table.
func New(cfg *config.Config) *Gateway {
	pools := make(map[string]*Pool, len(cfg.Services))
	for name, svc := range cfg.Services {
		pools[name] = NewPool(name, svc.Endpoints, cfg.HealthCheckPath, time.Duration(cfg.ProbeTimeout))
	}
	return &Gateway{
		router: NewRouter(cfg.RouteTable()),
		pools:  pools,
		client: &http.Client{Timeout: time.Duration(cfg.ProxyTimeout)},
	}
}

// ResolveService maps a request path to its logical service name.
func (g *Gateway) ResolveService(path string) (string, bool) {
	return g.router.Resolve(path)
}

// Pool returns the pool serving a logical service, or nil if none exists.
func (g *Gateway) Pool(service string) *Pool {
	return g.pools[service]
}

// Dispatch forwards one inbound request to the service owning path and
// returns the backend response verbatim. Health accounting is transport-level
// only: any completed response, a 500 included, records a success, because
// the endpoint demonstrably answered. Only the failure to obtain any response
// records a failure. Whether backend error statuses should also count against
// health is an open product question; this mirrors the deployed behavior.
func (g *Gateway) Dispatch(ctx context.Context, method, path string, header http.Header, query url.Values, body io.Reader) (*http.Response, error) {
	service, ok := g.router.Resolve(path)
	if !ok {
		return nil, errServiceNotFound()
	}
	pool, ok := g.pools[service]
	if !ok {
		return nil, errServiceNotFound()
	}

	endpoint, err := pool.Next()
	if err != nil {
		log.Warn().Str("service", service).Msg("No endpoints available for service")
		return nil, errServiceUnavailable(service)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.URL()+path, body)
	if err != nil {
		log.Error().Err(err).Str("service", service).Msg("Error building backend request")
		return nil, errInternal()
	}
	if header != nil {
		req.Header = header.Clone()
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		endpoint.RecordFailure()
		log.Error().Err(err).Str("service", service).Str("endpoint", endpoint.URL()).Msg("Backend request failed")
		return nil, errBadGateway(service)
	}

	endpoint.RecordSuccess(time.Since(start))
	return resp, nil
}

// HealthSweep probes every pool concurrently and waits for all probes to
// finish. It cannot fail; individual endpoints are marked down instead.
func (g *Gateway) HealthSweep(ctx context.Context) {
	var wg sync.WaitGroup
	for _, pool := range g.pools {
		wg.Add(1)
		go func(p *Pool) {
			defer wg.Done()
			p.ProbeHealth(ctx)
		}(pool)
	}
	wg.Wait()
	g.publishEndpointMetrics()
}

// RunHealthLoop sweeps all pools every interval until ctx is canceled.
func (g *Gateway) RunHealthLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.HealthSweep(ctx)
		case <-ctx.Done():
			log.Info().Msg("Health sweep loop stopped")
			return
		}
	}
}

func (g *Gateway) publishEndpointMetrics() {
	for name, pool := range g.pools {
		for _, e := range pool.Snapshot().Endpoints {
			metrics.SetEndpointUp(name, e.URL, e.Status != StatusUnhealthy)
		}
	}
}

// StatusReport is the aggregated diagnostic view of every pool.
type StatusReport struct {
	Gateway   string                `json:"gateway"`
	Timestamp time.Time             `json:"timestamp"`
	Services  map[string]PoolStatus `json:"services"`
}

// StatusReport aggregates every pool's snapshot. The "operational" marker is
// unconditional and advisory only; it does not inspect pool health.
func (g *Gateway) StatusReport() StatusReport {
	services := make(map[string]PoolStatus, len(g.pools))
	for name, pool := range g.pools {
		services[name] = pool.Snapshot()
	}
	return StatusReport{
		Gateway:   "operational",
		Timestamp: time.Now().UTC(),
		Services:  services,
	}
}
