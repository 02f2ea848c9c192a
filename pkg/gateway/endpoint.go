package gateway

import (
	"math"
	"sync"
	"time"
)

// Status is the observed health of a backend endpoint.
type Status string

const (
	// StatusUnknown means no outcome has been recorded yet.
	StatusUnknown Status = "unknown"
	// StatusHealthy means the most recent outcome was a completed response.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy means the endpoint failed unhealthyThreshold times in a row.
	StatusUnhealthy Status = "unhealthy"
)

// unhealthyThreshold is the number of consecutive failures after which an
// endpoint is taken out of normal rotation.
const unhealthyThreshold = 3

// maxResponseTimeSamples bounds the rolling response-time window per endpoint.
const maxResponseTimeSamples = 100

// Endpoint holds information and health state about a single backend instance.
// All mutable fields are guarded by mu: the request path and the health sweep
// record outcomes on the same endpoint concurrently.
type Endpoint struct {
	url string

	mu            sync.Mutex
	status        Status
	failureCount  int
	lastCheck     time.Time // zero until the first recorded outcome
	responseTimes []time.Duration
}

// NewEndpoint creates an Endpoint in the unknown state.
func NewEndpoint(url string) *Endpoint {
	return &Endpoint{url: url, status: StatusUnknown}
}

// URL returns the endpoint's base address.
func (e *Endpoint) URL() string {
	return e.url
}

// RecordSuccess marks the endpoint healthy and stores the observed latency.
// Recovery is optimistic: a single success returns an unhealthy endpoint to
// rotation immediately, with no probation period.
func (e *Endpoint) RecordSuccess(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusHealthy
	e.failureCount = 0
	e.lastCheck = time.Now().UTC()
	e.responseTimes = append(e.responseTimes, elapsed)
	if len(e.responseTimes) > maxResponseTimeSamples {
		e.responseTimes = e.responseTimes[len(e.responseTimes)-maxResponseTimeSamples:]
	}
}

// RecordFailure bumps the consecutive-failure count. The status flips to
// unhealthy only once the count reaches unhealthyThreshold; below that the
// previous status stands.
func (e *Endpoint) RecordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount++
	e.lastCheck = time.Now().UTC()
	if e.failureCount >= unhealthyThreshold {
		e.status = StatusUnhealthy
	}
}

// Status returns the current health status.
func (e *Endpoint) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// FailureCount returns the current consecutive-failure count.
func (e *Endpoint) FailureCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failureCount
}

// AverageResponseTime returns the mean of the retained latency samples, or 0
// when nothing has been recorded.
func (e *Endpoint) AverageResponseTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.averageLocked()
}

func (e *Endpoint) averageLocked() time.Duration {
	if len(e.responseTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range e.responseTimes {
		total += d
	}
	return total / time.Duration(len(e.responseTimes))
}

// EndpointStatus is the diagnostic projection of one endpoint's health state.
type EndpointStatus struct {
	URL             string     `json:"url"`
	Status          Status     `json:"status"`
	FailureCount    int        `json:"failure_count"`
	AvgResponseTime float64    `json:"avg_response_time"` // seconds, millisecond precision
	LastCheck       *time.Time `json:"last_check"`
}

// Snapshot returns a consistent view of the endpoint's health fields.
func (e *Endpoint) Snapshot() EndpointStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := EndpointStatus{
		URL:             e.url,
		Status:          e.status,
		FailureCount:    e.failureCount,
		AvgResponseTime: math.Round(e.averageLocked().Seconds()*1000) / 1000,
	}
	if !e.lastCheck.IsZero() {
		t := e.lastCheck
		s.LastCheck = &t
	}
	return s
}
