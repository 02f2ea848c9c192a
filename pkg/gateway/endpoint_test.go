package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointStartsUnknown(t *testing.T) {
	e := NewEndpoint("http://localhost:8001")

	assert.Equal(t, StatusUnknown, e.Status())
	assert.Equal(t, 0, e.FailureCount())
	assert.Nil(t, e.Snapshot().LastCheck)
}

func TestEndpointUnhealthyAfterThreeFailures(t *testing.T) {
	e := NewEndpoint("http://localhost:8001")

	e.RecordFailure()
	e.RecordFailure()
	assert.NotEqual(t, StatusUnhealthy, e.Status(), "two failures must not mark the endpoint unhealthy")
	assert.Equal(t, 2, e.FailureCount())

	e.RecordFailure()
	assert.Equal(t, StatusUnhealthy, e.Status())
	assert.Equal(t, 3, e.FailureCount())
}

func TestEndpointHealthyToUnhealthyOnThirdFailure(t *testing.T) {
	e := NewEndpoint("http://localhost:8001")
	e.RecordSuccess(10 * time.Millisecond)

	e.RecordFailure()
	e.RecordFailure()
	// Still healthy with two prior failures; the third flips it directly.
	assert.Equal(t, StatusHealthy, e.Status())

	e.RecordFailure()
	assert.Equal(t, StatusUnhealthy, e.Status())
}

func TestRecordSuccessResetsFailures(t *testing.T) {
	e := NewEndpoint("http://localhost:8001")
	for i := 0; i < 5; i++ {
		e.RecordFailure()
	}
	require.Equal(t, StatusUnhealthy, e.Status())

	e.RecordSuccess(25 * time.Millisecond)

	assert.Equal(t, StatusHealthy, e.Status(), "a single success recovers an unhealthy endpoint")
	assert.Equal(t, 0, e.FailureCount())
	assert.NotNil(t, e.Snapshot().LastCheck)
}

func TestResponseTimeWindowKeepsLastHundred(t *testing.T) {
	e := NewEndpoint("http://localhost:8001")
	for i := 1; i <= 150; i++ {
		e.RecordSuccess(time.Duration(i) * time.Millisecond)
	}

	e.mu.Lock()
	retained := append([]time.Duration(nil), e.responseTimes...)
	e.mu.Unlock()

	require.Len(t, retained, 100)
	for i, d := range retained {
		assert.Equal(t, time.Duration(51+i)*time.Millisecond, d, "oldest samples must be evicted first")
	}
}

func TestAverageResponseTime(t *testing.T) {
	e := NewEndpoint("http://localhost:8001")
	assert.Equal(t, time.Duration(0), e.AverageResponseTime(), "no samples means zero, not an error")

	e.RecordSuccess(100 * time.Millisecond)
	e.RecordSuccess(200 * time.Millisecond)
	e.RecordSuccess(300 * time.Millisecond)

	assert.InDelta(t, 0.2, e.AverageResponseTime().Seconds(), 1e-2)
	assert.InDelta(t, 0.2, e.Snapshot().AvgResponseTime, 1e-2)
}

func TestEndpointConcurrentRecording(t *testing.T) {
	e := NewEndpoint("http://localhost:8001")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.RecordFailure()
		}()
		go func() {
			defer wg.Done()
			e.RecordSuccess(time.Millisecond)
		}()
	}
	wg.Wait()

	// The exact interleaving is unknowable; the invariants are not.
	snap := e.Snapshot()
	assert.GreaterOrEqual(t, snap.FailureCount, 0)
	assert.Contains(t, []Status{StatusHealthy, StatusUnhealthy}, snap.Status)
}
