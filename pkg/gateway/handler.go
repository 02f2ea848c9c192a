package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartmeeting/gateway/pkg/metrics"
)

// Handler builds the gateway's HTTP mux: the diagnostic endpoints plus the
// catch-all proxy route. Every non-diagnostic path is forwarded to a backend.
func Handler(g *Gateway) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/gateway/health", statusHandler(g)).Methods(http.MethodGet)
	r.HandleFunc("/gateway/status", statusHandler(g)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(proxyHandler(g))
	return r
}

// statusHandler serves the aggregated status report.
func statusHandler(g *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(g.StatusReport()); err != nil {
			log.Error().Err(err).Msg("Error encoding status report")
		}
	}
}

// proxyHandler dispatches the inbound request and relays the backend response
// verbatim: status code, headers and body.
func proxyHandler(g *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		service, ok := g.ResolveService(r.URL.Path)
		if !ok {
			service = "unknown"
		}

		start := time.Now()
		resp, err := g.Dispatch(r.Context(), r.Method, r.URL.Path, r.Header, r.URL.Query(), r.Body)
		if err != nil {
			code := writeError(w, err)
			metrics.ObserveRequest(service, r.Method, code, time.Since(start))
			log.Warn().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("service", service).
				Int("status", code).
				Msg("Request failed")
			return
		}
		defer resp.Body.Close()

		copyHeader(w.Header(), resp.Header)
		w.Header().Set("X-Request-Id", requestID)
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Debug().Err(err).Str("request_id", requestID).Msg("Error relaying backend response body")
		}

		metrics.ObserveRequest(service, r.Method, resp.StatusCode, time.Since(start))
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("service", service).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("Proxied request")
	}
}

// writeError maps a dispatch error to a JSON error response and returns the
// status code written. Anything that is not a StatusError becomes a generic
// internal gateway error.
func writeError(w http.ResponseWriter, err error) int {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		statusErr = errInternal()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusErr.Code)
	if encErr := json.NewEncoder(w).Encode(map[string]string{"detail": statusErr.Detail}); encErr != nil {
		log.Error().Err(encErr).Msg("Error encoding error response")
	}
	return statusErr.Code
}

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
