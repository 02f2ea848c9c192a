package gateway

import (
	"fmt"
	"net/http"
)

// StatusError is a dispatch failure carrying the HTTP status the gateway
// returns to the caller. Detail is always safe to show to clients; transport
// error text goes to the log, never into Detail.
type StatusError struct {
	Code   int
	Detail string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), e.Detail)
}

func errServiceNotFound() *StatusError {
	return &StatusError{Code: http.StatusNotFound, Detail: "Service not found"}
}

func errServiceUnavailable(service string) *StatusError {
	return &StatusError{Code: http.StatusServiceUnavailable, Detail: fmt.Sprintf("Service %s is unavailable", service)}
}

func errBadGateway(service string) *StatusError {
	return &StatusError{Code: http.StatusBadGateway, Detail: fmt.Sprintf("Error communicating with %s service", service)}
}

func errInternal() *StatusError {
	return &StatusError{Code: http.StatusInternalServerError, Detail: "Internal gateway error"}
}
