package gateway

import "strings"

// Router maps an inbound request path to a logical service name by looking up
// the first non-empty path segment in a fixed table. The table is built once
// at startup and never mutated afterwards.
type Router struct {
	table map[string]string
}

// NewRouter copies the given segment -> service table into a Router.
func NewRouter(table map[string]string) *Router {
	t := make(map[string]string, len(table))
	for seg, svc := range table {
		t[seg] = svc
	}
	return &Router{table: t}
}

// Resolve returns the logical service owning path. There is no default
// service: an empty path or an unknown first segment resolves to nothing.
func (r *Router) Resolve(path string) (string, bool) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", false
	}
	segment, _, _ := strings.Cut(trimmed, "/")
	service, ok := r.table[segment]
	return service, ok
}
