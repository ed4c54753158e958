package api

import (
	"net/http"
	"slices"
	"strconv"
)

const corsMaxAge = 10 * 60 // seconds browsers may cache a preflight

// corsPolicy admits browser tills served from the listed origins. "*" admits
// any origin, but the origin is still echoed back rather than "*" so the
// Authorization header keeps working.
type corsPolicy struct {
	origins []string
}

func (p corsPolicy) allows(origin string) bool {
	return origin != "" && (slices.Contains(p.origins, "*") || slices.Contains(p.origins, origin))
}

// cors applies p. Requests from other origins pass through untouched and the
// browser blocks them.
func cors(p corsPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if !p.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
