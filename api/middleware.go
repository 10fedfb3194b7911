package api

import (
	"net/http"
	"slices"

	coremon "github.com/kilianp07/evtrip/core/monitoring"
	"github.com/kilianp07/evtrip/infra/logger"
)

const (
	corsMethods = "POST, GET, OPTIONS"
	corsHeaders = "Content-Type, SOAPAction"
	corsMaxAge  = "86400"
)

// CORS adds the cross-origin headers browsers need to call the service and
// answers preflight requests. An empty origins list or "*" allows any origin.
func CORS(origins []string, next http.Handler) http.Handler {
	anyOrigin := len(origins) == 0 || slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		switch {
		case anyOrigin:
			h.Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(origins, r.Header.Get("Origin")):
			h.Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", corsMethods)
		h.Set("Access-Control-Allow-Headers", corsHeaders)
		h.Set("Access-Control-Max-Age", corsMaxAge)
		if r.Method == http.MethodOptions {
			h.Set("Content-Type", "text/plain")
			h.Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recover turns handler panics into 500 responses and reports them to the
// monitor.
func Recover(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
			coremon.CapturePanic(v, map[string]string{"path": r.URL.Path, "method": r.Method})
			http.Error(w, "internal error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
