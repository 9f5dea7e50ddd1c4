package api

import (
	"context"
	"net/http"
	"time"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready verifica cada dependência com timeout de 2s.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	checks := map[string]string{}
	ok := true
	for name, check := range h.ReadyChecks {
		if err := check(ctx); err != nil {
			checks[name] = "down"
			ok = false
			continue
		}
		checks[name] = "up"
	}
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "checks": checks})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "checks": checks})
}
