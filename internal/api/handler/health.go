package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health returns a liveness handler that additionally probes the given
// named dependencies. A failing dependency degrades the payload but
// keeps the 200 so orchestrators do not restart the process over a
// flapping backend.
func Health(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if len(deps) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			resp.Checks = make(map[string]string, len(deps))
			for name, dep := range deps {
				if err := dep.Ping(ctx); err != nil {
					resp.Status = "degraded"
					resp.Checks[name] = err.Error()
				} else {
					resp.Checks[name] = "ok"
				}
			}
		}

		JSON(w, http.StatusOK, resp)
	}
}
