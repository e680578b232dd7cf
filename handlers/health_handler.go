package handlers

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db         Pinger
	commentary string
}

// NewHealthHandler reports liveness. commentary is the name of the active
// commentary generator.
func NewHealthHandler(db Pinger, commentary string) *HealthHandler {
	return &HealthHandler{db: db, commentary: commentary}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	database := "ok"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status, code, database = "degraded", http.StatusServiceUnavailable, "unavailable"
		}
	}

	response := jsonResponse{
		"status":        status,
		"database":      database,
		"commentary":    h.commentary,
		"ai_commentary": h.commentary != "" && h.commentary != "template",
	}
	if err := writeJSON(w, code, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
