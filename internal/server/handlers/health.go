package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"starfront-server/internal/shared/response"
)

// HealthCheck probes the backing store.
type HealthCheck func(ctx context.Context) error

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Store     string `json:"store"`
	Backend   string `json:"backend"`
}

type HealthHandler struct {
	check   HealthCheck
	backend string
}

func NewHealthHandler(backend string, check HealthCheck) *HealthHandler {
	return &HealthHandler{check: check, backend: backend}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	storeStatus := "connected"
	if h.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.check(ctx); err != nil {
			storeStatus = "disconnected"
			logger.Warn("Store ping failed", "backend", h.backend, "error", err)
		}
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Store:     storeStatus,
		Backend:   h.backend,
	}

	response.Success(w, http.StatusOK, resp)
}
