package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// StorePinger is the slice of the client store health needs.
type StorePinger interface {
	BackendName() string
	Ping(ctx context.Context) error
}

// QueueStatus reports broker connectivity; nil means not configured.
type QueueStatus interface {
	Healthy() bool
}

type HealthHandler struct {
	Store     StorePinger
	Queue     QueueStatus
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(store StorePinger, queue QueueStatus) *HealthHandler {
	return &HealthHandler{
		Store:     store,
		Queue:     queue,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)

	// Check Store
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		err := h.Store.Ping(ctx)
		cancel()
		if err != nil {
			deps["store"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			deps["store"] = "healthy"
		}
		deps["store_backend"] = h.Store.BackendName()
	} else {
		deps["store"] = "not configured"
	}

	// Check RabbitMQ
	if h.Queue != nil {
		if h.Queue.Healthy() {
			deps["rabbitmq"] = "healthy"
		} else {
			deps["rabbitmq"] = "unhealthy: connection closed"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	// Determine overall status
	status := "healthy"
	for k, v := range deps {
		if k == "store_backend" {
			continue
		}
		if v != "healthy" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	uptime := time.Since(h.StartTime).Round(time.Second).String()

	response := HealthResponse{
		Status:       status,
		Version:      "1.0.0",
		Uptime:       uptime,
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}
