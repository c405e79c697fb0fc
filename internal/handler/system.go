package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"networkpay/pkg/logger"
)

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type SystemHandler struct {
	checks    map[string]Pinger
	logger    logger.Logger
	startTime time.Time
	timeout   time.Duration
}

func NewSystemHandler(checks map[string]Pinger, log logger.Logger) *SystemHandler {
	if checks == nil {
		checks = map[string]Pinger{}
	}
	return &SystemHandler{
		checks:    checks,
		logger:    log,
		startTime: time.Now(),
		timeout:   2 * time.Second,
	}
}

type ServiceStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"` // operational, degraded, outage
	LastUpdated string `json:"lastUpdated"`
	LatencyMs   int64  `json:"latency_ms"`
	Error       string `json:"error,omitempty"`
}

type SystemStatusResponse struct {
	Status   string          `json:"status"`
	Uptime   string          `json:"uptime"`
	Services []ServiceStatus `json:"services,omitempty"`
}

// Health reports liveness only.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, SystemStatusResponse{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ready pings every registered dependency and answers 503 if any is down.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, len(h.checks))
	for id := range h.checks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	resp := SystemStatusResponse{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	code := http.StatusOK

	for _, id := range ids {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		start := time.Now()
		err := h.checks[id].Ping(ctx)
		cancel()
		latency := time.Since(start)

		s := ServiceStatus{
			ID:          id,
			Status:      "operational",
			LastUpdated: time.Now().UTC().Format(time.RFC3339),
			LatencyMs:   latency.Milliseconds(),
		}
		if err != nil {
			s.Status = "outage"
			s.Error = err.Error()
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			h.logger.Error("Dependency ping failed", map[string]interface{}{
				"dependency": id,
				"error":      err.Error(),
			})
		} else if latency > 200*time.Millisecond {
			s.Status = "degraded"
		}
		resp.Services = append(resp.Services, s)
	}

	h.respondJSON(w, code, resp)
}

func (h *SystemHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}
