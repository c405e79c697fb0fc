// Package handler provides the HTTP handlers of the earnings API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"networkpay/internal/analytics"
	"networkpay/internal/domain"
	"networkpay/internal/earnings"
	"networkpay/internal/middleware"
	"networkpay/internal/rank"
	"networkpay/pkg/errors"
	"networkpay/pkg/logger"
)

// EarningsService is what the handler needs from earnings.Service.
type EarningsService interface {
	DefaultQuery() earnings.Query
	History(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query) (*domain.Page[domain.Record], error)
	Stats(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query) (*domain.SummaryStats, error)
	Chart(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query) (*earnings.ChartResponse, error)
	Overview(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query) (*analytics.Report, error)
	RankProgress(ctx context.Context, owner uuid.UUID) (*rank.Progress, error)
	Export(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query, format string) (*earnings.ExportFile, error)
}

// EarningsHandler serves the commission, purchase and payout views.
type EarningsHandler struct {
	service EarningsService
	logger  logger.Logger
}

// NewEarningsHandler creates an EarningsHandler.
func NewEarningsHandler(service EarningsService, log logger.Logger) *EarningsHandler {
	return &EarningsHandler{
		service: service,
		logger:  log,
	}
}

const ledgerPattern = "{ledger:commissions|purchases|payouts}"

// Register mounts the routes on r, which is expected to be authenticated.
func (h *EarningsHandler) Register(r *mux.Router) {
	r.HandleFunc("/"+ledgerPattern+"/history", h.GetHistory).Methods(http.MethodGet)
	r.HandleFunc("/"+ledgerPattern+"/stats", h.GetStats).Methods(http.MethodGet)
	r.HandleFunc("/"+ledgerPattern+"/chart", h.GetChart).Methods(http.MethodGet)
	r.HandleFunc("/"+ledgerPattern+"/overview", h.GetOverview).Methods(http.MethodGet)
	r.HandleFunc("/"+ledgerPattern+"/export", h.Export).Methods(http.MethodGet)
	r.HandleFunc("/rank/progress", h.GetRankProgress).Methods(http.MethodGet)
}

// GetHistory returns one page of records, newest first.
func (h *EarningsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	owner, ledger, q, ok := h.parse(w, r)
	if !ok {
		return
	}

	page, err := h.service.History(r.Context(), owner, ledger, q)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, page)
}

// GetStats returns the summary cards.
func (h *EarningsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	owner, ledger, q, ok := h.parse(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), owner, ledger, q)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

// GetChart returns gap-filled chart buckets.
func (h *EarningsHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	owner, ledger, q, ok := h.parse(w, r)
	if !ok {
		return
	}

	chart, err := h.service.Chart(r.Context(), owner, ledger, q)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, chart)
}

// GetOverview returns stats, history and chart in one response.
func (h *EarningsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	owner, ledger, q, ok := h.parse(w, r)
	if !ok {
		return
	}

	report, err := h.service.Overview(r.Context(), owner, ledger, q)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// Export streams the filtered history as a file download.
func (h *EarningsHandler) Export(w http.ResponseWriter, r *http.Request) {
	owner, ledger, q, ok := h.parse(w, r)
	if !ok {
		return
	}

	file, err := h.service.Export(r.Context(), owner, ledger, q, r.URL.Query().Get("format"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// GetRankProgress returns progress towards the next rank.
func (h *EarningsHandler) GetRankProgress(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	progress, err := h.service.RankProgress(r.Context(), owner)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, progress)
}

func (h *EarningsHandler) parse(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.Ledger, earnings.Query, bool) {
	owner, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, "", earnings.Query{}, false
	}

	ledger, ok := domain.ParseLedger(mux.Vars(r)["ledger"])
	if !ok {
		h.respondError(w, http.StatusNotFound, "Unknown ledger")
		return uuid.Nil, "", earnings.Query{}, false
	}

	q, err := h.parseQuery(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return uuid.Nil, "", earnings.Query{}, false
	}
	return owner, ledger, q, true
}

func (h *EarningsHandler) parseQuery(r *http.Request) (earnings.Query, error) {
	values := r.URL.Query()
	q := h.service.DefaultQuery()

	if v := strings.TrimSpace(values.Get("timeRange")); v != "" {
		q.TimeRange = v
	}
	q.Status = values.Get("status")
	q.Type = values.Get("type")
	q.Currency = values.Get("currency")
	q.Granularity = values.Get("granularity")

	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errors.Wrap(errors.ErrInvalidPage, "page must be an integer")
		}
		q.Page = n
	}
	if v := values.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errors.Wrap(errors.ErrInvalidPage, "pageSize must be an integer")
		}
		q.PageSize = n
	}
	return q, nil
}

func (h *EarningsHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Earnings request failed", map[string]interface{}{
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
			"error":      err.Error(),
		})
	}

	switch status {
	case http.StatusServiceUnavailable:
		h.respondError(w, status, "Record source unavailable")
	case http.StatusInternalServerError:
		h.respondError(w, status, "Internal server error")
	default:
		h.respondError(w, status, err.Error())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidLedger), errors.Is(err, errors.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidTimeRange),
		errors.Is(err, errors.ErrInvalidPage),
		errors.Is(err, errors.ErrInvalidQuery),
		errors.Is(err, errors.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrSourceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *EarningsHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *EarningsHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
