package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"networkpay/internal/analytics"
	"networkpay/internal/domain"
	"networkpay/internal/earnings"
	"networkpay/internal/middleware"
	"networkpay/internal/rank"
	"networkpay/pkg/errors"
	"networkpay/pkg/logger"
)

type MockEarningsService struct {
	mock.Mock
}

func (m *MockEarningsService) DefaultQuery() earnings.Query {
	return earnings.Query{TimeRange: "this-month", Page: 1, PageSize: 10}
}

func (m *MockEarningsService) History(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query) (*domain.Page[domain.Record], error) {
	args := m.Called(ctx, owner, ledger, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page[domain.Record]), args.Error(1)
}

func (m *MockEarningsService) Stats(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query) (*domain.SummaryStats, error) {
	args := m.Called(ctx, owner, ledger, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SummaryStats), args.Error(1)
}

func (m *MockEarningsService) Chart(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query) (*earnings.ChartResponse, error) {
	args := m.Called(ctx, owner, ledger, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*earnings.ChartResponse), args.Error(1)
}

func (m *MockEarningsService) Overview(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query) (*analytics.Report, error) {
	args := m.Called(ctx, owner, ledger, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.Report), args.Error(1)
}

func (m *MockEarningsService) RankProgress(ctx context.Context, owner uuid.UUID) (*rank.Progress, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rank.Progress), args.Error(1)
}

func (m *MockEarningsService) Export(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, q earnings.Query, format string) (*earnings.ExportFile, error) {
	args := m.Called(ctx, owner, ledger, q, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*earnings.ExportFile), args.Error(1)
}

func newRouter(svc EarningsService) *mux.Router {
	r := mux.NewRouter()
	NewEarningsHandler(svc, logger.NewNop()).Register(r)
	return r
}

func serve(r http.Handler, owner uuid.UUID, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if owner != uuid.Nil {
		req = req.WithContext(middleware.WithOwnerID(req.Context(), owner))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestEarningsHandler_GetHistory(t *testing.T) {
	svc := new(MockEarningsService)
	owner := uuid.New()

	want := earnings.Query{TimeRange: "last-7-days", Status: "pending", Page: 2, PageSize: 5}
	svc.On("History", mock.Anything, owner, domain.LedgerCommission, want).
		Return(&domain.Page[domain.Record]{Items: []domain.Record{}, Page: 2, PageSize: 5, Total: 7, TotalPages: 2}, nil)

	rec := serve(newRouter(svc), owner, "/commissions/history?timeRange=last-7-days&status=pending&page=2&pageSize=5")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["total"])
	svc.AssertExpectations(t)
}

func TestEarningsHandler_Defaults(t *testing.T) {
	svc := new(MockEarningsService)
	owner := uuid.New()

	svc.On("Stats", mock.Anything, owner, domain.LedgerPayout, svc.DefaultQuery()).
		Return(&domain.SummaryStats{}, nil)

	rec := serve(newRouter(svc), owner, "/payouts/stats")

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestEarningsHandler_BadRequests(t *testing.T) {
	svc := new(MockEarningsService)
	owner := uuid.New()
	r := newRouter(svc)

	tests := []struct {
		name   string
		owner  uuid.UUID
		target string
		code   int
	}{
		{"unknown ledger", owner, "/refunds/history", http.StatusNotFound},
		{"non numeric page", owner, "/commissions/history?page=two", http.StatusBadRequest},
		{"non numeric page size", owner, "/purchases/history?pageSize=x", http.StatusBadRequest},
		{"no owner", uuid.Nil, "/commissions/history", http.StatusUnauthorized},
		{"no owner rank", uuid.Nil, "/rank/progress", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, tt.owner, tt.target)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	svc.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEarningsHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"invalid time range", errors.Wrap(errors.ErrInvalidTimeRange, "timeRange"), http.StatusBadRequest, ""},
		{"invalid page", errors.ErrInvalidPage, http.StatusBadRequest, ""},
		{"unsupported format", errors.ErrUnsupportedFormat, http.StatusBadRequest, ""},
		{"source unavailable", errors.Wrap(errors.ErrSourceUnavailable, "rest"), http.StatusServiceUnavailable, "Record source unavailable"},
		{"unexpected", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockEarningsService)
			owner := uuid.New()
			svc.On("Chart", mock.Anything, owner, domain.LedgerPurchase, mock.Anything).Return(nil, tt.err)

			rec := serve(newRouter(svc), owner, "/purchases/chart")

			assert.Equal(t, tt.code, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			} else {
				assert.Equal(t, tt.err.Error(), body["error"])
			}
		})
	}
}

func TestEarningsHandler_Export(t *testing.T) {
	svc := new(MockEarningsService)
	owner := uuid.New()

	svc.On("Export", mock.Anything, owner, domain.LedgerCommission, mock.Anything, "csv").
		Return(&earnings.ExportFile{
			Filename:    "commissions-this-month-20240601.csv",
			ContentType: "text/csv",
			Data:        []byte("Date,ID\n"),
		}, nil)

	rec := serve(newRouter(svc), owner, "/commissions/export?format=csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="commissions-this-month-20240601.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Date,ID\n", rec.Body.String())
}

func TestEarningsHandler_RankProgress(t *testing.T) {
	svc := new(MockEarningsService)
	owner := uuid.New()

	svc.On("RankProgress", mock.Anything, owner).
		Return(&rank.Progress{Current: rank.Rank{Level: 2, Name: "Silver"}, OverallPercent: 40.67}, nil)

	rec := serve(newRouter(svc), owner, "/rank/progress")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Silver")
}

func TestSystemHandler_Ready(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	h := NewSystemHandler(map[string]Pinger{"redis": up}, logger.NewNop())
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h = NewSystemHandler(map[string]Pinger{"redis": up, "database": down}, logger.NewNop())
	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Services, 2)
	assert.Equal(t, "database", body.Services[0].ID)
	assert.Equal(t, "outage", body.Services[0].Status)
	assert.Equal(t, "operational", body.Services[1].Status)
}

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler(nil, logger.NewNop())
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
