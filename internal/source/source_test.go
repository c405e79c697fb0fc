package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"networkpay/internal/domain"
	"networkpay/pkg/cache"
	"networkpay/pkg/errors"
	"networkpay/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockProviderStub struct {
	mock.Mock
}

func (m *MockProviderStub) Name() string {
	return "stub"
}

func (m *MockProviderStub) Records(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error) {
	args := m.Called(ctx, owner, ledger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Record), args.Error(1)
}

type memorySnapshots struct {
	mu    sync.Mutex
	snaps map[string]*cache.Snapshot
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{snaps: make(map[string]*cache.Snapshot)}
}

func (m *memorySnapshots) SaveSnapshot(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, records []domain.Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[owner.String()+string(ledger)] = &cache.Snapshot{Records: records, FetchedAt: time.Now()}
	return nil
}

func (m *memorySnapshots) LoadSnapshot(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) (*cache.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[owner.String()+string(ledger)]
	if !ok {
		return nil, errors.ErrCacheMiss
	}
	return snap, nil
}

type countingRecorder struct {
	mu        sync.Mutex
	fetches   int
	fallbacks map[string]int
}

func (r *countingRecorder) ObserveFetch(string, time.Duration, error) {
	r.mu.Lock()
	r.fetches++
	r.mu.Unlock()
}

func (r *countingRecorder) RecordFallback(provider, reason string) {
	r.mu.Lock()
	if r.fallbacks == nil {
		r.fallbacks = make(map[string]int)
	}
	r.fallbacks[provider+"/"+reason]++
	r.mu.Unlock()
}

func sampleRecords(owner uuid.UUID) []domain.Record {
	return []domain.Record{{
		ID:       "r-1",
		OwnerID:  owner,
		Ledger:   domain.LedgerCommission,
		Date:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.NewFromInt(42),
		Currency: "USD",
		Status:   domain.StatusPaid,
		Category: domain.CategoryDirect,
	}}
}

// --- REST ---

func TestRESTProvider_DecodesHistory(t *testing.T) {
	owner := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/commissions/history", r.URL.Path)
		assert.Equal(t, owner.String(), r.URL.Query().Get("userId"))
		assert.Equal(t, "250", r.URL.Query().Get("pageSize"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"c-1","date":"2024-05-01T10:00:00Z","amount":120.5,"currency":"usd","status":"Paid","type":"C1","source":"order-1"},
			{"id":"c-2","date":"2024-05-03T10:00:00Z","amount":"30","status":"pending","category":"c2"}
		]}`))
	}))
	defer srv.Close()

	p := NewRESTProvider(srv.URL+"/api/", time.Second, 250)
	records, err := p.Records(context.Background(), owner, domain.LedgerCommission)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "c1", records[0].Category)
	assert.Equal(t, "paid", records[0].Status)
	assert.Equal(t, "USD", records[0].Currency)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("120.5")))
	assert.Equal(t, owner, records[0].OwnerID)
	assert.Equal(t, "USD", records[1].Currency)
	assert.Equal(t, domain.LedgerCommission, records[1].Ledger)
}

func TestRESTProvider_PayoutCategoryFromStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payouts/history", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"p-1","date":"2024-05-01T00:00:00Z","amount":10,"status":"completed"}]`))
	}))
	defer srv.Close()

	records, err := NewRESTProvider(srv.URL, time.Second, 10).Records(context.Background(), uuid.New(), domain.LedgerPayout)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "completed", records[0].Category)
}

func TestRESTProvider_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewRESTProvider(srv.URL, time.Second, 10).Records(context.Background(), uuid.New(), domain.LedgerPurchase)
	assert.ErrorIs(t, err, errors.ErrUpstreamStatus)
}

func TestRESTProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewRESTProvider(srv.URL, 50*time.Millisecond, 10).Records(context.Background(), uuid.New(), domain.LedgerPurchase)
	assert.Error(t, err)
}

func historyRow(id string, day int) string {
	return fmt.Sprintf(`{"id":%q,"date":"2024-05-%02dT10:00:00Z","amount":10,"status":"paid","category":"c1"}`, id, day)
}

func TestRESTProvider_FollowsReportedPages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page := r.URL.Query().Get("page")
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))
		switch page {
		case "1":
			_, _ = fmt.Fprintf(w, `{"data":[%s,%s],"totalPages":3}`, historyRow("a", 1), historyRow("b", 2))
		case "2":
			_, _ = fmt.Fprintf(w, `{"data":[%s,%s],"totalPages":3}`, historyRow("c", 3), historyRow("d", 4))
		default:
			_, _ = fmt.Fprintf(w, `{"data":[%s],"totalPages":3}`, historyRow("e", 5))
		}
	}))
	defer srv.Close()

	records, err := NewRESTProvider(srv.URL, time.Second, 2).Records(context.Background(), uuid.New(), domain.LedgerCommission)
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRESTProvider_BareArrayStopsOnShortPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("page") == "1" {
			_, _ = fmt.Fprintf(w, `[%s,%s]`, historyRow("a", 1), historyRow("b", 2))
			return
		}
		_, _ = fmt.Fprintf(w, `[%s]`, historyRow("c", 3))
	}))
	defer srv.Close()

	records, err := NewRESTProvider(srv.URL, time.Second, 2).Records(context.Background(), uuid.New(), domain.LedgerCommission)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRESTProvider_StopsWhenPageParamIgnored(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprintf(w, `[%s,%s]`, historyRow("a", 1), historyRow("b", 2))
	}))
	defer srv.Close()

	records, err := NewRESTProvider(srv.URL, time.Second, 2).Records(context.Background(), uuid.New(), domain.LedgerCommission)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRESTProvider_SkipsUndatedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows := []string{historyRow("a", 1), `{"id":"b","amount":5,"status":"paid"}`}
		_, _ = fmt.Fprintf(w, `[%s]`, strings.Join(rows, ","))
	}))
	defer srv.Close()

	records, err := NewRESTProvider(srv.URL, time.Second, 10).Records(context.Background(), uuid.New(), domain.LedgerCommission)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
}

// --- Mock ---

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider()
	fixed := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	owner := uuid.New()

	first, err := p.Records(context.Background(), owner, domain.LedgerPurchase)
	require.NoError(t, err)
	second, err := p.Records(context.Background(), owner, domain.LedgerPurchase)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 60)

	other, err := p.Records(context.Background(), uuid.New(), domain.LedgerPurchase)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ID, other[0].ID)

	for _, r := range first {
		assert.False(t, r.Date.After(fixed))
		assert.True(t, r.Amount.IsPositive())
		assert.Contains(t, []string{domain.PurchasePersonal, domain.PurchaseDirect, domain.PurchaseTeam}, r.Category)
	}
}

func TestMockProvider_PayoutCategoryIsStatus(t *testing.T) {
	records, err := NewMockProvider().Records(context.Background(), uuid.New(), domain.LedgerPayout)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, r.Status, r.Category)
	}
}

// --- Fallback ---

func TestFallbackProvider_StoresSnapshotOnSuccess(t *testing.T) {
	owner := uuid.New()
	primary := new(MockProviderStub)
	primary.On("Records", mock.Anything, owner, domain.LedgerCommission).Return(sampleRecords(owner), nil)

	snaps := newMemorySnapshots()
	p := NewFallbackProvider(primary, snaps, nil, FallbackConfig{}, logger.NewNop(), nil)

	records, err := p.Records(context.Background(), owner, domain.LedgerCommission)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	snap, err := snaps.LoadSnapshot(context.Background(), owner, domain.LedgerCommission)
	require.NoError(t, err)
	assert.Equal(t, records, snap.Records)
	primary.AssertExpectations(t)
}

func TestFallbackProvider_ServesSnapshotOnFailure(t *testing.T) {
	owner := uuid.New()
	snaps := newMemorySnapshots()
	require.NoError(t, snaps.SaveSnapshot(context.Background(), owner, domain.LedgerCommission, sampleRecords(owner), time.Hour))

	primary := new(MockProviderStub)
	primary.On("Records", mock.Anything, owner, domain.LedgerCommission).Return(nil, errors.ErrUpstreamStatus)
	rec := &countingRecorder{}

	p := NewFallbackProvider(primary, snaps, NewMockProvider(), FallbackConfig{}, logger.NewNop(), rec)
	records, err := p.Records(context.Background(), owner, domain.LedgerCommission)
	require.NoError(t, err)
	assert.Equal(t, "r-1", records[0].ID)
	assert.Equal(t, 1, rec.fallbacks["snapshot/error"])
	assert.Equal(t, 1, rec.fetches)
}

func TestFallbackProvider_UsesMockWhenNoSnapshot(t *testing.T) {
	owner := uuid.New()
	primary := new(MockProviderStub)
	primary.On("Records", mock.Anything, owner, domain.LedgerPayout).Return(nil, context.DeadlineExceeded)
	rec := &countingRecorder{}

	p := NewFallbackProvider(primary, newMemorySnapshots(), NewMockProvider(), FallbackConfig{}, logger.NewNop(), rec)
	records, err := p.Records(context.Background(), owner, domain.LedgerPayout)
	require.NoError(t, err)
	assert.NotEmpty(t, records)
	assert.Equal(t, 1, rec.fallbacks["mock/timeout"])
}

func TestFallbackProvider_Unavailable(t *testing.T) {
	owner := uuid.New()
	primary := new(MockProviderStub)
	primary.On("Records", mock.Anything, owner, domain.LedgerPurchase).Return(nil, errors.ErrUpstreamStatus)

	p := NewFallbackProvider(primary, newMemorySnapshots(), nil, FallbackConfig{}, logger.NewNop(), nil)
	_, err := p.Records(context.Background(), owner, domain.LedgerPurchase)
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)
}

func TestFallbackProvider_AppliesTimeout(t *testing.T) {
	owner := uuid.New()
	primary := new(MockProviderStub)
	primary.On("Records", mock.Anything, owner, domain.LedgerCommission).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	p := NewFallbackProvider(primary, nil, NewMockProvider(), FallbackConfig{Timeout: 20 * time.Millisecond}, logger.NewNop(), nil)
	records, err := p.Records(context.Background(), owner, domain.LedgerCommission)
	require.NoError(t, err)
	assert.NotEmpty(t, records)
}

func TestFallbackProvider_Refresh(t *testing.T) {
	owner := uuid.New()
	primary := new(MockProviderStub)
	primary.On("Records", mock.Anything, owner, domain.LedgerCommission).Return(sampleRecords(owner), nil).Once()
	primary.On("Records", mock.Anything, owner, domain.LedgerCommission).Return(nil, errors.ErrUpstreamStatus).Once()

	snaps := newMemorySnapshots()
	p := NewFallbackProvider(primary, snaps, NewMockProvider(), FallbackConfig{}, logger.NewNop(), nil)

	require.NoError(t, p.Refresh(context.Background(), owner, domain.LedgerCommission))
	assert.ErrorIs(t, p.Refresh(context.Background(), owner, domain.LedgerCommission), errors.ErrUpstreamStatus)

	snap, err := snaps.LoadSnapshot(context.Background(), owner, domain.LedgerCommission)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 1)
}
