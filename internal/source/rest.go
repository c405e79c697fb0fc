package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"networkpay/internal/domain"
	"networkpay/pkg/errors"
)

const (
	maxResponseBytes = 16 << 20
	maxUpstreamPages = 100
)

// RESTProvider reads history from the upstream dashboard API.
type RESTProvider struct {
	baseURL  string
	pageSize int
	client   *http.Client
}

func NewRESTProvider(baseURL string, timeout time.Duration, pageSize int) *RESTProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if pageSize < 1 {
		pageSize = 1000
	}
	return &RESTProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *RESTProvider) Name() string {
	return "rest"
}

// wireRecord is the upstream JSON shape. Older endpoints send the commission
// category as "type".
type wireRecord struct {
	ID       string          `json:"id"`
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	Category string          `json:"category"`
	Type     string          `json:"type"`
	Source   string          `json:"source"`
}

// Records follows the upstream pages until the reported page count is
// reached, a short page comes back, or a page adds no new records.
func (p *RESTProvider) Records(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) ([]domain.Record, error) {
	records := make([]domain.Record, 0)
	seen := make(map[string]struct{})

	for page := 1; page <= maxUpstreamPages; page++ {
		wire, totalPages, err := p.fetchPage(ctx, owner, ledger, page)
		if err != nil {
			return nil, err
		}

		added := 0
		for _, w := range wire {
			if w.ID != "" {
				if _, dup := seen[w.ID]; dup {
					continue
				}
				seen[w.ID] = struct{}{}
			}
			added++
			if w.Date.IsZero() {
				continue
			}
			records = append(records, toRecord(w, owner, ledger))
		}

		switch {
		case totalPages > 0 && page >= totalPages:
			return records, nil
		case totalPages == 0 && len(wire) < p.pageSize:
			return records, nil
		case added == 0:
			return records, nil
		}
	}
	return records, nil
}

func (p *RESTProvider) fetchPage(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, page int) ([]wireRecord, int, error) {
	q := url.Values{}
	q.Set("userId", owner.String())
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(p.pageSize))
	endpoint := fmt.Sprintf("%s/%s/history?%s", p.baseURL, ledger.Plural(), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s history: %w", ledger, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: %s history returned %d", errors.ErrUpstreamStatus, ledger, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read body: %w", err)
	}

	wire, totalPages, err := decodeHistory(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s history page %d: %w", ledger, page, err)
	}
	return wire, totalPages, nil
}

func toRecord(w wireRecord, owner uuid.UUID, ledger domain.Ledger) domain.Record {
	category := w.Category
	if category == "" {
		category = w.Type
	}
	if category == "" && ledger == domain.LedgerPayout {
		category = w.Status
	}
	currency := w.Currency
	if currency == "" {
		currency = "USD"
	}
	return domain.Record{
		ID:       w.ID,
		OwnerID:  owner,
		Ledger:   ledger,
		Date:     w.Date,
		Amount:   w.Amount,
		Currency: strings.ToUpper(currency),
		Status:   strings.ToLower(w.Status),
		Category: strings.ToLower(category),
		Source:   w.Source,
	}
}

// decodeHistory accepts a bare array or an envelope with the array under
// "data", "items" or "history". The page count is 0 when the body does not
// report one.
func decodeHistory(body []byte) ([]wireRecord, int, error) {
	body = bytes.TrimSpace(body)
	var out []wireRecord
	if len(body) > 0 && body[0] == '[' {
		err := json.Unmarshal(body, &out)
		return out, 0, err
	}

	var envelope struct {
		Data       []wireRecord `json:"data"`
		Items      []wireRecord `json:"items"`
		History    []wireRecord `json:"history"`
		TotalPages int          `json:"totalPages"`
		Pagination struct {
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, err
	}
	totalPages := envelope.TotalPages
	if totalPages == 0 {
		totalPages = envelope.Pagination.TotalPages
	}
	switch {
	case envelope.Data != nil:
		return envelope.Data, totalPages, nil
	case envelope.Items != nil:
		return envelope.Items, totalPages, nil
	default:
		return envelope.History, totalPages, nil
	}
}
