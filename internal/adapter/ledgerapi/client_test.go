package ledgerapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/dealsync/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:        srv.URL,
		Credentials:    NewStaticCredentials("secret", time.Time{}),
		RequestTimeout: time.Second,
		RateLimit:      1000,
		RateBurst:      100,
		MaxRetries:     2,
		Logger:         zerolog.Nop(),
	})
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	return c, srv
}

func TestClient_ListDeals(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/1/deals", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "42", q.Get("company_id"))
		assert.Equal(t, "2024-04-01", q.Get("start_issue_date"))
		assert.Equal(t, "2024-04-30", q.Get("end_issue_date"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "200", q.Get("offset"))

		_, _ = w.Write([]byte(`{"deals":[{"id":9007199254740993,"company_id":42,"issue_date":"2024-04-02","type":"expense"}]}`))
	})

	deals, err := c.ListDeals(context.Background(), 42, domain.DealQuery{
		DateFrom: "2024-04-01",
		DateTo:   "2024-04-30",
		Limit:    100,
		Offset:   200,
	})
	require.NoError(t, err)

	require.Len(t, deals, 1)
	assert.Equal(t, int64(9007199254740993), deals[0].ID, "ids above 2^53 must survive decoding")
	assert.Equal(t, "expense", deals[0].Type)
}

func TestClient_GetDeal(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/1/deals/9001", r.URL.Path)
		_, _ = w.Write([]byte(`{"deal":{"id":9001,"issue_date":"2024-04-02","type":"expense","partner_id":7,
			"details":[{"id":1,"account_item_id":30,"amount":15000,"description":"Paper"}],
			"receipts":[{"id":90}]}}`))
	})

	deal, err := c.GetDeal(context.Background(), 42, 9001)
	require.NoError(t, err)

	require.Len(t, deal.Details, 1)
	assert.Equal(t, "15000", deal.Details[0].Amount.String())
	assert.Equal(t, int64(7), *deal.PartnerID)
	assert.Equal(t, int64(90), deal.Receipts[0].ID)
}

func TestClient_ListReferenceData(t *testing.T) {
	tests := []struct {
		refType domain.ReferenceType
		path    string
		body    string
	}{
		{domain.ReferencePartner, "/api/1/partners", `{"partners":[{"id":7,"name":"Acme","code":"A1"}]}`},
		{domain.ReferenceAccountItem, "/api/1/account_items", `{"account_items":[{"id":7,"name":"Acme"}]}`},
		{domain.ReferenceTag, "/api/1/tags", `{"tags":[{"id":7,"name":"Acme"}]}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.refType), func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			items, err := c.ListReferenceData(context.Background(), 42, tt.refType)
			require.NoError(t, err)
			assert.Equal(t, []domain.ReferenceItem{{ID: 7, Name: "Acme"}}, items)
		})
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"deals":[]}`))
	})

	_, err := c.ListDeals(context.Background(), 42, domain.DealQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ListDeals(context.Background(), 42, domain.DealQuery{Limit: 10})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestClient_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
	})

	_, err := c.GetDeal(context.Background(), 42, 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MalformedBodyIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"deals":`))
	})

	_, err := c.ListDeals(context.Background(), 42, domain.DealQuery{Limit: 10})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CredentialChecks(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	c.credentials = NewStaticCredentials("", time.Time{})
	_, err := c.ListDeals(context.Background(), 42, domain.DealQuery{})
	assert.ErrorIs(t, err, domain.ErrCredentialMissing)

	c.credentials = NewStaticCredentials("secret", time.Now().Add(-time.Minute))
	_, err = c.ListDeals(context.Background(), 42, domain.DealQuery{})
	assert.ErrorIs(t, err, domain.ErrCredentialExpired)

	assert.Zero(t, calls.Load(), "no request without a valid credential")
}

func TestClient_RequestTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	c.timeout = 20 * time.Millisecond
	c.maxRetries = 1

	start := time.Now()
	_, err := c.GetDeal(context.Background(), 42, 1)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

type recordingObserver struct {
	statuses []string
}

func (o *recordingObserver) ObserveUpstream(endpoint, status string, _ time.Duration) {
	o.statuses = append(o.statuses, endpoint+":"+status)
}

func TestClient_ReportsUpstreamMetrics(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tags":[]}`))
	})
	obs := &recordingObserver{}
	c.observer = obs

	_, err := c.ListReferenceData(context.Background(), 42, domain.ReferenceTag)
	require.NoError(t, err)

	assert.Equal(t, []string{"reference:200"}, obs.statuses)
}

func TestClient_CallBudget(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		maxRetries uint64
		want       time.Duration
	}{
		{"elapsed cap wins", 10 * time.Second, 3, 40 * time.Second},
		{"few retries", 2 * time.Second, 1, 14 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(Config{RequestTimeout: tt.timeout, MaxRetries: tt.maxRetries, Logger: zerolog.Nop()})
			assert.Equal(t, tt.want, c.CallBudget())
		})
	}
}
