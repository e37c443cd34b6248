package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/infrastructure/postgres"
	"github.com/iho/dealsync/internal/infrastructure/postgres/generated"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool    *pgxpool.Pool
	Queries *generated.Queries
	t       *testing.T
}

// NewTestDB connects to DATABASE_URL and applies the embedded migrations.
// The test is skipped when no database is configured.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := postgres.RunMigrations(dbURL, ""); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dbURL, 5, 1)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool:    pool,
		Queries: generated.New(pool),
		t:       t,
	}
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE transaction_allocations CASCADE;
		TRUNCATE TABLE transactions CASCADE;
		TRUNCATE TABLE sync_runs CASCADE;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// CountTransactions returns the number of local transactions of a company.
func (db *TestDB) CountTransactions(ctx context.Context, companyID int64) int {
	db.t.Helper()

	var n int
	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE company_id = $1`, companyID).Scan(&n); err != nil {
		db.t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}

// FakeLedger serves the subset of the bookkeeping API used by a sync run.
type FakeLedger struct {
	Server *httptest.Server

	mu         sync.Mutex
	deals      []*domain.DealHeader
	references map[string][]domain.ReferenceItem
}

// NewFakeLedger starts a fake ledger holding deals. It is closed with the test.
func NewFakeLedger(t *testing.T, deals ...*domain.DealHeader) *FakeLedger {
	t.Helper()

	f := &FakeLedger{
		deals: deals,
		references: map[string][]domain.ReferenceItem{
			"partners":      {},
			"account_items": {},
			"tags":          {},
		},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)

	return f
}

// SetDeals replaces the upstream deal set.
func (f *FakeLedger) SetDeals(deals ...*domain.DealHeader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deals = deals
}

// SetReferences replaces one reference list ("partners", "account_items", "tags").
func (f *FakeLedger) SetReferences(kind string, items ...domain.ReferenceItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.references[kind] = items
}

func (f *FakeLedger) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api/1/")

	switch {
	case path == "deals":
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		page := []*domain.DealHeader{}
		for i := offset; i < len(f.deals) && len(page) < limit; i++ {
			d := *f.deals[i]
			d.Details = nil
			page = append(page, &d)
		}
		writeJSON(w, map[string]any{"deals": page})

	case strings.HasPrefix(path, "deals/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(path, "deals/"), 10, 64)
		for _, d := range f.deals {
			if d.ID == id {
				writeJSON(w, map[string]any{"deal": d})
				return
			}
		}
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)

	default:
		items, ok := f.references[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{path: items})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
