package mocks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/usecase"
)

// FakeTransactionRepository is an in-memory TransactionRepository. It counts
// writes so tests can assert that a skip touched nothing.
type FakeTransactionRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.LocalTransaction

	Creates int
	Updates int
	Deletes int

	ListByDealIDsFunc func(ctx context.Context, companyID int64, dealIDs []int64) ([]*domain.LocalTransaction, error)
	ListInRangeFunc   func(ctx context.Context, companyID int64, from, to time.Time) ([]*domain.LocalTransaction, error)
	CreateTxFunc      func(ctx context.Context, tx usecase.Transaction, txn *domain.LocalTransaction) error
	UpdateTxFunc      func(ctx context.Context, tx usecase.Transaction, txn *domain.LocalTransaction) error
	DeleteTxFunc      func(ctx context.Context, tx usecase.Transaction, id string) error
}

func NewFakeTransactionRepository(seed ...*domain.LocalTransaction) *FakeTransactionRepository {
	m := &FakeTransactionRepository{records: make(map[string]*domain.LocalTransaction)}
	for _, txn := range seed {
		cp := *txn
		m.records[txn.ID] = &cp
	}
	return m
}

func (m *FakeTransactionRepository) ListByDealIDs(ctx context.Context, companyID int64, dealIDs []int64) ([]*domain.LocalTransaction, error) {
	if m.ListByDealIDsFunc != nil {
		return m.ListByDealIDsFunc(ctx, companyID, dealIDs)
	}
	return m.filter(func(txn *domain.LocalTransaction) bool {
		return txn.CompanyID == companyID && slices.Contains(dealIDs, txn.Identity.DealID)
	}), nil
}

func (m *FakeTransactionRepository) ListInRange(ctx context.Context, companyID int64, from, to time.Time) ([]*domain.LocalTransaction, error) {
	if m.ListInRangeFunc != nil {
		return m.ListInRangeFunc(ctx, companyID, from, to)
	}
	return m.filter(func(txn *domain.LocalTransaction) bool {
		return txn.CompanyID == companyID && !txn.Date.Before(from) && !txn.Date.After(to)
	}), nil
}

func (m *FakeTransactionRepository) CreateTx(ctx context.Context, tx usecase.Transaction, txn *domain.LocalTransaction) error {
	if m.CreateTxFunc != nil {
		if err := m.CreateTxFunc(ctx, tx, txn); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.CompanyID == txn.CompanyID && existing.Identity == txn.Identity {
			return domain.ErrDuplicateIdentity
		}
	}
	cp := *txn
	m.records[txn.ID] = &cp
	m.Creates++
	return nil
}

func (m *FakeTransactionRepository) UpdateTx(ctx context.Context, tx usecase.Transaction, txn *domain.LocalTransaction) error {
	if m.UpdateTxFunc != nil {
		if err := m.UpdateTxFunc(ctx, tx, txn); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[txn.ID]; !ok {
		return domain.ErrTransactionNotFound
	}
	cp := *txn
	m.records[txn.ID] = &cp
	m.Updates++
	return nil
}

func (m *FakeTransactionRepository) DeleteTx(ctx context.Context, tx usecase.Transaction, id string) error {
	if m.DeleteTxFunc != nil {
		if err := m.DeleteTxFunc(ctx, tx, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.records, id)
	m.Deletes++
	return nil
}

// Writes returns the number of successful creates, updates and deletes.
func (m *FakeTransactionRepository) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Creates + m.Updates + m.Deletes
}

// ByIdentity returns a copy of the stored record with the given identity.
func (m *FakeTransactionRepository) ByIdentity(identity domain.ExternalIdentity) (*domain.LocalTransaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, txn := range m.records {
		if txn.Identity == identity {
			cp := *txn
			return &cp, true
		}
	}
	return nil, false
}

// Len returns the number of stored records.
func (m *FakeTransactionRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *FakeTransactionRepository) filter(keep func(*domain.LocalTransaction) bool) []*domain.LocalTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LocalTransaction
	for _, txn := range m.records {
		if keep(txn) {
			cp := *txn
			out = append(out, &cp)
		}
	}
	return out
}

// FakeSyncRunRepository is an in-memory SyncRunRepository.
type FakeSyncRunRepository struct {
	mu   sync.Mutex
	Runs []*domain.SyncRun

	CreateFunc func(ctx context.Context, run *domain.SyncRun) error
}

func NewFakeSyncRunRepository() *FakeSyncRunRepository {
	return &FakeSyncRunRepository{}
}

func (m *FakeSyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.Runs = append(m.Runs, &cp)
	return nil
}

func (m *FakeSyncRunRepository) Finish(ctx context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.Runs {
		if r.ID == run.ID {
			cp := *run
			m.Runs[i] = &cp
			return nil
		}
	}
	return domain.ErrSyncRunNotFound
}

func (m *FakeSyncRunRepository) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SyncRun
	for i := len(m.Runs) - 1; i >= 0; i-- {
		if m.Runs[i].CompanyID == companyID {
			out = append(out, m.Runs[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

// FakeLedgerClient serves deals and reference data from memory and counts
// upstream calls.
type FakeLedgerClient struct {
	mu         sync.Mutex
	Deals      []*domain.DealHeader
	References map[domain.ReferenceType][]domain.ReferenceItem

	ListCalls      int
	DetailCalls    int
	ReferenceCalls map[domain.ReferenceType]int
	Queries        []domain.DealQuery

	ListDealsFunc         func(ctx context.Context, companyID int64, query domain.DealQuery) ([]*domain.DealHeader, error)
	GetDealFunc           func(ctx context.Context, companyID, dealID int64) (*domain.DealHeader, error)
	ListReferenceDataFunc func(ctx context.Context, companyID int64, refType domain.ReferenceType) ([]domain.ReferenceItem, error)
}

func NewFakeLedgerClient(deals ...*domain.DealHeader) *FakeLedgerClient {
	return &FakeLedgerClient{
		Deals:          deals,
		References:     make(map[domain.ReferenceType][]domain.ReferenceItem),
		ReferenceCalls: make(map[domain.ReferenceType]int),
	}
}

func (m *FakeLedgerClient) ListDeals(ctx context.Context, companyID int64, query domain.DealQuery) ([]*domain.DealHeader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	m.Queries = append(m.Queries, query)
	if m.ListDealsFunc != nil {
		return m.ListDealsFunc(ctx, companyID, query)
	}
	if query.Offset >= len(m.Deals) {
		return nil, nil
	}
	page := m.Deals[query.Offset:min(query.Offset+query.Limit, len(m.Deals))]
	headers := make([]*domain.DealHeader, 0, len(page))
	for _, d := range page {
		headers = append(headers, &domain.DealHeader{ID: d.ID, CompanyID: d.CompanyID, IssueDate: d.IssueDate, Type: d.Type})
	}
	return headers, nil
}

func (m *FakeLedgerClient) GetDeal(ctx context.Context, companyID, dealID int64) (*domain.DealHeader, error) {
	m.mu.Lock()
	m.DetailCalls++
	m.mu.Unlock()
	if m.GetDealFunc != nil {
		return m.GetDealFunc(ctx, companyID, dealID)
	}
	for _, d := range m.Deals {
		if d.ID == dealID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("deal %d not found", dealID)
}

func (m *FakeLedgerClient) ListReferenceData(ctx context.Context, companyID int64, refType domain.ReferenceType) ([]domain.ReferenceItem, error) {
	m.mu.Lock()
	m.ReferenceCalls[refType]++
	m.mu.Unlock()
	if m.ListReferenceDataFunc != nil {
		return m.ListReferenceDataFunc(ctx, companyID, refType)
	}
	return m.References[refType], nil
}

// FakeClock is a settable Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FakeTransactionManager is a stub TransactionManager.
type FakeTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewFakeTransactionManager() *FakeTransactionManager {
	return &FakeTransactionManager{}
}

func (m *FakeTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &FakeTransaction{}, nil
}

// FakeTransaction is a stub Transaction.
type FakeTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *FakeTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *FakeTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// FakeIDGenerator returns fake-id-1, fake-id-2, ...
type FakeIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewFakeIDGenerator() *FakeIDGenerator {
	return &FakeIDGenerator{}
}

func (m *FakeIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("fake-id-%d", m.counter)
}

// FakeIdempotencyStore is an in-memory IdempotencyStore.
type FakeIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewFakeIdempotencyStore() *FakeIdempotencyStore {
	return &FakeIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *FakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *FakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}
