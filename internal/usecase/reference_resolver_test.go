package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/usecase"
	"github.com/iho/dealsync/internal/usecase/mocks"
)

type lookupCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *lookupCounter) ObserveRun(string, time.Duration) {}
func (c *lookupCounter) AddRecords(string, int)           {}
func (c *lookupCounter) ReferenceLookup(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[result]++
}

func newResolverFixture() (*usecase.ReferenceResolver, *mocks.FakeLedgerClient, *mocks.FakeClock, *lookupCounter) {
	client := mocks.NewFakeLedgerClient()
	client.References[domain.ReferencePartner] = []domain.ReferenceItem{{ID: 7, Name: " Acme Corp "}}
	client.References[domain.ReferenceAccountItem] = []domain.ReferenceItem{{ID: 30, Name: "Supplies"}}
	client.References[domain.ReferenceTag] = []domain.ReferenceItem{{ID: 1, Name: "travel"}, {ID: 2, Name: "client"}}

	clock := mocks.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	counter := &lookupCounter{counts: make(map[string]int)}

	resolver := usecase.NewReferenceResolver(usecase.ReferenceResolverConfig{
		Client:             client,
		Clock:              clock,
		TTL:                30 * time.Minute,
		MissReloadInterval: time.Minute,
		Logger:             zerolog.Nop(),
		Metrics:            counter,
	})

	return resolver, client, clock, counter
}

func TestReferenceResolver_HitAfterFirstLoad(t *testing.T) {
	resolver, client, _, counter := newResolverFixture()
	ctx := context.Background()

	assert.Equal(t, "Acme Corp", resolver.Resolve(ctx, companyID, domain.ReferencePartner, 7))
	assert.Equal(t, "Acme Corp", resolver.Resolve(ctx, companyID, domain.ReferencePartner, 7))

	assert.Equal(t, 1, client.ReferenceCalls[domain.ReferencePartner])
	assert.Equal(t, 1, counter.counts["hit"])
	assert.Equal(t, 1, counter.counts["miss"])
}

func TestReferenceResolver_ZeroIDIsEmpty(t *testing.T) {
	resolver, client, _, _ := newResolverFixture()

	assert.Empty(t, resolver.Resolve(context.Background(), companyID, domain.ReferencePartner, 0))
	assert.Zero(t, client.ReferenceCalls[domain.ReferencePartner])
}

func TestReferenceResolver_UnknownIDFallsBackWithoutRefetch(t *testing.T) {
	resolver, client, clock, _ := newResolverFixture()
	ctx := context.Background()

	resolver.Preload(ctx, companyID, domain.ReferencePartner)
	assert.Equal(t, "partner#99", resolver.Resolve(ctx, companyID, domain.ReferencePartner, 99))
	assert.Equal(t, 1, client.ReferenceCalls[domain.ReferencePartner], "recent load must not be repeated")

	// Once the miss-reload interval has passed the type is fetched again.
	client.References[domain.ReferencePartner] = append(client.References[domain.ReferencePartner], domain.ReferenceItem{ID: 99, Name: "New Vendor"})
	clock.Advance(2 * time.Minute)

	assert.Equal(t, "New Vendor", resolver.Resolve(ctx, companyID, domain.ReferencePartner, 99))
	assert.Equal(t, 2, client.ReferenceCalls[domain.ReferencePartner])
}

func TestReferenceResolver_UpstreamFailureFallsBack(t *testing.T) {
	resolver, client, clock, counter := newResolverFixture()
	ctx := context.Background()

	client.ListReferenceDataFunc = func(context.Context, int64, domain.ReferenceType) ([]domain.ReferenceItem, error) {
		return nil, errors.New("503 service unavailable")
	}

	assert.Equal(t, "account_item#30", resolver.Resolve(ctx, companyID, domain.ReferenceAccountItem, 30))
	assert.Equal(t, "account_item#31", resolver.Resolve(ctx, companyID, domain.ReferenceAccountItem, 31))
	assert.Equal(t, 1, client.ReferenceCalls[domain.ReferenceAccountItem], "failed load is not retried on every miss")
	assert.Equal(t, 2, counter.counts["fallback"])

	client.ListReferenceDataFunc = nil
	clock.Advance(2 * time.Minute)

	assert.Equal(t, "Supplies", resolver.Resolve(ctx, companyID, domain.ReferenceAccountItem, 30))
}

func TestReferenceResolver_ExpiresWholesale(t *testing.T) {
	resolver, client, clock, _ := newResolverFixture()
	ctx := context.Background()

	resolver.Preload(ctx, companyID, domain.ReferenceTypes...)
	require.Equal(t, 4, resolver.Len())

	client.References[domain.ReferencePartner] = []domain.ReferenceItem{{ID: 7, Name: "Acme Holdings"}}

	clock.Advance(29 * time.Minute)
	assert.Equal(t, "Acme Corp", resolver.Resolve(ctx, companyID, domain.ReferencePartner, 7))

	clock.Advance(time.Minute)
	assert.Equal(t, "Acme Holdings", resolver.Resolve(ctx, companyID, domain.ReferencePartner, 7))
	assert.Equal(t, 1, resolver.Len(), "only the reloaded type is cached after expiry")
}

func TestReferenceResolver_Invalidate(t *testing.T) {
	resolver, client, _, _ := newResolverFixture()
	ctx := context.Background()

	resolver.Preload(ctx, companyID, domain.ReferencePartner)
	resolver.Invalidate()
	assert.Zero(t, resolver.Len())

	resolver.Preload(ctx, companyID, domain.ReferencePartner)
	assert.Equal(t, 2, client.ReferenceCalls[domain.ReferencePartner])
}

func TestReferenceResolver_PreloadSkipsLoadedTypes(t *testing.T) {
	resolver, client, _, _ := newResolverFixture()
	ctx := context.Background()

	resolver.Preload(ctx, companyID, domain.ReferenceTypes...)
	resolver.Preload(ctx, companyID, domain.ReferenceTypes...)

	for _, rt := range domain.ReferenceTypes {
		assert.Equal(t, 1, client.ReferenceCalls[rt], string(rt))
	}
}

func TestReferenceResolver_CoalescesConcurrentLoads(t *testing.T) {
	resolver, client, _, _ := newResolverFixture()

	release := make(chan struct{})
	client.ListReferenceDataFunc = func(context.Context, int64, domain.ReferenceType) ([]domain.ReferenceItem, error) {
		<-release
		return []domain.ReferenceItem{{ID: 7, Name: "Acme Corp"}}, nil
	}

	var wg sync.WaitGroup
	names := make([]string, 8)
	for i := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names[i] = resolver.Resolve(context.Background(), companyID, domain.ReferencePartner, 7)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, name := range names {
		assert.Equal(t, "Acme Corp", name)
	}
	assert.Equal(t, 1, client.ReferenceCalls[domain.ReferencePartner])
}

func TestReferenceResolver_CompaniesAreIsolated(t *testing.T) {
	resolver, client, _, _ := newResolverFixture()
	ctx := context.Background()

	resolver.Resolve(ctx, 1, domain.ReferencePartner, 7)
	resolver.Resolve(ctx, 2, domain.ReferencePartner, 7)

	assert.Equal(t, 2, client.ReferenceCalls[domain.ReferencePartner])
}

func TestReferenceResolver_ResolveLabels(t *testing.T) {
	resolver, _, _, _ := newResolverFixture()

	c := &domain.Candidate{
		CompanyID:     companyID,
		AccountItemID: 30,
		PartnerID:     7,
		TagIDs:        []int64{2, 1, 5},
	}
	resolver.ResolveLabels(context.Background(), c)

	assert.Equal(t, "Supplies", c.AccountLabel)
	assert.Equal(t, "Acme Corp", c.CounterpartyLabel)
	assert.Equal(t, domain.JoinLabels([]string{"client", "travel", "tag#5"}), c.Tags)
}
