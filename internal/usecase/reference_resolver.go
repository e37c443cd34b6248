package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/iho/dealsync/internal/domain"
)

// Reference lookup results reported to metrics.
const (
	lookupHit      = "hit"
	lookupMiss     = "miss"
	lookupFallback = "fallback"
)

type refKey struct {
	companyID int64
	refType   domain.ReferenceType
	id        int64
}

type loadKey struct {
	companyID int64
	refType   domain.ReferenceType
}

// ReferenceResolverConfig configures a ReferenceResolver.
type ReferenceResolverConfig struct {
	Client             LedgerClient
	Clock              Clock
	TTL                time.Duration // validity window of the whole cache
	MissReloadInterval time.Duration // minimum age of a load before an unknown id may reload it
	Logger             zerolog.Logger
	Metrics            SyncMetrics
}

// ReferenceResolver resolves partner, account item and tag ids to display
// names. It is shared by all runs of a process; entries expire together once
// the validity window has elapsed since the cache was first filled.
type ReferenceResolver struct {
	client     LedgerClient
	clock      Clock
	ttl        time.Duration
	missReload time.Duration
	logger     zerolog.Logger
	metrics    SyncMetrics

	mu          sync.RWMutex
	refreshedAt time.Time
	names       map[refKey]string
	loadedAt    map[loadKey]time.Time
	failedAt    map[loadKey]time.Time

	group singleflight.Group
}

// NewReferenceResolver creates a new ReferenceResolver.
func NewReferenceResolver(cfg ReferenceResolverConfig) *ReferenceResolver {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultReferenceTTL
	}
	if cfg.MissReloadInterval <= 0 {
		cfg.MissReloadInterval = DefaultMissReloadInterval
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}

	return &ReferenceResolver{
		client:     cfg.Client,
		clock:      cfg.Clock,
		ttl:        cfg.TTL,
		missReload: cfg.MissReloadInterval,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		names:      make(map[refKey]string),
		loadedAt:   make(map[loadKey]time.Time),
		failedAt:   make(map[loadKey]time.Time),
	}
}

// Resolve returns the display name for id. It never fails: when the name
// cannot be obtained a fallback label embedding the id is returned.
// A non-positive id means "no reference" and resolves to "".
func (r *ReferenceResolver) Resolve(ctx context.Context, companyID int64, refType domain.ReferenceType, id int64) string {
	if id <= 0 {
		return ""
	}

	r.expireIfStale()

	key := refKey{companyID: companyID, refType: refType, id: id}
	if name, ok := r.lookup(key); ok {
		r.metrics.ReferenceLookup(lookupHit)
		return name
	}

	r.metrics.ReferenceLookup(lookupMiss)

	lk := loadKey{companyID: companyID, refType: refType}
	if r.recentlyLoaded(lk) {
		r.metrics.ReferenceLookup(lookupFallback)
		return domain.FallbackLabel(refType, id)
	}

	if err := r.load(ctx, lk); err != nil {
		r.logger.Warn().
			Err(err).
			Int64("company_id", companyID).
			Str("reference_type", string(refType)).
			Int64("reference_id", id).
			Msg("reference lookup failed, using fallback label")
	}

	if name, ok := r.lookup(key); ok {
		return name
	}

	r.metrics.ReferenceLookup(lookupFallback)

	return domain.FallbackLabel(refType, id)
}

// Preload bulk-loads the given reference types for a company. Types loaded
// within the validity window are not fetched again. Failures are logged only;
// later lookups fall back per id.
func (r *ReferenceResolver) Preload(ctx context.Context, companyID int64, types ...domain.ReferenceType) {
	r.expireIfStale()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(domain.ReferenceTypes))

	for _, t := range types {
		lk := loadKey{companyID: companyID, refType: t}
		if r.loaded(lk) {
			continue
		}

		g.Go(func() error {
			if err := r.load(gctx, lk); err != nil {
				r.logger.Warn().
					Err(err).
					Int64("company_id", companyID).
					Str("reference_type", string(lk.refType)).
					Msg("reference preload failed")
			}
			return nil
		})
	}

	_ = g.Wait()
}

// ResolveLabels fills the candidate's display labels from its reference ids.
func (r *ReferenceResolver) ResolveLabels(ctx context.Context, c *domain.Candidate) {
	c.AccountLabel = r.Resolve(ctx, c.CompanyID, domain.ReferenceAccountItem, c.AccountItemID)
	c.CounterpartyLabel = r.Resolve(ctx, c.CompanyID, domain.ReferencePartner, c.PartnerID)

	tags := make([]string, 0, len(c.TagIDs))
	for _, id := range c.TagIDs {
		tags = append(tags, r.Resolve(ctx, c.CompanyID, domain.ReferenceTag, id))
	}
	c.Tags = domain.JoinLabels(tags)
}

// Invalidate drops every cached name and resets the freshness timestamp.
func (r *ReferenceResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reset()
}

// Len returns the number of cached names.
func (r *ReferenceResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.names)
}

// load fetches one reference type. Concurrent loads of the same type for the
// same company share a single upstream call.
func (r *ReferenceResolver) load(ctx context.Context, lk loadKey) error {
	flightKey := fmt.Sprintf("%d/%s", lk.companyID, lk.refType)

	_, err, _ := r.group.Do(flightKey, func() (any, error) {
		// A caller that missed the previous flight by a hair finds it here.
		if r.loadedWithin(lk, r.missReload) {
			return nil, nil
		}

		items, err := r.client.ListReferenceData(ctx, lk.companyID, lk.refType)
		now := r.clock.Now()

		r.mu.Lock()
		defer r.mu.Unlock()

		// Failed loads are recorded so that a broken upstream is not
		// retried on every miss.
		if err != nil {
			r.failedAt[lk] = now
			return nil, err
		}

		delete(r.failedAt, lk)
		r.loadedAt[lk] = now

		if r.refreshedAt.IsZero() {
			r.refreshedAt = now
		}
		for _, item := range items {
			r.names[refKey{companyID: lk.companyID, refType: lk.refType, id: item.ID}] = domain.NormalizeString(item.Name)
		}

		return nil, nil
	})

	return err
}

func (r *ReferenceResolver) lookup(key refKey) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.names[key]

	return name, ok
}

func (r *ReferenceResolver) loaded(lk loadKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.loadedAt[lk]

	return ok
}

func (r *ReferenceResolver) loadedWithin(lk loadKey, d time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	at, ok := r.loadedAt[lk]

	return ok && r.clock.Now().Sub(at) < d
}

func (r *ReferenceResolver) recentlyLoaded(lk loadKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock.Now()
	if at, ok := r.loadedAt[lk]; ok && now.Sub(at) < r.missReload {
		return true
	}
	at, ok := r.failedAt[lk]

	return ok && now.Sub(at) < r.missReload
}

func (r *ReferenceResolver) expireIfStale() {
	now := r.clock.Now()

	r.mu.RLock()
	stale := !r.refreshedAt.IsZero() && now.Sub(r.refreshedAt) >= r.ttl
	r.mu.RUnlock()

	if !stale {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.refreshedAt.IsZero() && now.Sub(r.refreshedAt) >= r.ttl {
		r.reset()
	}
}

func (r *ReferenceResolver) reset() {
	r.names = make(map[refKey]string)
	r.loadedAt = make(map[loadKey]time.Time)
	r.failedAt = make(map[loadKey]time.Time)
	r.refreshedAt = time.Time{}
}
