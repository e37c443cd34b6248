package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/dealsync/internal/domain"
)

// FailedDeal is a deal that was listed upstream but whose detail could not be
// fetched. Its local records must survive the sweep.
type FailedDeal struct {
	DealID int64
	Err    error
}

// FetchResult is the candidate set for one company and date range.
type FetchResult struct {
	Candidates []*domain.Candidate
	Failed     []FailedDeal
	Deals      int
}

// DealFetcherConfig configures a DealFetcher.
type DealFetcherConfig struct {
	Client         LedgerClient
	Logger         zerolog.Logger
	PageSize       int
	MaxPages       int           // list pages allowed per run
	BatchSize      int           // detail requests in flight at once
	BatchPause     time.Duration // pause between batches
	LongPauseEvery int           // take a long pause after this many details
	LongPause      time.Duration

	// CallTimeout bounds one ledger call including the client's own retries.
	CallTimeout time.Duration

	// Sleep is replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DealFetcher pulls deals for a date range from the external ledger and
// expands them into detail-level candidates.
type DealFetcher struct {
	client         LedgerClient
	logger         zerolog.Logger
	pageSize       int
	maxPages       int
	batchSize      int
	batchPause     time.Duration
	longPauseEvery int
	longPause      time.Duration
	callTimeout    time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewDealFetcher creates a new DealFetcher.
func NewDealFetcher(cfg DealFetcherConfig) *DealFetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}

	return &DealFetcher{
		client:         cfg.Client,
		logger:         cfg.Logger,
		pageSize:       cfg.PageSize,
		maxPages:       cfg.MaxPages,
		batchSize:      cfg.BatchSize,
		batchPause:     cfg.BatchPause,
		longPauseEvery: cfg.LongPauseEvery,
		longPause:      cfg.LongPause,
		callTimeout:    cfg.CallTimeout,
		sleep:          cfg.Sleep,
	}
}

// FetchCandidates lists every deal in [from, to] and enriches each with its
// detail record. A failure while listing is fatal; a failed detail fetch only
// marks that deal as failed.
func (f *DealFetcher) FetchCandidates(ctx context.Context, companyID int64, from, to time.Time) (*FetchResult, error) {
	headers, err := f.listAll(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: listing deals: %v", domain.ErrUpstreamUnavailable, err)
	}

	details, failed, err := f.fetchDetails(ctx, companyID, headers)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{Failed: failed, Deals: len(headers)}
	for _, deal := range details {
		if deal == nil {
			continue
		}

		candidates, err := deal.Candidates(companyID)
		if err != nil {
			result.Failed = append(result.Failed, FailedDeal{DealID: deal.ID, Err: err})
			continue
		}

		for _, c := range candidates {
			if c.PositionalIdentity {
				f.logger.Warn().
					Int64("deal_id", deal.ID).
					Int64("detail_ordinal", c.Identity.DetailID).
					Msg("detail line has no upstream id, using line position")
			}
		}
		result.Candidates = append(result.Candidates, candidates...)
	}

	return result, nil
}

// listAll pages through the list endpoint. There is no total count: a page
// shorter than the page size ends pagination, so a full final page costs one
// extra, empty request. A deal listed twice is kept once. A full page with no
// new deals, or more than maxPages pages, means the upstream is not honoring
// the offset and aborts the listing.
func (f *DealFetcher) listAll(ctx context.Context, companyID int64, from, to time.Time) ([]*domain.DealHeader, error) {
	var all []*domain.DealHeader
	seen := make(map[int64]struct{})

	for n := 0; ; n++ {
		if n == f.maxPages {
			return nil, fmt.Errorf("more than %d pages of deals", f.maxPages)
		}

		offset := n * f.pageSize
		page, err := f.listPage(ctx, companyID, domain.DealQuery{
			DateFrom: from.Format(domain.DateLayout),
			DateTo:   to.Format(domain.DateLayout),
			Limit:    f.pageSize,
			Offset:   offset,
		})
		if err != nil {
			return nil, err
		}

		fresh := 0
		for _, deal := range page {
			if deal == nil {
				continue
			}
			if _, dup := seen[deal.ID]; dup {
				continue
			}
			seen[deal.ID] = struct{}{}
			all = append(all, deal)
			fresh++
		}

		if len(page) < f.pageSize {
			return all, nil
		}
		if fresh == 0 {
			return nil, fmt.Errorf("page at offset %d repeats deals already listed", offset)
		}
	}
}

func (f *DealFetcher) listPage(ctx context.Context, companyID int64, q domain.DealQuery) ([]*domain.DealHeader, error) {
	ctx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	return f.client.ListDeals(ctx, companyID, q)
}

// fetchDetails fetches deal details in batches of at most batchSize
// concurrent requests, pausing between batches and taking a longer pause
// every longPauseEvery deals. Results keep the order of headers.
func (f *DealFetcher) fetchDetails(ctx context.Context, companyID int64, headers []*domain.DealHeader) ([]*domain.DealHeader, []FailedDeal, error) {
	details := make([]*domain.DealHeader, len(headers))
	errs := make([]error, len(headers))

	sinceLongPause := 0
	for start := 0; start < len(headers); start += f.batchSize {
		end := min(start+f.batchSize, len(headers))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				details[i], errs[i] = f.getDeal(gctx, companyID, headers[i].ID)
				return nil
			})
		}
		_ = g.Wait()

		if end == len(headers) {
			break
		}

		sinceLongPause += end - start
		pause := f.batchPause
		if f.longPauseEvery > 0 && sinceLongPause >= f.longPauseEvery {
			pause = f.longPause
			sinceLongPause = 0
		}

		if err := f.sleep(ctx, pause); err != nil {
			return nil, nil, err
		}
	}

	var failed []FailedDeal
	for i, err := range errs {
		if err != nil {
			f.logger.Warn().
				Err(err).
				Int64("deal_id", headers[i].ID).
				Msg("failed to fetch deal detail")
			failed = append(failed, FailedDeal{DealID: headers[i].ID, Err: err})
			details[i] = nil
		}
	}

	return details, failed, nil
}

func (f *DealFetcher) getDeal(ctx context.Context, companyID, dealID int64) (*domain.DealHeader, error) {
	ctx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	deal, err := f.client.GetDeal(ctx, companyID, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, fmt.Errorf("deal %d: empty detail response", dealID)
	}

	return deal, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
