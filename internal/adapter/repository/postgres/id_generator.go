package postgres

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/iho/dealsync/internal/usecase"
)

// ULIDGenerator generates local record and sync run ids. Ids taken from one
// generator sort in generation order, even within the same millisecond, so
// sync run listings and transaction rows keep the order they were created in.
type ULIDGenerator struct {
	mu      sync.Mutex
	clock   usecase.Clock
	entropy *ulid.MonotonicEntropy
}

func NewULIDGenerator() *ULIDGenerator {
	return newULIDGeneratorWithClock(usecase.SystemClock())
}

func newULIDGeneratorWithClock(clock usecase.Clock) *ULIDGenerator {
	return &ULIDGenerator{
		clock:   clock,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate returns a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.clock.Now()), g.entropy).String()
}
