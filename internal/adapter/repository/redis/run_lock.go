package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/usecase"
)

// releaseScript deletes the lock only if it still holds our token, so a
// run that outlived its TTL cannot release a lock taken by the next run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only while the lock still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RunLocker implements usecase.RunLocker with SET NX PX.
type RunLocker struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRunLocker creates a new RunLocker.
func NewRunLocker(client *redis.Client, logger zerolog.Logger) *RunLocker {
	return &RunLocker{
		client: client,
		prefix: "lock:",
		logger: logger,
	}
}

// Acquire takes the lock for ttl. It fails with domain.ErrSyncInProgress
// while another holder owns the key.
func (l *RunLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (usecase.RunLock, error) {
	lock := &RunLock{
		client:  l.client,
		key:     key,
		fullKey: l.prefix + key,
		token:   ulid.Make().String(),
		logger:  l.logger,
	}

	ok, err := l.client.SetNX(ctx, lock.fullKey, lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}

	return lock, nil
}

// RunLock is one held lock, identified by its random token.
type RunLock struct {
	client  *redis.Client
	key     string
	fullKey string
	token   string
	logger  zerolog.Logger
}

// Extend resets the TTL to ttl. It returns domain.ErrLockLost when the key
// expired or another run holds it now.
func (l *RunLock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.fullKey}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extending lock %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrLockLost, l.key)
	}
	return nil
}

func (l *RunLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.fullKey}, l.token).Int()
	if err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.key, err)
	}
	if n == 0 {
		l.logger.Warn().Str("lock", l.key).Msg("lock expired before release")
	}
	return nil
}
