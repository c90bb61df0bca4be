package lock

import (
	"context"
	"time"

	apperrors "team-match-backend/internal/errors"
	"team-match-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service hands out short-lived exclusive leases. Acquisition never waits:
// a held lease means somebody else is mutating the same entity right now
// and the caller should report TooFrequent instead of queueing.
type Service interface {
	TryAcquire(ctx context.Context, name string) (*Lease, error)
}

// Lease is a held lock. Release is idempotent and only ever removes the
// holder's own token, so releasing after expiry never frees a lease that
// has since been granted to someone else.
type Lease struct {
	Release func(ctx context.Context)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockService implements Service on Redis SET NX with a random token.
type RedisLockService struct {
	client *redis.Client
	lease  time.Duration
	log    *logger.Logger
}

// NewRedisLockService creates a lock service. Leases self-expire after the
// given duration even if the holder crashes without releasing.
func NewRedisLockService(client *redis.Client, lease time.Duration) *RedisLockService {
	return &RedisLockService{
		client: client,
		lease:  lease,
		log:    logger.New().WithField("component", "lock"),
	}
}

// TryAcquire attempts to take the named lease with zero wait. A held lease
// yields a TooFrequentError; infrastructure faults yield an InternalError.
func (s *RedisLockService) TryAcquire(ctx context.Context, name string) (*Lease, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, name, token, s.lease).Result()
	if err != nil {
		return nil, apperrors.NewInternalError("acquire lease", err)
	}
	if !ok {
		return nil, apperrors.NewTooFrequentError("operation already in progress", s.lease)
	}

	released := false
	return &Lease{
		Release: func(ctx context.Context) {
			if released {
				return
			}
			released = true
			if err := releaseScript.Run(ctx, s.client, []string{name}, token).Err(); err != nil {
				s.log.WithField("lease", name).Warnf("lease release failed: %v", err)
			}
		},
	}, nil
}
