package directory

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"projecthub/pkg/logger"
	"projecthub/pkg/metrics"
)

// Lookup is the directory call CachedDirectory wraps.
type Lookup interface {
	EmployeeExists(ctx context.Context, employeeID int64, credential string) (bool, error)
}

// CachedDirectory remembers confirmed employees in Redis. Only positive
// answers are cached, so a newly created employee is never hidden by a stale
// "not found". Entries are scoped to the credential that obtained them: a
// caller whose token was never accepted by the directory always reaches it.
// Redis failures fall through to the directory.
type CachedDirectory struct {
	next   Lookup
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedDirectory(next Lookup, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// cacheKey 按凭证哈希隔离，凭证明文不落 Redis
func cacheKey(employeeID int64, credential string) string {
	sum := blake2b.Sum256([]byte(credential))
	return fmt.Sprintf("employee:exists:%s:%d", hex.EncodeToString(sum[:16]), employeeID)
}

func (c *CachedDirectory) EmployeeExists(ctx context.Context, employeeID int64, credential string) (bool, error) {
	log := logger.WithTrace(ctx, c.logger)
	key := cacheKey(employeeID, credential)

	n, err := c.rdb.Exists(ctx, key).Result()
	switch {
	case err != nil:
		metrics.IncrementDirectoryCache("error")
		log.Warn("Employee cache read failed, falling back to directory",
			zap.String("key", key),
			zap.Error(err),
		)
	case n > 0:
		metrics.IncrementDirectoryCache("hit")
		return true, nil
	default:
		metrics.IncrementDirectoryCache("miss")
	}

	exists, err := c.next.EmployeeExists(ctx, employeeID, credential)
	if err != nil || !exists {
		return exists, err
	}

	if err := c.rdb.SetEx(ctx, key, "1", c.ttl).Err(); err != nil {
		log.Warn("Failed to cache employee", zap.String("key", key), zap.Error(err))
	}
	return true, nil
}
