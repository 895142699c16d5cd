package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyVersion = "tasks:ver:"
	keyList    = "tasks:list:"
)

// TaskCache caches task list results in Redis. Entries are keyed by a
// per-user version, so bumping the version drops every list for that user
// at once; stale keys simply expire.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTaskCache returns a new TaskCache.
func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

// ListKey resolves the cache key for a list query under the user's current
// version. Resolve it before reading the store: a write that lands after
// that bumps the version, so a stale result is stored under a dead key.
func (c *TaskCache) ListKey(ctx context.Context, userID uuid.UUID, filter models.TaskFilter, sort models.TaskSort) (string, error) {
	ver, err := c.rdb.Get(ctx, keyVersion+userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		ver = "0"
	} else if err != nil {
		return "", err
	}
	return keyList + userID.String() + ":" + ver + ":" + QueryDigest(filter, sort), nil
}

// GetList returns the cached list, or nil on a miss.
func (c *TaskCache) GetList(ctx context.Context, key string) ([]*models.Task, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []*models.Task
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetList stores a list result.
func (c *TaskCache) SetList(ctx context.Context, key string, list []*models.Task) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Invalidate bumps the user's version (cache invalidation on write).
func (c *TaskCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.rdb.Incr(ctx, keyVersion+userID.String()).Err()
}

// QueryDigest is a stable short hash of a filter and sort.
func QueryDigest(filter models.TaskFilter, sort models.TaskSort) string {
	var sb strings.Builder
	if filter.CategoryID != nil {
		fmt.Fprintf(&sb, "c=%s;", filter.CategoryID)
	}
	if filter.WithoutCategory {
		sb.WriteString("c=none;")
	}
	if filter.Priority != nil {
		fmt.Fprintf(&sb, "p=%s;", *filter.Priority)
	}
	if filter.Completed != nil {
		fmt.Fprintf(&sb, "d=%t;", *filter.Completed)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		fmt.Fprintf(&sb, "q=%s;", q)
	}
	fmt.Fprintf(&sb, "s=%s:%s", sort.Field, sort.Direction)

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:8])
}
