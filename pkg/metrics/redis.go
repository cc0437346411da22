package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dripflow/dripflow/pkg/models"
	"github.com/dripflow/dripflow/pkg/persistence"
)

const redisKeyPrefix = "dripflow:metrics:"

// RedisCounters implements persistence.MetricsRepository on Redis. INCR gives
// atomic counters shared across engine instances, which the file backend
// cannot.
type RedisCounters struct {
	client redis.UniversalClient
}

// NewRedisCounters wraps an existing Redis client.
func NewRedisCounters(client redis.UniversalClient) *RedisCounters {
	return &RedisCounters{client: client}
}

func counterKey(workflowID, metric, date string) string {
	return redisKeyPrefix + workflowID + ":" + date + ":" + metric
}

// Increment bumps a counter atomically.
func (rc *RedisCounters) Increment(ctx context.Context, workflowID, metric string, date string) error {
	key := counterKey(workflowID, metric, date)

	if err := rc.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to increment metric %s: %w", key, err)
	}

	// Counters expire after 90 days so abandoned workflows do not accumulate keys.
	if err := rc.client.Expire(ctx, key, 90*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set metric expiry on %s: %w", key, err)
	}

	return nil
}

// Get reads a counter; a missing counter reads as zero.
func (rc *RedisCounters) Get(ctx context.Context, workflowID, metric string, date string) (int64, error) {
	value, err := rc.client.Get(ctx, counterKey(workflowID, metric, date)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to read metric: %w", err)
	}

	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid metric value %q: %w", value, err)
	}

	return count, nil
}

// ListByWorkflow scans the workflow's counter keys and returns them ordered by
// date.
func (rc *RedisCounters) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.DailyMetric, error) {
	pattern := redisKeyPrefix + workflowID + ":*"
	rows := make([]*models.DailyMetric, 0)

	iter := rc.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		parts := strings.Split(strings.TrimPrefix(key, redisKeyPrefix), ":")
		if len(parts) != 3 {
			continue
		}

		count, err := rc.Get(ctx, parts[0], parts[2], parts[1])
		if err != nil {
			return nil, err
		}

		rows = append(rows, &models.DailyMetric{
			WorkflowID: parts[0],
			Date:       parts[1],
			Metric:     parts[2],
			Count:      count,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan metrics: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}

		return rows[i].Metric < rows[j].Metric
	})

	return rows, nil
}

var _ persistence.MetricsRepository = (*RedisCounters)(nil)
