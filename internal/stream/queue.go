package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cavtal/backend/internal/domain"
)

const (
	// BatchStream is the Redis stream batch jobs are published to.
	BatchStream = "subsidy:batches"
	// BatchGroup is the consumer group workers read the stream through.
	BatchGroup = "subsidy-workers"

	resultKeyPrefix  = "batch:result:"
	defaultResultTTL = 24 * time.Hour
)

// Queue publishes batch jobs to the stream and stores/fetches their results.
// The API handler enqueues and polls; the worker consumes and stores.
type Queue struct {
	client    *redis.Client
	resultTTL time.Duration
}

// NewQueue creates a queue over the given Redis client. A zero resultTTL
// keeps finished batches for a day.
func NewQueue(client *redis.Client, resultTTL time.Duration) *Queue {
	if resultTTL <= 0 {
		resultTTL = defaultResultTTL
	}
	return &Queue{
		client:    client,
		resultTTL: resultTTL,
	}
}

// EnsureGroup creates the consumer group, starting from the beginning of the
// stream. An already-existing group is fine.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, BatchStream, BatchGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Enqueue publishes a batch job to the stream.
func (q *Queue) Enqueue(ctx context.Context, job domain.BatchJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal batch job: %w", err)
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: BatchStream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue batch %s: %w", job.BatchID, err)
	}
	return nil
}

// StoreResult writes the finished batch under its result key with a TTL.
func (q *Queue) StoreResult(ctx context.Context, batchID string, result domain.BatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal batch result: %w", err)
	}

	if err := q.client.Set(ctx, resultKey(batchID), data, q.resultTTL).Err(); err != nil {
		return fmt.Errorf("store result for batch %s: %w", batchID, err)
	}
	return nil
}

// FetchResult returns the stored result for a batch. A missing key means the
// batch is unknown or still in flight; both surface as ErrBatchNotFound and
// the caller cannot tell them apart.
func (q *Queue) FetchResult(ctx context.Context, batchID string) (domain.BatchResult, error) {
	data, err := q.client.Get(ctx, resultKey(batchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BatchResult{}, domain.ErrBatchNotFound
	}
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("fetch result for batch %s: %w", batchID, err)
	}

	var result domain.BatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.BatchResult{}, fmt.Errorf("decode result for batch %s: %w", batchID, err)
	}
	return result, nil
}

func resultKey(batchID string) string {
	return resultKeyPrefix + batchID
}
