package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cavtal/backend/internal/domain"
)

// BatchProcessor runs the two-stage pipeline over one batch.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, communityID string, items []domain.BatchItem) []domain.ResultRecord
}

// ResultStore persists a finished batch for pollers.
type ResultStore interface {
	StoreResult(ctx context.Context, batchID string, result domain.BatchResult) error
}

// Consumer reads batch jobs from the stream and runs them through the
// pipeline. Messages are acknowledged whether or not the job succeeded:
// the pipeline itself never fails an item, so a handling error means the
// payload is malformed and redelivery cannot fix it.
type Consumer struct {
	client    *redis.Client
	store     ResultStore
	processor BatchProcessor
	name      string
	log       zerolog.Logger
}

// NewConsumer creates a stream consumer identified by name within the group.
func NewConsumer(client *redis.Client, store ResultStore, processor BatchProcessor, name string, log zerolog.Logger) *Consumer {
	return &Consumer{
		client:    client,
		store:     store,
		processor: processor,
		name:      name,
		log:       log,
	}
}

// Run consumes jobs until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().
		Str("stream", BatchStream).
		Str("group", BatchGroup).
		Str("consumer", c.name).
		Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    BatchGroup,
			Consumer: c.name,
			Streams:  []string{BatchStream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn().Err(err).Msg("read from stream failed")
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				if err := c.handleMessage(ctx, msg.Values); err != nil {
					c.log.Error().
						Err(err).
						Str("id", msg.ID).
						Msg("failed to process batch message")
				}

				if err := c.client.XAck(ctx, BatchStream, BatchGroup, msg.ID).Err(); err != nil {
					c.log.Error().
						Err(err).
						Str("id", msg.ID).
						Msg("failed to acknowledge message")
				}
			}
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, values map[string]interface{}) error {
	raw, ok := values["data"].(string)
	if !ok {
		return fmt.Errorf("message has no data field")
	}
	return c.handleJob(ctx, []byte(raw))
}

// handleJob decodes one job, runs the pipeline and stores the result.
func (c *Consumer) handleJob(ctx context.Context, payload []byte) error {
	var job domain.BatchJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode batch job: %w", err)
	}

	started := time.Now()
	records := c.processor.ProcessBatch(ctx, job.CommunityID, job.Items)

	result := domain.BatchResult{
		CartID:   job.CartID,
		Products: records,
	}
	if err := c.store.StoreResult(ctx, job.BatchID, result); err != nil {
		return err
	}

	c.log.Info().
		Str("batch_id", job.BatchID).
		Str("community_id", job.CommunityID).
		Int("items", len(job.Items)).
		Dur("elapsed", time.Since(started)).
		Msg("batch processed")
	return nil
}
