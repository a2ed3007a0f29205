package stream

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavtal/backend/internal/domain"
)

type stubProcessor struct {
	records       []domain.ResultRecord
	lastCommunity string
	lastItems     []domain.BatchItem
	calls         int
}

func (s *stubProcessor) ProcessBatch(ctx context.Context, communityID string, items []domain.BatchItem) []domain.ResultRecord {
	s.calls++
	s.lastCommunity = communityID
	s.lastItems = items
	return s.records
}

type stubStore struct {
	err     error
	batchID string
	result  domain.BatchResult
	calls   int
}

func (s *stubStore) StoreResult(ctx context.Context, batchID string, result domain.BatchResult) error {
	s.calls++
	s.batchID = batchID
	s.result = result
	return s.err
}

func newTestConsumer(store ResultStore, processor BatchProcessor) *Consumer {
	return NewConsumer(nil, store, processor, "worker-test", zerolog.Nop())
}

func TestHandleJob(t *testing.T) {
	ctx := context.Background()

	t.Run("runs pipeline and stores result", func(t *testing.T) {
		code := "7-A01"
		tier := domain.TierHigh
		processor := &stubProcessor{records: []domain.ResultRecord{
			{
				ProductName:  "Frozen Vegetables",
				ProductCode:  &code,
				SubsidyLevel: &tier,
				CommunityID:  "ON-NON-ATT",
				CartItemID:   "cart-1",
			},
		}}
		store := &stubStore{}
		c := newTestConsumer(store, processor)

		payload := []byte(`{
			"batch_id": "batch-42",
			"cart_id": "cart-9",
			"community_id": "ON-NON-ATT",
			"items": [{"cart_item_id": "cart-1", "product_name": "Frozen Vegetables"}]
		}`)

		err := c.handleJob(ctx, payload)

		require.NoError(t, err)
		assert.Equal(t, "ON-NON-ATT", processor.lastCommunity)
		require.Len(t, processor.lastItems, 1)
		assert.Equal(t, "cart-1", processor.lastItems[0].CartItemID)

		assert.Equal(t, "batch-42", store.batchID)
		assert.Equal(t, "cart-9", store.result.CartID)
		require.Len(t, store.result.Products, 1)
		assert.Equal(t, "7-A01", *store.result.Products[0].ProductCode)
	})

	t.Run("malformed payload does not reach the pipeline", func(t *testing.T) {
		processor := &stubProcessor{}
		store := &stubStore{}
		c := newTestConsumer(store, processor)

		err := c.handleJob(ctx, []byte("not json"))

		assert.Error(t, err)
		assert.Equal(t, 0, processor.calls)
		assert.Equal(t, 0, store.calls)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		processor := &stubProcessor{}
		store := &stubStore{err: assert.AnError}
		c := newTestConsumer(store, processor)

		err := c.handleJob(ctx, []byte(`{"batch_id": "batch-1", "cart_id": "cart-1", "community_id": "MB-NMB-BRO", "items": []}`))

		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("missing data field", func(t *testing.T) {
		c := newTestConsumer(&stubStore{}, &stubProcessor{})

		err := c.handleMessage(ctx, map[string]interface{}{"other": "value"})

		assert.Error(t, err)
	})

	t.Run("data field dispatched as payload", func(t *testing.T) {
		processor := &stubProcessor{}
		store := &stubStore{}
		c := newTestConsumer(store, processor)

		err := c.handleMessage(ctx, map[string]interface{}{
			"data": `{"batch_id": "batch-1", "cart_id": "cart-1", "community_id": "ON-NON-ATT", "items": []}`,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, processor.calls)
		assert.Equal(t, 1, store.calls)
	})
}
