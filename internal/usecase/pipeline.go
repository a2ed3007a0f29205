package usecase

import (
	"context"
	"log"
	"strings"

	"github.com/cavtal/backend/internal/domain"
)

// Pipeline sequences stage 1 (product resolution) and stage 2 (community
// discount lookup) per batch item. Items are processed sequentially; the only
// state shared across iterations is the read-only catalog and corpus held by
// the resolvers.
type Pipeline struct {
	products  *ProductResolver
	discounts *DiscountResolver
}

// NewPipeline creates a pipeline from the two stage resolvers.
func NewPipeline(products *ProductResolver, discounts *DiscountResolver) *Pipeline {
	return &Pipeline{
		products:  products,
		discounts: discounts,
	}
}

// ProcessBatch resolves every item for the given community. The output is
// ordered one-to-one with the input and correlation ids round-trip unchanged.
// Stage 2 is skipped for items without a subsidy tier, and any panic while
// processing one item is converted into a partial record for that item alone;
// a single item can never abort its siblings.
func (p *Pipeline) ProcessBatch(ctx context.Context, communityID string, items []domain.BatchItem) []domain.ResultRecord {
	communityID = strings.TrimSpace(communityID)

	records := make([]domain.ResultRecord, len(items))
	for i, item := range items {
		records[i] = p.processItem(ctx, communityID, item)
	}
	return records
}

// processItem runs both stages for one item with panic isolation. On a
// recovered panic the stage-1 fields gathered so far are preserved and the
// discount stays nil.
func (p *Pipeline) processItem(ctx context.Context, communityID string, item domain.BatchItem) (record domain.ResultRecord) {
	record = domain.ResultRecord{
		ProductName: item.ProductName,
		CommunityID: communityID,
		CartItemID:  item.CartItemID,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] Recovered while processing item %q (%q): %v",
				item.CartItemID, item.ProductName, r)
		}
	}()

	resolution := p.products.Resolve(ctx, item.ProductName)
	record.ProductCode = resolution.ProductCode
	record.SubsidyLevel = resolution.SubsidyLevel

	if resolution.SubsidyLevel == nil {
		// No tier means no discount column to read; stage 2 is meaningless.
		return record
	}

	lookup := p.discounts.LookupDiscount(ctx, communityID, *resolution.SubsidyLevel)
	discount := lookup.DiscountPerKg
	record.DiscountPerKg = &discount
	return record
}
