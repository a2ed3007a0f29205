package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/cavtal/backend/internal/domain"
)

// panicOnMarkerLLM behaves like stubLLM until it sees the marker in a prompt,
// at which point it panics. Used to simulate an item whose stage-2 call blows
// up mid-batch.
type panicOnMarkerLLM struct {
	marker   string
	response string
	calls    int
}

func (s *panicOnMarkerLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if strings.Contains(prompt, s.marker) {
		panic("simulated model crash")
	}
	return s.response, nil
}

func newTestPipeline(discountLLM domain.LanguageModel) *Pipeline {
	matcher := NewCatalogMatcher(testCatalog(), MatcherConfig{})
	products := NewCatalogProductResolver(matcher, nil)

	tableRow := "Attawapiskat ON-NON-ATT 3.10 2.90 1.40 1.10"
	retriever := &stubRetriever{passages: []domain.Passage{{Text: tableRow}}}
	discounts := NewDiscountResolver(retriever, discountLLM, DiscountConfig{})

	return NewPipeline(products, discounts)
}

func TestProcessBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves both stages per item in order", func(t *testing.T) {
		llm := &stubLLM{response: `{"community_id": "ON-NON-ATT", "discount_per_kg": "2.90"}`}
		p := newTestPipeline(llm)

		items := []domain.BatchItem{
			{CartItemID: "cart-1", ProductName: "Frozen Vegetables"},
			{CartItemID: "cart-2", ProductName: "White Bread"},
		}
		records := p.ProcessBatch(ctx, "ON-NON-ATT", items)
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}

		first := records[0]
		if first.CartItemID != "cart-1" || first.ProductName != "Frozen Vegetables" {
			t.Errorf("record 0 correlation = (%q, %q)", first.CartItemID, first.ProductName)
		}
		if first.ProductCode == nil || *first.ProductCode != "7-A01" {
			t.Errorf("record 0 code = %v, want 7-A01", first.ProductCode)
		}
		if first.SubsidyLevel == nil || *first.SubsidyLevel != domain.TierHigh {
			t.Errorf("record 0 tier = %v, want High", first.SubsidyLevel)
		}
		if first.DiscountPerKg == nil || *first.DiscountPerKg != "2.90" {
			t.Errorf("record 0 discount = %v, want 2.90", first.DiscountPerKg)
		}
		if first.CommunityID != "ON-NON-ATT" {
			t.Errorf("record 0 community = %q", first.CommunityID)
		}

		second := records[1]
		if second.CartItemID != "cart-2" {
			t.Errorf("record 1 correlation id = %q, want cart-2", second.CartItemID)
		}
		if second.SubsidyLevel == nil || *second.SubsidyLevel != domain.TierMedium {
			t.Errorf("record 1 tier = %v, want Medium", second.SubsidyLevel)
		}
	})

	t.Run("trims community id before processing", func(t *testing.T) {
		llm := &stubLLM{response: `{"community_id": "ON-NON-ATT", "discount_per_kg": "2.90"}`}
		p := newTestPipeline(llm)

		records := p.ProcessBatch(ctx, "  ON-NON-ATT  ", []domain.BatchItem{
			{CartItemID: "cart-1", ProductName: "Frozen Vegetables"},
		})
		if records[0].CommunityID != "ON-NON-ATT" {
			t.Errorf("CommunityID = %q, want trimmed id", records[0].CommunityID)
		}
	})

	t.Run("skips stage 2 when no subsidy tier resolved", func(t *testing.T) {
		llm := &stubLLM{response: `{"community_id": "ON-NON-ATT", "discount_per_kg": "2.90"}`}
		p := newTestPipeline(llm)

		records := p.ProcessBatch(ctx, "ON-NON-ATT", []domain.BatchItem{
			{CartItemID: "cart-1", ProductName: "mystery elixir"},
		})

		record := records[0]
		if record.ProductCode != nil || record.SubsidyLevel != nil {
			t.Errorf("unmatched item resolved to (%v, %v), want nils", record.ProductCode, record.SubsidyLevel)
		}
		if record.DiscountPerKg != nil {
			t.Errorf("DiscountPerKg = %v, want nil when stage 2 skipped", record.DiscountPerKg)
		}
		if llm.calls != 0 {
			t.Errorf("discount model called %d times, want 0", llm.calls)
		}
	})

	t.Run("panicking item does not abort its siblings", func(t *testing.T) {
		// White Bread resolves to tier Medium; the model crashes only on its
		// stage-2 prompt.
		llm := &panicOnMarkerLLM{
			marker:   `subsidy_level = "Medium"`,
			response: `{"community_id": "ON-NON-ATT", "discount_per_kg": "3.10"}`,
		}
		p := newTestPipeline(llm)

		items := []domain.BatchItem{
			{CartItemID: "cart-1", ProductName: "Frozen Vegetables"},
			{CartItemID: "cart-2", ProductName: "White Bread"},
			{CartItemID: "cart-3", ProductName: "Canned Peaches"},
		}
		records := p.ProcessBatch(ctx, "ON-NON-ATT", items)
		if len(records) != 3 {
			t.Fatalf("got %d records, want 3", len(records))
		}

		if records[0].DiscountPerKg == nil || *records[0].DiscountPerKg != "3.10" {
			t.Errorf("record 0 discount = %v, want 3.10", records[0].DiscountPerKg)
		}
		if records[2].DiscountPerKg == nil || *records[2].DiscountPerKg != "3.10" {
			t.Errorf("record 2 discount = %v, want 3.10", records[2].DiscountPerKg)
		}

		crashed := records[1]
		if crashed.CartItemID != "cart-2" {
			t.Errorf("crashed record correlation id = %q, want cart-2", crashed.CartItemID)
		}
		if crashed.ProductCode == nil || *crashed.ProductCode != "1-B02" {
			t.Errorf("crashed record code = %v, want stage-1 fields preserved", crashed.ProductCode)
		}
		if crashed.SubsidyLevel == nil || *crashed.SubsidyLevel != domain.TierMedium {
			t.Errorf("crashed record tier = %v, want Medium", crashed.SubsidyLevel)
		}
		if crashed.DiscountPerKg != nil {
			t.Errorf("crashed record discount = %v, want nil", crashed.DiscountPerKg)
		}
	})

	t.Run("empty batch yields empty result", func(t *testing.T) {
		p := newTestPipeline(&stubLLM{response: "{}"})
		records := p.ProcessBatch(ctx, "ON-NON-ATT", nil)
		if len(records) != 0 {
			t.Errorf("got %d records, want 0", len(records))
		}
	})
}
