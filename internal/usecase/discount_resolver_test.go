package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/cavtal/backend/internal/domain"
)

func TestLookupDiscount(t *testing.T) {
	ctx := context.Background()
	tableRow := "Attawapiskat ON-NON-ATT 3.10 2.90 1.40 1.10"

	t.Run("extracts discount for matching row", func(t *testing.T) {
		retriever := &stubRetriever{passages: []domain.Passage{{Text: tableRow}}}
		llm := &stubLLM{response: `{"community_id": "ON-NON-ATT", "discount_per_kg": "2.90"}`}
		r := NewDiscountResolver(retriever, llm, DiscountConfig{})

		lookup := r.LookupDiscount(ctx, "ON-NON-ATT", domain.TierMedium)
		if lookup.CommunityID != "ON-NON-ATT" {
			t.Errorf("CommunityID = %q, want ON-NON-ATT", lookup.CommunityID)
		}
		if lookup.DiscountPerKg != "2.90" {
			t.Errorf("DiscountPerKg = %q, want 2.90", lookup.DiscountPerKg)
		}
	})

	t.Run("prompt embeds table context, ids and tier", func(t *testing.T) {
		retriever := &stubRetriever{passages: []domain.Passage{{Text: tableRow}}}
		llm := &stubLLM{response: `{"community_id": "ON-NON-ATT", "discount_per_kg": "2.90"}`}
		r := NewDiscountResolver(retriever, llm, DiscountConfig{TopK: 5})

		r.LookupDiscount(ctx, "ON-NON-ATT", domain.TierMedium)
		if retriever.lastQuery != "ON-NON-ATT" {
			t.Errorf("retriever query = %q, want community id", retriever.lastQuery)
		}
		if retriever.lastK != 5 {
			t.Errorf("retriever k = %d, want 5", retriever.lastK)
		}
		for _, needle := range []string{tableRow, `"ON-NON-ATT"`, `"Medium"`, "exact match"} {
			if !strings.Contains(llm.lastPrompt, needle) {
				t.Errorf("prompt missing %q:\n%s", needle, llm.lastPrompt)
			}
		}
	})

	t.Run("unparseable model output returns sentinel", func(t *testing.T) {
		retriever := &stubRetriever{passages: []domain.Passage{{Text: tableRow}}}
		llm := &stubLLM{response: "Sorry, I could not locate that community."}
		r := NewDiscountResolver(retriever, llm, DiscountConfig{})

		lookup := r.LookupDiscount(ctx, "ON-NON-ATT", domain.TierMedium)
		if lookup.DiscountPerKg != domain.DiscountNotFound {
			t.Errorf("DiscountPerKg = %q, want %q", lookup.DiscountPerKg, domain.DiscountNotFound)
		}
		if lookup.CommunityID != "ON-NON-ATT" {
			t.Errorf("CommunityID = %q, want input id on failure", lookup.CommunityID)
		}
	})

	t.Run("invalid JSON returns sentinel", func(t *testing.T) {
		retriever := &stubRetriever{passages: []domain.Passage{{Text: tableRow}}}
		llm := &stubLLM{response: `{"community_id": "ON-NON-ATT", "discount_per_kg": }`}
		r := NewDiscountResolver(retriever, llm, DiscountConfig{})

		lookup := r.LookupDiscount(ctx, "ON-NON-ATT", domain.TierMedium)
		if lookup.DiscountPerKg != domain.DiscountNotFound {
			t.Errorf("DiscountPerKg = %q, want sentinel", lookup.DiscountPerKg)
		}
	})

	t.Run("model failure returns sentinel without retry", func(t *testing.T) {
		retriever := &stubRetriever{passages: []domain.Passage{{Text: tableRow}}}
		llm := &stubLLM{err: errBackendDown}
		r := NewDiscountResolver(retriever, llm, DiscountConfig{})

		lookup := r.LookupDiscount(ctx, "MB-NMB-BRO", domain.TierLow)
		if lookup.DiscountPerKg != domain.DiscountNotFound {
			t.Errorf("DiscountPerKg = %q, want sentinel", lookup.DiscountPerKg)
		}
		if llm.calls != 1 {
			t.Errorf("model called %d times, want exactly 1 (no retries)", llm.calls)
		}
	})

	t.Run("retrieval failure returns sentinel without model call", func(t *testing.T) {
		retriever := &stubRetriever{err: errBackendDown}
		llm := &stubLLM{response: `{"discount_per_kg": "2.90"}`}
		r := NewDiscountResolver(retriever, llm, DiscountConfig{})

		lookup := r.LookupDiscount(ctx, "ON-NON-ATT", domain.TierHigh)
		if lookup.DiscountPerKg != domain.DiscountNotFound {
			t.Errorf("DiscountPerKg = %q, want sentinel", lookup.DiscountPerKg)
		}
		if llm.calls != 0 {
			t.Errorf("model called %d times, want 0", llm.calls)
		}
	})

	t.Run("empty discount field returns sentinel", func(t *testing.T) {
		retriever := &stubRetriever{passages: []domain.Passage{{Text: tableRow}}}
		llm := &stubLLM{response: `{"community_id": "ON-NON-ATT", "discount_per_kg": "  "}`}
		r := NewDiscountResolver(retriever, llm, DiscountConfig{})

		lookup := r.LookupDiscount(ctx, "ON-NON-ATT", domain.TierMedium)
		if lookup.DiscountPerKg != domain.DiscountNotFound {
			t.Errorf("DiscountPerKg = %q, want sentinel", lookup.DiscountPerKg)
		}
	})
}

func TestRetrieveContext_WordBudget(t *testing.T) {
	ctx := context.Background()

	long := strings.Repeat("word ", 60)
	retriever := &stubRetriever{passages: []domain.Passage{
		{Text: strings.TrimSpace(long)},
		{Text: strings.TrimSpace(long)},
	}}
	r := NewDiscountResolver(retriever, &stubLLM{}, DiscountConfig{MaxContextWords: 50})

	combined, err := r.retrieveContext(ctx, "ON-NON-ATT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(strings.Fields(combined)); got != 50 {
		t.Errorf("context word count = %d, want truncation to 50", got)
	}
}
