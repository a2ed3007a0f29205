package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/cavtal/backend/internal/domain"
)

func testValidCodes() map[string]bool {
	return map[string]bool{
		"7-A01": true,
		"1-B02": true,
		"5-C02": true,
	}
}

func TestResolveViaModel(t *testing.T) {
	ctx := context.Background()
	passages := []domain.Passage{
		{Text: "7-A01 Frozen fruit and vegetables", Category: "Frozen fruit and vegetables", Code: "7-A01"},
		{Text: "1-B02 Bread products", Category: "Bread products", Code: "1-B02"},
	}

	t.Run("accepts valid code and derives tier from table", func(t *testing.T) {
		retriever := &stubRetriever{passages: passages}
		// The model claims a wrong tier; the deterministic table must win.
		llm := &stubLLM{response: `{"product_code": "7-A01", "subsidy_level": "Low"}`}
		r := NewFallbackResolver(retriever, llm, testValidCodes(), FallbackConfig{})

		res := r.ResolveViaModel(ctx, "frozen strawberries")
		if res.ProductCode == nil || *res.ProductCode != "7-A01" {
			t.Fatalf("ProductCode = %v, want 7-A01", res.ProductCode)
		}
		if res.SubsidyLevel == nil || *res.SubsidyLevel != domain.TierHigh {
			t.Errorf("SubsidyLevel = %v, want High (from table, not model)", res.SubsidyLevel)
		}
	})

	t.Run("rejects code outside the known set", func(t *testing.T) {
		retriever := &stubRetriever{passages: passages}
		llm := &stubLLM{response: `{"product_code": "9-Z99", "subsidy_level": "High"}`}
		r := NewFallbackResolver(retriever, llm, testValidCodes(), FallbackConfig{})

		res := r.ResolveViaModel(ctx, "mystery item")
		if res.ProductCode != nil {
			t.Errorf("ProductCode = %q, want nil for invented code", *res.ProductCode)
		}
		if res.SubsidyLevel != nil {
			t.Errorf("SubsidyLevel = %q, want nil", *res.SubsidyLevel)
		}
	})

	t.Run("nil code set accepts any well-formed code", func(t *testing.T) {
		retriever := &stubRetriever{passages: passages}
		llm := &stubLLM{response: `{"product_code": "3-D07", "subsidy_level": "Low"}`}
		r := NewFallbackResolver(retriever, llm, nil, FallbackConfig{})

		res := r.ResolveViaModel(ctx, "canned soup")
		if res.ProductCode == nil || *res.ProductCode != "3-D07" {
			t.Fatalf("ProductCode = %v, want 3-D07", res.ProductCode)
		}
		if res.SubsidyLevel == nil || *res.SubsidyLevel != domain.TierLow {
			t.Errorf("SubsidyLevel = %v, want Low", res.SubsidyLevel)
		}
	})

	t.Run("nil code set still rejects malformed codes", func(t *testing.T) {
		retriever := &stubRetriever{passages: passages}
		llm := &stubLLM{response: `{"product_code": "not a code", "subsidy_level": "High"}`}
		r := NewFallbackResolver(retriever, llm, nil, FallbackConfig{})

		res := r.ResolveViaModel(ctx, "mystery item")
		if res.ProductCode != nil {
			t.Errorf("ProductCode = %q, want nil for malformed code", *res.ProductCode)
		}
	})

	t.Run("model nulls yield empty resolution", func(t *testing.T) {
		retriever := &stubRetriever{passages: passages}
		llm := &stubLLM{response: `{"product_code": null, "subsidy_level": null}`}
		r := NewFallbackResolver(retriever, llm, testValidCodes(), FallbackConfig{})

		res := r.ResolveViaModel(ctx, "cigarettes")
		if res.ProductCode != nil || res.SubsidyLevel != nil {
			t.Errorf("expected all-nil resolution, got %+v", res)
		}
		if res.ProductName != "cigarettes" {
			t.Errorf("ProductName = %q, want input preserved", res.ProductName)
		}
	})

	t.Run("unparseable model output degrades to empty resolution", func(t *testing.T) {
		retriever := &stubRetriever{passages: passages}
		llm := &stubLLM{response: "I am not sure what you mean."}
		r := NewFallbackResolver(retriever, llm, testValidCodes(), FallbackConfig{})

		res := r.ResolveViaModel(ctx, "bagels")
		if res.ProductCode != nil || res.SubsidyLevel != nil {
			t.Errorf("expected all-nil resolution, got %+v", res)
		}
	})

	t.Run("retriever failure degrades without model call", func(t *testing.T) {
		retriever := &stubRetriever{err: errBackendDown}
		llm := &stubLLM{response: `{"product_code": "7-A01"}`}
		r := NewFallbackResolver(retriever, llm, testValidCodes(), FallbackConfig{})

		res := r.ResolveViaModel(ctx, "frozen peas")
		if res.ProductCode != nil {
			t.Errorf("expected nil code on retrieval failure, got %q", *res.ProductCode)
		}
		if llm.calls != 0 {
			t.Errorf("model called %d times, want 0", llm.calls)
		}
	})

	t.Run("model failure degrades to empty resolution", func(t *testing.T) {
		retriever := &stubRetriever{passages: passages}
		llm := &stubLLM{err: errBackendDown}
		r := NewFallbackResolver(retriever, llm, testValidCodes(), FallbackConfig{})

		res := r.ResolveViaModel(ctx, "frozen peas")
		if res.ProductCode != nil || res.SubsidyLevel != nil {
			t.Errorf("expected all-nil resolution, got %+v", res)
		}
	})

	t.Run("prompt carries reference text and hint pairs", func(t *testing.T) {
		retriever := &stubRetriever{passages: passages}
		llm := &stubLLM{response: `{"product_code": null, "subsidy_level": null}`}
		r := NewFallbackResolver(retriever, llm, testValidCodes(), FallbackConfig{TopK: 10})

		r.ResolveViaModel(ctx, "bagels")
		if retriever.lastK != 10 {
			t.Errorf("retriever k = %d, want 10", retriever.lastK)
		}
		if !strings.Contains(llm.lastPrompt, "1-B02 Bread products") {
			t.Errorf("prompt missing passage text:\n%s", llm.lastPrompt)
		}
		if !strings.Contains(llm.lastPrompt, "- 1-B02: Bread products") {
			t.Errorf("prompt missing hint pair:\n%s", llm.lastPrompt)
		}
	})
}

func TestBuildReferenceBlock(t *testing.T) {
	t.Run("dedupes hints preserving order", func(t *testing.T) {
		passages := []domain.Passage{
			{Text: "a", Category: "Bread products", Code: "1-B02"},
			{Text: "b", Category: "Frozen fruit", Code: "7-A01"},
			{Text: "c", Category: "Bread products", Code: "1-B02"},
		}
		reference, hints := buildReferenceBlock(passages)
		if reference != "a\nb\nc" {
			t.Errorf("reference = %q, want texts joined in rank order", reference)
		}
		if len(hints) != 2 {
			t.Fatalf("len(hints) = %d, want 2", len(hints))
		}
		if hints[0].Code != "1-B02" || hints[1].Code != "7-A01" {
			t.Errorf("hints out of order: %+v", hints)
		}
	})

	t.Run("skips empty texts and untagged passages", func(t *testing.T) {
		passages := []domain.Passage{
			{Text: ""},
			{Text: "only text, no tags"},
			{Text: "tagged", Category: "Dairy", Code: "1-A03"},
		}
		reference, hints := buildReferenceBlock(passages)
		if reference != "only text, no tags\ntagged" {
			t.Errorf("reference = %q", reference)
		}
		if len(hints) != 1 {
			t.Errorf("len(hints) = %d, want 1", len(hints))
		}
	})
}
