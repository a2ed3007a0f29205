package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/cavtal/backend/internal/domain"
)

// defaultFallbackTopK is the number of reference passages retrieved for a
// model-fallback resolution.
const defaultFallbackTopK = 30

// FallbackConfig holds configuration for the retrieval fallback resolver
type FallbackConfig struct {
	TopK               int
	EnableDebugLogging bool
}

// FallbackResolver resolves a product name via retrieval-augmented model
// extraction when deterministic matching has failed or no structured catalog
// exists. It never returns an error: every failure mode (retrieval outage,
// model outage, unparseable output, invented code) degrades to an all-nil
// resolution.
type FallbackResolver struct {
	retriever          domain.Retriever
	llm                domain.LanguageModel
	validCodes         map[string]bool
	topK               int
	enableDebugLogging bool
}

// codeShapeRegex is the structural form of an NNC code, used to vet model
// proposals when no closed code set is available.
var codeShapeRegex = regexp.MustCompile(`^\d{1,2}-[A-Z]\d{2}$`)

// NewFallbackResolver creates a fallback resolver. validCodes is the closed
// set of known NNC codes used to validate model proposals; a model answer
// outside this set is discarded, which is the only guard against the model
// inventing a plausible-looking code. A nil set (no catalog loaded) relaxes
// the check to code shape alone.
func NewFallbackResolver(
	retriever domain.Retriever,
	llm domain.LanguageModel,
	validCodes map[string]bool,
	config FallbackConfig,
) *FallbackResolver {
	topK := config.TopK
	if topK <= 0 {
		topK = defaultFallbackTopK
	}

	return &FallbackResolver{
		retriever:          retriever,
		llm:                llm,
		validCodes:         validCodes,
		topK:               topK,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// codeHint is a (category, code) provenance pair collected from retrieved
// passage metadata.
type codeHint struct {
	Category string
	Code     string
}

// modelResolution mirrors the JSON object the extraction prompt asks for.
// Pointer fields because the model is instructed to emit null when it has no
// confident match.
type modelResolution struct {
	ProductCode  *string `json:"product_code"`
	SubsidyLevel *string `json:"subsidy_level"`
}

// ResolveViaModel runs retrieval, prompt construction, model invocation and
// validated parsing for one product description.
func (r *FallbackResolver) ResolveViaModel(ctx context.Context, productName string) domain.ProductResolution {
	resolution := domain.ProductResolution{ProductName: productName}

	passages, err := r.retriever.Search(ctx, productName, r.topK)
	if err != nil {
		if r.enableDebugLogging {
			log.Printf("[FALLBACK] Retrieval failed for %q: %v", productName, err)
		}
		return resolution
	}

	reference, hints := buildReferenceBlock(passages)
	prompt := buildExtractionPrompt(productName, reference, hints)

	raw, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		if r.enableDebugLogging {
			log.Printf("[FALLBACK] Model call failed for %q: %v", productName, err)
		}
		return resolution
	}

	block, ok := extractJSONBlock(raw)
	if !ok {
		if r.enableDebugLogging {
			log.Printf("[FALLBACK] No JSON object in model output for %q", productName)
		}
		return resolution
	}

	var parsed modelResolution
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		if r.enableDebugLogging {
			log.Printf("[FALLBACK] JSON parse failed for %q: %v", productName, err)
		}
		return resolution
	}

	if parsed.ProductCode == nil {
		return resolution
	}

	code := strings.TrimSpace(*parsed.ProductCode)
	if !r.acceptableCode(code) {
		// Proposal outside the known-code set: treated identically to no
		// match, the proposal is discarded, not surfaced.
		if r.enableDebugLogging {
			log.Printf("[FALLBACK] Rejected unknown code %q for %q", code, productName)
		}
		return resolution
	}

	resolution.ProductCode = &code

	// The deterministic table is authoritative over whatever tier text the
	// model returned alongside a valid code.
	if tier, ok := ClassifySubsidy(code); ok {
		resolution.SubsidyLevel = &tier
	}

	if r.enableDebugLogging {
		log.Printf("[FALLBACK] Resolved %q -> code=%s", productName, code)
	}
	return resolution
}

// acceptableCode vets a model-proposed code. With a code set the test is
// membership; without one, only the structural form is checked.
func (r *FallbackResolver) acceptableCode(code string) bool {
	if code == "" {
		return false
	}
	if r.validCodes != nil {
		return r.validCodes[code]
	}
	return codeShapeRegex.MatchString(code)
}

// buildReferenceBlock concatenates passage texts in retrieval-rank order and
// collects tagged (category, code) pairs as hints, de-duplicated by pair
// identity with order preserved.
func buildReferenceBlock(passages []domain.Passage) (string, []codeHint) {
	var b strings.Builder
	var hints []codeHint
	seen := make(map[codeHint]bool)

	for _, p := range passages {
		if p.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(p.Text)
		}
		if p.Category != "" && p.Code != "" {
			hint := codeHint{Category: p.Category, Code: p.Code}
			if !seen[hint] {
				seen[hint] = true
				hints = append(hints, hint)
			}
		}
	}

	return b.String(), hints
}

// buildExtractionPrompt assembles the structured-extraction prompt. The
// few-shot examples demonstrate category generalization (an explicit "Bread
// products" category covers unseen items like bagels or buns), the numeral
// rules restate the classifier table, and the model is told to emit null for
// both fields when no confident category match exists.
func buildExtractionPrompt(productName, reference string, hints []codeHint) string {
	var hintBlock strings.Builder
	if len(hints) > 0 {
		hintBlock.WriteString("Known category codes from the reference data:\n")
		for _, h := range hints {
			hintBlock.WriteString(fmt.Sprintf("- %s: %s\n", h.Code, h.Category))
		}
	}

	return fmt.Sprintf(`You are a smart assistant for a food subsidy program. From the reference data below, determine the NNC product code and subsidy level for a grocery product.

Product codes have the form <digit>-<suffix>. The leading digit encodes the subsidy level:
7 = High, 1 = Medium, 2 = Low, 3 = Low, 4 = Low, 5 = Country Food, 8 = Seasonal Surface.

Categories generalize to unseen items: a category like "Bread products" covers bagels, buns, tortillas and similar items even if they are not listed by name.

Always respond in valid JSON like:
{
"product_code": "...",
"subsidy_level": "..."
}

If you cannot find a confident category match for the product, respond with:
{
"product_code": null,
"subsidy_level": null
}

Strictly follow these examples:

Example 1:
Product: "bagels"
Reference contains: "1-B02 Bread products"
Output:
{
"product_code": "1-B02",
"subsidy_level": "Medium"
}

Example 2:
Product: "frozen strawberries"
Reference contains: "7-A01 Frozen fruit and vegetables"
Output:
{
"product_code": "7-A01",
"subsidy_level": "High"
}

Example 3:
Product: "cigarettes"
Output:
{
"product_code": null,
"subsidy_level": null
}

Now, complete the following:

Product: %q

%s
Reference data:
%s
`, productName, hintBlock.String(), reference)
}
