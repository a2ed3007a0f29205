package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cavtal/backend/internal/domain"
)

const (
	// defaultDiscountTopK is the number of community-table passages retrieved
	// per lookup.
	defaultDiscountTopK = 20
	// defaultMaxContextWords bounds the concatenated context embedded in the
	// extraction prompt (roughly proportional to token count).
	defaultMaxContextWords = 2500
)

// DiscountConfig holds configuration for the community discount resolver
type DiscountConfig struct {
	TopK               int
	MaxContextWords    int
	EnableDebugLogging bool
}

// DiscountResolver runs stage 2: community id + subsidy tier -> discount per
// kg, extracted by the model from retrieved community-table text. A single
// failed attempt of any kind degrades to the "Not found" sentinel; there are
// no retries and no errors surface to the caller.
type DiscountResolver struct {
	retriever          domain.Retriever
	llm                domain.LanguageModel
	topK               int
	maxContextWords    int
	enableDebugLogging bool
}

// NewDiscountResolver creates a discount resolver with the given collaborators.
func NewDiscountResolver(retriever domain.Retriever, llm domain.LanguageModel, config DiscountConfig) *DiscountResolver {
	topK := config.TopK
	if topK <= 0 {
		topK = defaultDiscountTopK
	}
	maxWords := config.MaxContextWords
	if maxWords <= 0 {
		maxWords = defaultMaxContextWords
	}

	return &DiscountResolver{
		retriever:          retriever,
		llm:                llm,
		topK:               topK,
		maxContextWords:    maxWords,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// discountExtraction mirrors the JSON object the extraction prompt asks for.
type discountExtraction struct {
	CommunityID   string `json:"community_id"`
	DiscountPerKg string `json:"discount_per_kg"`
}

// LookupDiscount retrieves community-table context and asks the model for the
// discount under the given tier's column. The returned lookup always carries
// the input community id; DiscountPerKg is either the extracted value or the
// sentinel "Not found".
func (r *DiscountResolver) LookupDiscount(ctx context.Context, communityID string, level domain.SubsidyTier) domain.DiscountLookup {
	notFound := domain.DiscountLookup{
		CommunityID:   communityID,
		DiscountPerKg: domain.DiscountNotFound,
	}

	tableContext, err := r.retrieveContext(ctx, communityID)
	if err != nil {
		if r.enableDebugLogging {
			log.Printf("[DISCOUNT] Retrieval failed for %q: %v", communityID, err)
		}
		return notFound
	}

	prompt := buildDiscountPrompt(communityID, level, tableContext)

	raw, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		if r.enableDebugLogging {
			log.Printf("[DISCOUNT] Model call failed for %q: %v", communityID, err)
		}
		return notFound
	}

	block, ok := extractJSONBlock(raw)
	if !ok {
		if r.enableDebugLogging {
			log.Printf("[DISCOUNT] No JSON object in model output for %q", communityID)
		}
		return notFound
	}

	var parsed discountExtraction
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		if r.enableDebugLogging {
			log.Printf("[DISCOUNT] JSON parse failed for %q: %v", communityID, err)
		}
		return notFound
	}

	discount := strings.TrimSpace(parsed.DiscountPerKg)
	if discount == "" {
		return notFound
	}

	return domain.DiscountLookup{
		CommunityID:   communityID,
		DiscountPerKg: discount,
	}
}

// retrieveContext fetches the top-K passages keyed by the community id,
// concatenates them in rank order and truncates to the word budget. Context
// is fetched fresh per lookup and discarded after parsing, never cached.
func (r *DiscountResolver) retrieveContext(ctx context.Context, communityID string) (string, error) {
	passages, err := r.retriever.Search(ctx, communityID, r.topK)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	combined := strings.Join(parts, "\n")

	words := strings.Fields(combined)
	if len(words) > r.maxContextWords {
		combined = strings.Join(words[:r.maxContextWords], " ")
	}
	return combined, nil
}

// buildDiscountPrompt assembles the exact-match extraction prompt. Table rows
// are Name, ID, High, Medium, Low, Seasonal; the model must match the
// community id exactly (not fuzzily) and select the column for the requested
// tier. The few-shot examples demonstrate the column selection.
func buildDiscountPrompt(communityID string, level domain.SubsidyTier, tableContext string) string {
	return fmt.Sprintf(`You are a smart assistant. From the table or data below, extract the discount per kg for a given community ID and subsidy level.

The data is structured with the format:
Community Name Community ID High Medium Low Seasonal

Please perform an exact match on the Community ID, and return the value from the correct subsidy level column.

Always respond in valid JSON like:
{
"community_id": "...",
"discount_per_kg": "..."
}

Strictly follow these examples:

Example 1:
Input:
community_id = "ON-NON-ATT"
subsidy_level = "Medium"
Table:
Attawapiskat ON-NON-ATT 3.10 2.90 1.40 1.10

Output:
{
"community_id": "ON-NON-ATT",
"discount_per_kg": "2.90"
}

Example 2:
Input:
community_id = "MB-NMB-BRO"
subsidy_level = "Low"
Table:
Brochet MB-NMB-BRO 3.10 2.90 1.40 1.10

Output:
{
"community_id": "MB-NMB-BRO",
"discount_per_kg": "1.40"
}

Example 3:
Input:
community_id = "AB-NAB-FCH"
subsidy_level = "High"
Table:
Brochet MB-NMB-BRO 3.10 2.90 1.40 1.10

Output:
{
"community_id": "AB-NAB-FCH",
"discount_per_kg": "Not found"
}

Now, complete the following:

Input:
community_id = %q
subsidy_level = %q

Table:
%s
`, communityID, string(level), tableContext)
}
