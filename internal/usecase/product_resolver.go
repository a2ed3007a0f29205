package usecase

import (
	"context"
	"log"
	"regexp"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/cavtal/backend/internal/domain"
)

// passageAcceptThreshold is the minimum partial-ratio overlap between a
// cleaned product name and a retrieved passage for the corpus-only direct
// scan to trust that passage.
const passageAcceptThreshold = 70

// embeddedCodeRegex finds an NNC-shaped code embedded in reference text,
// e.g. "7-A01" inside "7-A01 Frozen fruit and vegetables".
var embeddedCodeRegex = regexp.MustCompile(`\b(\d{1,2}-[A-Z]\d{2})\b`)

// resolveStrategy is the stage-1 matching strategy, fixed at construction
// time. Structured-catalog and corpus-only resolution are interchangeable
// variants behind this interface rather than runtime branches at call sites.
type resolveStrategy interface {
	resolve(ctx context.Context, productName string) domain.ProductResolution
}

// ProductResolver orchestrates stage 1: product name -> {code, subsidy level}.
// Whatever the strategy, Resolve always returns a well-formed resolution;
// nil fields are the terminal "no match" outcome, never an error.
type ProductResolver struct {
	strategy resolveStrategy
}

// NewCatalogProductResolver builds a resolver in structured-catalog mode.
// On a confident catalog match the subsidy tier is derived from the code with
// no model call. fallback may be nil; when present it handles queries the
// matcher rejects.
func NewCatalogProductResolver(matcher *CatalogMatcher, fallback *FallbackResolver) *ProductResolver {
	return &ProductResolver{strategy: &catalogStrategy{matcher: matcher, fallback: fallback}}
}

// NewCorpusProductResolver builds a resolver in corpus-only mode: no
// structured catalog, only retrieved reference text. A direct fuzzy scan of
// retrieved passages runs first; the model fallback is consulted only when
// that scan finds nothing.
func NewCorpusProductResolver(retriever domain.Retriever, fallback *FallbackResolver, config CorpusConfig) *ProductResolver {
	topK := config.TopK
	if topK <= 0 {
		topK = defaultFallbackTopK
	}
	return &ProductResolver{strategy: &corpusStrategy{
		retriever:          retriever,
		fallback:           fallback,
		topK:               topK,
		enableDebugLogging: config.EnableDebugLogging,
	}}
}

// CorpusConfig holds configuration for corpus-only resolution
type CorpusConfig struct {
	TopK               int
	EnableDebugLogging bool
}

// Resolve runs stage 1 for a single product name.
func (r *ProductResolver) Resolve(ctx context.Context, productName string) domain.ProductResolution {
	return r.strategy.resolve(ctx, productName)
}

// ResolveAll runs stage 1 for each name in order. The output is one-to-one
// with the input: unresolved entries keep nil fields, they are never dropped.
func (r *ProductResolver) ResolveAll(ctx context.Context, productNames []string) []domain.ProductResolution {
	resolutions := make([]domain.ProductResolution, len(productNames))
	for i, name := range productNames {
		resolutions[i] = r.strategy.resolve(ctx, name)
	}
	return resolutions
}

// catalogStrategy resolves against a loaded name->code catalog.
type catalogStrategy struct {
	matcher  *CatalogMatcher
	fallback *FallbackResolver
}

func (s *catalogStrategy) resolve(ctx context.Context, productName string) domain.ProductResolution {
	entry := s.matcher.PickBestEntry(productName)
	if entry == nil {
		if s.fallback != nil {
			return s.fallback.ResolveViaModel(ctx, productName)
		}
		return domain.ProductResolution{ProductName: productName}
	}

	resolution := domain.ProductResolution{ProductName: productName}
	code := entry.Code
	resolution.ProductCode = &code
	if tier, ok := ClassifySubsidy(code); ok {
		resolution.SubsidyLevel = &tier
	}
	return resolution
}

// corpusStrategy resolves against unstructured retrieved reference text.
type corpusStrategy struct {
	retriever          domain.Retriever
	fallback           *FallbackResolver
	topK               int
	enableDebugLogging bool
}

func (s *corpusStrategy) resolve(ctx context.Context, productName string) domain.ProductResolution {
	if resolution, ok := s.scanPassages(ctx, productName); ok {
		return resolution
	}
	if s.fallback != nil {
		return s.fallback.ResolveViaModel(ctx, productName)
	}
	return domain.ProductResolution{ProductName: productName}
}

// scanPassages is the lightweight direct pass: find the retrieved passage
// whose content best overlaps the cleaned product name, then look for an
// embedded code inside it line by line. Returns ok=false when retrieval
// fails, no passage clears the overlap threshold, or the best passage carries
// no recognizable code.
func (s *corpusStrategy) scanPassages(ctx context.Context, productName string) (domain.ProductResolution, bool) {
	resolution := domain.ProductResolution{ProductName: productName}

	passages, err := s.retriever.Search(ctx, productName, s.topK)
	if err != nil || len(passages) == 0 {
		return resolution, false
	}

	cleaned := NormalizeName(productName)
	if cleaned == "" {
		return resolution, false
	}

	bestIdx := -1
	bestScore := -1
	for i := range passages {
		if passages[i].Text == "" {
			continue
		}
		score := fuzzy.PartialRatio(cleaned, NormalizeName(passages[i].Text))
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < passageAcceptThreshold {
		return resolution, false
	}

	code, ok := findEmbeddedCode(passages[bestIdx].Text)
	if !ok {
		return resolution, false
	}

	if s.enableDebugLogging {
		log.Printf("[CORPUS] Direct scan matched %q to code %s (overlap %d)", productName, code, bestScore)
	}

	resolution.ProductCode = &code
	if tier, tierOK := ClassifySubsidy(code); tierOK {
		resolution.SubsidyLevel = &tier
	}
	return resolution, true
}

// findEmbeddedCode scans passage text for the first NNC-shaped code.
func findEmbeddedCode(text string) (string, bool) {
	m := embeddedCodeRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
