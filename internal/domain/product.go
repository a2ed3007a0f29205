package domain

// CatalogItem is a raw (name, code) pair as read from a catalog source.
type CatalogItem struct {
	ItemName string `json:"itemName" db:"itemname"`
	Code     string `json:"code" db:"nnc_id"`
}

// CatalogEntry is a loaded catalog row. NormalizedName is derived from
// CanonicalName at load time and never recomputed afterwards; queries must be
// normalized with the same function or matching silently breaks.
type CatalogEntry struct {
	CanonicalName  string `json:"canonicalName"`
	NormalizedName string `json:"normalizedName"`
	Code           string `json:"code"`
}

// MatchSuggestion is one ranked candidate from the top-K suggestion variant.
type MatchSuggestion struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ProductResolution is the stage-1 output for a single product name.
// Nil fields mean the corresponding value could not be determined; that is a
// valid terminal outcome, not an error.
type ProductResolution struct {
	ProductName  string       `json:"product_name"`
	ProductCode  *string      `json:"product_code"`
	SubsidyLevel *SubsidyTier `json:"subsidy_level"`
}

// DiscountLookup is the stage-2 output. DiscountPerKg stays an opaque string:
// the source is free-form table text with no numeric-type guarantee, and the
// sentinel "Not found" must be distinguishable from a parsed value.
type DiscountLookup struct {
	CommunityID   string `json:"community_id"`
	DiscountPerKg string `json:"discount_per_kg"`
}

// DiscountNotFound is the user-visible unknown marker for stage 2.
const DiscountNotFound = "Not found"

// BatchItem is one (correlation id, product name) pair in a batch request.
// CartItemID is pass-through bookkeeping for the caller; it plays no role in
// resolution.
type BatchItem struct {
	CartItemID  string `json:"cart_item_id"`
	ProductName string `json:"product_name"`
}

// ResultRecord is the final per-product aggregate: stage-1 fields plus the
// community discount and the caller's correlation id.
type ResultRecord struct {
	ProductName   string       `json:"product_name"`
	ProductCode   *string      `json:"product_code"`
	SubsidyLevel  *SubsidyTier `json:"subsidy_level"`
	CommunityID   string       `json:"community_id"`
	DiscountPerKg *string      `json:"discount_per_kg"`
	CartItemID    string       `json:"cart_item_id"`
}

// BatchJob is the queued payload for asynchronous batch processing. BatchID
// identifies the job to pollers; CartID and the item correlation ids are
// round-tripped into the result untouched.
type BatchJob struct {
	BatchID     string      `json:"batch_id"`
	CartID      string      `json:"cart_id"`
	CommunityID string      `json:"community_id"`
	Items       []BatchItem `json:"items"`
}

// BatchResult aggregates all per-product records for one cart.
type BatchResult struct {
	CartID   string         `json:"cart_id"`
	Products []ResultRecord `json:"products"`
}

// Passage is a retrieved unit of reference text. Metadata fields are optional
// and carry provenance tagged at corpus build time; a zero Page or empty
// Category/Code simply means the passage was not tagged.
type Passage struct {
	Text     string `json:"text"`
	Page     int    `json:"page,omitempty"`
	Category string `json:"category,omitempty"`
	Code     string `json:"product_code,omitempty"`
}
