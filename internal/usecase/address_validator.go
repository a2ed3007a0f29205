package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cavtal/backend/internal/domain"
)

// defaultGeocodeTTL is how long a resolved community is cached per address.
const defaultGeocodeTTL = 24 * time.Hour

// AddressValidation is the outcome of checking a delivery address against a
// claimed community.
type AddressValidation struct {
	Valid             bool   `json:"valid"`
	ResolvedCommunity string `json:"resolved_community"`
}

// AddressValidator checks that a delivery address actually lies in the
// community the shopper selected. Geocoding results are cached per address;
// the provider quota is far below checkout traffic.
type AddressValidator struct {
	geocoder domain.Geocoder
	cache    domain.CacheRepository
	ttl      time.Duration
}

// NewAddressValidator creates a validator. cache may be nil, in which case
// every call geocodes.
func NewAddressValidator(geocoder domain.Geocoder, cache domain.CacheRepository, ttl time.Duration) *AddressValidator {
	if ttl <= 0 {
		ttl = defaultGeocodeTTL
	}
	return &AddressValidator{
		geocoder: geocoder,
		cache:    cache,
		ttl:      ttl,
	}
}

// Validate geocodes the address and compares the resolved community with the
// claimed one. The comparison is case-insensitive and accepts either name
// containing the other, so "Attawapiskat" matches "Attawapiskat First Nation".
// An address the provider cannot place is a negative result, not an error.
func (v *AddressValidator) Validate(ctx context.Context, address, claimedCommunity string) (AddressValidation, error) {
	address = strings.TrimSpace(address)
	claimedCommunity = strings.TrimSpace(claimedCommunity)
	if address == "" || claimedCommunity == "" {
		return AddressValidation{}, fmt.Errorf("%w: address and community are required", domain.ErrInvalidRequest)
	}

	resolved, err := v.resolveCached(ctx, address)
	if errors.Is(err, domain.ErrAddressNotFound) {
		return AddressValidation{Valid: false}, nil
	}
	if err != nil {
		return AddressValidation{}, err
	}

	return AddressValidation{
		Valid:             communitiesMatch(resolved, claimedCommunity),
		ResolvedCommunity: resolved,
	}, nil
}

func (v *AddressValidator) resolveCached(ctx context.Context, address string) (string, error) {
	key := "geocode:" + strings.ToLower(address)

	if v.cache != nil {
		if cached, err := v.cache.Get(ctx, key); err == nil {
			if name, ok := cached.(string); ok {
				return name, nil
			}
		}
	}

	resolved, err := v.geocoder.ResolveCommunity(ctx, address)
	if err != nil {
		return "", err
	}

	if v.cache != nil {
		// A failed Set only costs a future geocode call.
		_ = v.cache.Set(ctx, key, resolved, v.ttl)
	}
	return resolved, nil
}

// communitiesMatch reports whether either normalized name contains the other.
func communitiesMatch(resolved, claimed string) bool {
	a := NormalizeName(resolved)
	b := NormalizeName(claimed)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
