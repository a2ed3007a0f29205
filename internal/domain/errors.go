package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCatalogUnavailable is returned when the product catalog cannot be loaded
	ErrCatalogUnavailable = errors.New("product catalog unavailable")

	// ErrLLMFailure is returned when the language model request fails
	ErrLLMFailure = errors.New("language model request failed")

	// ErrRetrievalFailure is returned when the reference corpus cannot be searched
	ErrRetrievalFailure = errors.New("reference corpus search failed")

	// ErrGeocodeFailure is returned when the geocoding API request fails
	ErrGeocodeFailure = errors.New("geocoding request failed")

	// ErrAddressNotFound is returned when an address cannot be geocoded
	ErrAddressNotFound = errors.New("address could not be geocoded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrBatchNotFound is returned when a batch result is not (yet) available
	ErrBatchNotFound = errors.New("batch result not found")
)
