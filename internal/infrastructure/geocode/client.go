package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/cavtal/backend/internal/domain"
)

// Client resolves free-form addresses to community names via the Geoapify
// geocoding API.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a geocoding client.
func NewClient(apiKey, baseURL string) *Client {
	// Geoapify's free plan allows 5 requests per second.
	limiter := rate.NewLimiter(rate.Limit(5), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
	}
}

// SetDebug toggles request logging.
func (c *Client) SetDebug(enabled bool) {
	c.debug = enabled
}

type geocodeResponse struct {
	Features []struct {
		Properties struct {
			City      string `json:"city"`
			County    string `json:"county"`
			State     string `json:"state"`
			Formatted string `json:"formatted"`
		} `json:"properties"`
	} `json:"features"`
}

// ResolveCommunity geocodes the address and returns the settlement name the
// provider places it in. Returns domain.ErrAddressNotFound when the provider
// has no match for the address.
func (c *Client) ResolveCommunity(ctx context.Context, address string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/geocode/search", c.baseURL)
	params := url.Values{}
	params.Add("text", address)
	params.Add("apiKey", c.apiKey)
	params.Add("limit", "1")

	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if c.debug {
				log.Printf("[GEOCODE] Request error (attempt %d): %v", attempt, err)
			}
			lastErr = fmt.Errorf("%w: %v", domain.ErrGeocodeFailure, err)
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			if c.debug {
				log.Printf("[GEOCODE] API error (attempt %d) - Status: %d, Body: %s",
					attempt, resp.StatusCode, string(body))
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrGeocodeFailure, resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return "", lastErr
			}
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		var parsed geocodeResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}

		if len(parsed.Features) == 0 {
			return "", domain.ErrAddressNotFound
		}

		props := parsed.Features[0].Properties
		name := props.City
		if name == "" {
			name = props.County
		}
		if name == "" {
			return "", domain.ErrAddressNotFound
		}
		return name, nil
	}

	if c.debug {
		log.Printf("[GEOCODE] All retries failed for address: %q", address)
	}
	return "", lastErr
}
