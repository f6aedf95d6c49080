// Package geocode resolves between street addresses and coordinates using a
// MapQuest-compatible geocoding API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/elevate-app/elevate-backend/internal/config"
)

var (
	// ErrNoAPIKey means the geocoding service is not configured.
	ErrNoAPIKey = errors.New("no geocoding API key configured")
	// ErrNoResult means the query matched nothing.
	ErrNoResult = errors.New("geocoding query returned no result")
	// ErrNoValue means the query matched but the result lacked a usable field.
	ErrNoValue = errors.New("geocoding result had no usable value")
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.GeocodeConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// ResolveAddress reverse-geocodes coordinates into a human-readable place
// string built from the first (closest) candidate. No retry; any failure is
// surfaced as one of the package sentinels.
func (c *Client) ResolveAddress(ctx context.Context, latitude, longitude float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	endpoint := fmt.Sprintf(
		"%s/geocoding/v1/reverse?key=%s&location=%s",
		c.baseURL,
		url.QueryEscape(c.apiKey),
		url.QueryEscape(fmt.Sprintf("%v,%v", latitude, longitude)),
	)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}

	// Candidates are ordered by distance ascending; only the first is used.
	location := gjson.GetBytes(body, "results.0.locations.0")
	if !location.Exists() {
		return "", ErrNoResult
	}

	street := location.Get("street")
	city := location.Get("adminArea5")
	state := location.Get("adminArea3")
	country := location.Get("adminArea1")
	// JSON null fields exist but carry nothing usable.
	if !hasValue(street) && !hasValue(city) {
		return "", ErrNoValue
	}

	return fmt.Sprintf(
		"%s, %s, %s, %s",
		street.String(), city.String(), state.String(), country.String(),
	), nil
}

// ResolveCoordinates forward-geocodes a free-text address into coordinates
// using the first candidate.
func (c *Client) ResolveCoordinates(ctx context.Context, address string) (float64, float64, error) {
	if c.apiKey == "" {
		return 0, 0, ErrNoAPIKey
	}

	endpoint := fmt.Sprintf(
		"%s/geocoding/v1/address?key=%s&location=%s",
		c.baseURL,
		url.QueryEscape(c.apiKey),
		url.QueryEscape(address),
	)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, 0, err
	}

	location := gjson.GetBytes(body, "results.0.locations.0")
	if !location.Exists() {
		return 0, 0, ErrNoResult
	}

	lat := location.Get("latLng.lat")
	lng := location.Get("latLng.lng")
	if !hasValue(lat) || !hasValue(lng) {
		return 0, 0, ErrNoValue
	}

	return lat.Float(), lng.Float(), nil
}

func hasValue(field gjson.Result) bool {
	return field.Exists() && field.Type != gjson.Null && field.String() != ""
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoding request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocoding response: %w", err)
	}

	return body, nil
}
