// Package places resolves place names to points of interest with the Google
// Places text search API.
package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/infrastructure/metrics"
)

var (
	// ErrMissingAPIKey is returned without a network call when no key is configured.
	ErrMissingAPIKey = errors.New("places api key not configured")

	// ErrPlaceNotFound is returned when a search has no results.
	ErrPlaceNotFound = errors.New("place not found")
)

// ClientConfig holds configuration for the places client.
type ClientConfig struct {
	APIKey string
	// BaseURL overrides the API root, e.g. for tests.
	BaseURL string
	Timeout time.Duration
}

// Client looks up places.
type Client struct {
	maps *maps.Client
}

// NewClient creates a places client. An empty API key yields a client whose
// lookups fail with ErrMissingAPIKey.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return &Client{}, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}

	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{maps: mc}, nil
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.maps != nil
}

// FindPlace runs a text search for "<name> <city>" and returns the first result.
func (c *Client) FindPlace(ctx context.Context, name, city string) (*model.Place, error) {
	if !c.Enabled() {
		return nil, ErrMissingAPIKey
	}

	query := strings.TrimSpace(name + " " + city)
	resp, err := c.maps.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			metrics.UpstreamRequestsTotal.WithLabelValues(metrics.UpstreamPlaces, metrics.UpstreamStatusSuccess).Inc()
			return nil, ErrPlaceNotFound
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.UpstreamPlaces, upstreamStatus(err)).Inc()
		return nil, fmt.Errorf("places text search %q: %w", query, err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.UpstreamPlaces, metrics.UpstreamStatusSuccess).Inc()

	if len(resp.Results) == 0 {
		return nil, ErrPlaceNotFound
	}
	return toPlace(resp.Results[0]), nil
}

func toPlace(r maps.PlacesSearchResult) *model.Place {
	p := &model.Place{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		Address:          r.FormattedAddress,
		Lat:              r.Geometry.Location.Lat,
		Lng:              r.Geometry.Location.Lng,
		Rating:           r.Rating,
		UserRatingsTotal: r.UserRatingsTotal,
		PriceLevel:       r.PriceLevel,
		Types:            r.Types,
		Category:         model.CategoryForTypes(r.Types),
	}
	if p.Types == nil {
		p.Types = []string{}
	}
	if len(r.Photos) > 0 {
		p.PhotoReference = r.Photos[0].PhotoReference
	}
	return p
}

func upstreamStatus(err error) string {
	if strings.Contains(err.Error(), "OVER_QUERY_LIMIT") {
		return metrics.UpstreamStatusQuotaExceeded
	}
	return metrics.UpstreamStatusError
}
