// Package youtube wraps the YouTube Data API v3 search and videos endpoints
// and turns their results into scored, classified videos.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/infrastructure/metrics"
)

// maxIDsPerRequest is the videos endpoint's hard limit on ids per call.
const maxIDsPerRequest = 50

// Duration buckets accepted by the search endpoint.
const (
	DurationAny    = "any"
	DurationShort  = "short"
	DurationMedium = "medium"
	DurationLong   = "long"
)

// Source tags videos produced by this client.
const Source = "youtube"

var (
	// ErrMissingAPIKey is returned without any network call when no API key is configured.
	ErrMissingAPIKey = errors.New("youtube api key not configured")

	// ErrQuotaExceeded matches any *APIError with HTTP status 403.
	ErrQuotaExceeded = errors.New("youtube quota exceeded")
)

// APIError is a non-2xx response from the YouTube API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Is reports 403 responses as ErrQuotaExceeded.
func (e *APIError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.StatusCode == http.StatusForbidden
}

// ClientConfig holds configuration for the YouTube client.
type ClientConfig struct {
	APIKey string
	// BaseURL overrides the API root, e.g. for tests. Empty uses the public endpoint.
	BaseURL string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// MaxResults is the default search page size.
	MaxResults int64
	// DetailConcurrency bounds parallel detail chunk requests.
	DetailConcurrency int
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:            apiKey,
		Timeout:           10 * time.Second,
		MaxResults:        25,
		DetailConcurrency: 4,
	}
}

// SearchOptions narrows a search.
type SearchOptions struct {
	MaxResults int64
	// Duration is one of DurationAny, DurationShort, DurationMedium, DurationLong.
	Duration string
	// Order is relevance, date, rating or viewCount.
	Order string
	// Definition is any or high.
	Definition string
	// Caption is empty, any, closedCaption or none.
	Caption string
}

// VideoDetails holds the fields only the videos endpoint returns.
type VideoDetails struct {
	DurationSeconds int
	ViewCount       uint64
	LikeCount       uint64
}

// Client talks to the YouTube Data API.
type Client struct {
	svc               *yt.Service
	maxResults        int64
	detailConcurrency int
}

// NewClient creates a YouTube client. An empty API key yields a client whose
// calls fail fast with ErrMissingAPIKey.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 25
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 4
	}

	c := &Client{
		maxResults:        cfg.MaxResults,
		detailConcurrency: cfg.DetailConcurrency,
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &transport.APIKey{Key: cfg.APIKey, Transport: http.DefaultTransport},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.svc != nil
}

// SearchVideos runs a search restricted to embeddable, safe-search videos.
func (c *Client) SearchVideos(ctx context.Context, query string, opts SearchOptions) ([]model.Video, error) {
	if !c.Enabled() {
		return nil, ErrMissingAPIKey
	}

	if opts.MaxResults <= 0 {
		opts.MaxResults = c.maxResults
	}
	if opts.Duration == "" {
		opts.Duration = DurationAny
	}
	if opts.Order == "" {
		opts.Order = "relevance"
	}
	if opts.Definition == "" {
		opts.Definition = "any"
	}

	call := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(opts.MaxResults).
		Order(opts.Order).
		VideoDuration(opts.Duration).
		VideoDefinition(opts.Definition).
		VideoEmbeddable("true").
		SafeSearch("strict")
	if opts.Caption != "" {
		call = call.VideoCaption(opts.Caption)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		err = classifyError("search", err)
		recordUpstream(metrics.UpstreamYouTubeSearch, err)
		return nil, err
	}
	recordUpstream(metrics.UpstreamYouTubeSearch, nil)

	videos := make([]model.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, toVideo(item.Id.VideoId, item.Snippet))
	}
	return videos, nil
}

// GetVideoDetails fetches duration and statistics for ids in chunks of 50.
// A chunk that fails is logged and contributes no entries. When every chunk
// fails the chunk errors are returned joined, so ErrQuotaExceeded stays visible.
func (c *Client) GetVideoDetails(ctx context.Context, ids []string) (map[string]VideoDetails, error) {
	if !c.Enabled() {
		return nil, ErrMissingAPIKey
	}

	chunks := chunkIDs(ids, maxIDsPerRequest)
	results := make([]map[string]VideoDetails, len(chunks))
	errs := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.detailConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			details, err := c.fetchDetailsChunk(gctx, chunk)
			if err != nil {
				slog.Warn("skipping failed video details chunk",
					"chunk", i,
					"ids", len(chunk),
					"error", err,
				)
				errs[i] = err
				return nil
			}
			results[i] = details
			return nil
		})
	}
	_ = g.Wait() // chunk goroutines never return errors

	if len(chunks) > 0 && !slices.ContainsFunc(errs, func(err error) bool { return err == nil }) {
		return nil, fmt.Errorf("all %d video details chunks failed: %w", len(chunks), errors.Join(errs...))
	}

	merged := make(map[string]VideoDetails, len(ids))
	for _, r := range results {
		for id, d := range r {
			merged[id] = d
		}
	}
	return merged, nil
}

func (c *Client) fetchDetailsChunk(ctx context.Context, ids []string) (map[string]VideoDetails, error) {
	resp, err := c.svc.Videos.List([]string{"contentDetails", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		err = classifyError("videos", err)
		recordUpstream(metrics.UpstreamYouTubeVideos, err)
		return nil, err
	}
	recordUpstream(metrics.UpstreamYouTubeVideos, nil)

	details := make(map[string]VideoDetails, len(resp.Items))
	for _, item := range resp.Items {
		var d VideoDetails
		if item.ContentDetails != nil {
			d.DurationSeconds = ParseDuration(item.ContentDetails.Duration)
		}
		if item.Statistics != nil {
			d.ViewCount = item.Statistics.ViewCount
			d.LikeCount = item.Statistics.LikeCount
		}
		details[item.Id] = d
	}
	return details, nil
}

func toVideo(id string, s *yt.SearchResultSnippet) model.Video {
	published, _ := time.Parse(time.RFC3339, s.PublishedAt)
	return model.Video{
		VideoID:      id,
		Title:        s.Title,
		Description:  s.Description,
		ThumbnailURL: thumbnailURL(s.Thumbnails),
		ChannelTitle: s.ChannelTitle,
		PublishedAt:  published,
	}
}

func thumbnailURL(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// classifyError converts googleapi errors into *APIError; transport errors are wrapped as-is.
func classifyError(endpoint string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{Endpoint: endpoint, StatusCode: gerr.Code, Message: gerr.Message}
	}
	return fmt.Errorf("youtube %s: %w", endpoint, err)
}

func recordUpstream(upstream string, err error) {
	status := metrics.UpstreamStatusSuccess
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		status = metrics.UpstreamStatusQuotaExceeded
	case err != nil:
		status = metrics.UpstreamStatusError
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(upstream, status).Inc()
}
