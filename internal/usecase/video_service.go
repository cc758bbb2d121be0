package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/infrastructure/cache"
	"github.com/hszk-dev/tripreel/internal/infrastructure/llm"
	"github.com/hszk-dev/tripreel/internal/infrastructure/metrics"
	"github.com/hszk-dev/tripreel/internal/infrastructure/places"
	"github.com/hszk-dev/tripreel/internal/infrastructure/youtube"
)

// User-facing error messages carried in output Error fields.
const (
	ErrMsgQuotaExceeded = "YouTube API quota exceeded, please try again later"
	ErrMsgSearchFailed  = "failed to fetch videos"
)

// youtubeMaxResults is the search endpoint's page size limit.
const youtubeMaxResults = 50

// VideoSearcher finds videos on YouTube.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error)
	FetchVideosForCity(ctx context.Context, city, country, collectionType string) ([]model.EnrichedVideo, error)
}

// RelevanceFilter reranks and truncates candidates.
type RelevanceFilter interface {
	FilterByRelevance(ctx context.Context, candidates []model.Video, query, location string, limit int) []model.Video
}

// VideoAnalyzer summarizes a video for travellers.
type VideoAnalyzer interface {
	Analyze(ctx context.Context, in llm.AnalyzeInput) (*model.VideoAnalysis, error)
}

// PlaceFinder resolves a place name within a city.
type PlaceFinder interface {
	FindPlace(ctx context.Context, name, city string) (*model.Place, error)
}

// SearchVideosInput contains the input parameters for a video search.
type SearchVideosInput struct {
	Query   string
	City    string
	Country string
	// Type is city, place or collection and namespaces the cache key.
	Type  string
	Limit int
}

// SearchVideosOutput is the uniform search result. Error is a user-facing
// message and is empty on success.
type SearchVideosOutput struct {
	Videos []model.Video `json:"videos"`
	Cached bool          `json:"cached"`
	Error  string        `json:"error,omitempty"`
}

// AnalyzeVideoInput contains the input parameters for a video analysis.
type AnalyzeVideoInput struct {
	VideoID     string
	Title       string
	Description string
	CityName    string
}

// RelatedVideosInput contains the input parameters for related videos.
type RelatedVideosInput struct {
	VideoID    string
	VideoTitle string
	City       string
	Limit      int
}

// CollectionOutput is the result of a city collection fetch.
type CollectionOutput struct {
	Videos []model.EnrichedVideo `json:"videos"`
	Cached bool                  `json:"cached"`
	Error  string                `json:"error,omitempty"`
}

// VideoService answers video, analysis and place requests cache-first.
// Its methods never return errors: failures are logged and reported as empty
// results, nil, or an Error message.
type VideoService interface {
	// SearchVideos searches for videos about a destination.
	SearchVideos(ctx context.Context, input SearchVideosInput) *SearchVideosOutput

	// AnalyzeVideo returns a travel summary of a video, or nil on failure.
	AnalyzeVideo(ctx context.Context, input AnalyzeVideoInput) *model.VideoAnalysis

	// GetPlaceDetails resolves a place within a city, or nil on failure.
	GetPlaceDetails(ctx context.Context, placeName, cityName string) *model.Place

	// GetRelatedVideos returns videos similar to the given one, never including it.
	GetRelatedVideos(ctx context.Context, input RelatedVideosInput) []model.Video

	// FetchCityCollection returns a scored collection of videos for a city.
	FetchCityCollection(ctx context.Context, city, country, collectionType string) *CollectionOutput

	// CacheStats reports the occupancy of every in-memory cache.
	CacheStats() []cache.Stats

	// ClearCaches empties every cache, including the shared tier when configured.
	ClearCaches(ctx context.Context) error
}

// VideoServiceConfig holds configuration for VideoService.
type VideoServiceConfig struct {
	// DefaultLimit applies when a request has no positive limit.
	DefaultLimit int
	// MaxLimit caps requested limits.
	MaxLimit int
	// Overfetch multiplies the limit to size the candidate pool for reranking.
	Overfetch int
	// FetchTimeout bounds one shared upstream fetch. The fetch outlives the
	// request that started it so other waiters on the same key still get a result.
	FetchTimeout time.Duration
}

// DefaultVideoServiceConfig returns the default configuration.
func DefaultVideoServiceConfig() VideoServiceConfig {
	return VideoServiceConfig{
		DefaultLimit: 10,
		MaxLimit:     youtubeMaxResults,
		Overfetch:    3,
		FetchTimeout: 30 * time.Second,
	}
}

type videoService struct {
	caches   *cache.Registry
	youtube  VideoSearcher
	filter   RelevanceFilter
	analyzer VideoAnalyzer
	places   PlaceFinder
	sfGroup  singleflight.Group

	defaultLimit int
	maxLimit     int
	overfetch    int
	fetchTimeout time.Duration
}

// NewVideoService creates a new VideoService instance.
func NewVideoService(
	caches *cache.Registry,
	yt VideoSearcher,
	filter RelevanceFilter,
	analyzer VideoAnalyzer,
	placeFinder PlaceFinder,
	cfg VideoServiceConfig,
) VideoService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 || cfg.MaxLimit > youtubeMaxResults {
		cfg.MaxLimit = youtubeMaxResults
	}
	if cfg.Overfetch < 1 {
		cfg.Overfetch = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultVideoServiceConfig().FetchTimeout
	}
	return &videoService{
		caches:       caches,
		youtube:      yt,
		filter:       filter,
		analyzer:     analyzer,
		places:       placeFinder,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		overfetch:    cfg.Overfetch,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// SearchVideos searches YouTube for the query in the given city, keeps
// videos that mention the city, and reranks when more candidates than the
// limit remain.
func (s *videoService) SearchVideos(ctx context.Context, input SearchVideosInput) *SearchVideosOutput {
	limit := s.clampLimit(input.Limit)
	key := cache.SearchKey(cache.ParseVideoKeyKind(input.Type), input.City, input.Query, limit)

	if videos, ok := s.caches.Videos.Get(ctx, key); ok {
		return &SearchVideosOutput{Videos: slices.Clone(videos), Cached: true}
	}

	result, err := s.do(ctx, key, func(ctx context.Context) (any, error) {
		q := searchQuery(input.Query, input.City, input.Country)
		candidates, err := s.youtube.SearchVideos(ctx, q, youtube.SearchOptions{
			MaxResults: int64(min(limit*s.overfetch, youtubeMaxResults)),
		})
		if err != nil {
			return nil, err
		}

		candidates = filterByCity(candidates, input.City)
		videos := s.filter.FilterByRelevance(ctx, candidates, input.Query, location(input.City, input.Country), limit)

		s.caches.Videos.Set(ctx, key, videos)
		return videos, nil
	})
	if err != nil {
		return &SearchVideosOutput{Videos: []model.Video{}, Error: reportSearchError("search videos", key, err)}
	}

	return &SearchVideosOutput{Videos: slices.Clone(result.([]model.Video))}
}

// AnalyzeVideo returns the cached analysis or asks the model for one.
func (s *videoService) AnalyzeVideo(ctx context.Context, input AnalyzeVideoInput) *model.VideoAnalysis {
	key := cache.AnalysisKey(input.VideoID)

	if analysis, ok := s.caches.Analyses.Get(ctx, key); ok {
		return &analysis
	}

	result, err := s.do(ctx, key, func(ctx context.Context) (any, error) {
		analysis, err := s.analyzer.Analyze(ctx, llm.AnalyzeInput{
			VideoID:     input.VideoID,
			Title:       input.Title,
			Description: input.Description,
			CityName:    input.CityName,
		})
		if err != nil {
			return nil, err
		}
		s.caches.Analyses.Set(ctx, key, *analysis)
		return analysis, nil
	})
	if err != nil {
		logCollaboratorError("analyze video", key, err, llm.ErrMissingAPIKey)
		return nil
	}

	analysis := *result.(*model.VideoAnalysis)
	return &analysis
}

// GetPlaceDetails returns the cached place or looks it up.
func (s *videoService) GetPlaceDetails(ctx context.Context, placeName, cityName string) *model.Place {
	key := cache.PlaceKey(placeName, cityName)

	if place, ok := s.caches.Places.Get(ctx, key); ok {
		return &place
	}

	result, err := s.do(ctx, key, func(ctx context.Context) (any, error) {
		place, err := s.places.FindPlace(ctx, placeName, cityName)
		if err != nil {
			return nil, err
		}
		s.caches.Places.Set(ctx, key, *place)
		return place, nil
	})
	if err != nil {
		if errors.Is(err, places.ErrPlaceNotFound) {
			slog.Info("place not found", "place", placeName, "city", cityName)
			return nil
		}
		logCollaboratorError("get place details", key, err, places.ErrMissingAPIKey)
		return nil
	}

	place := *result.(*model.Place)
	return &place
}

// GetRelatedVideos searches with keywords from the video's title and the
// city, excluding the source video.
func (s *videoService) GetRelatedVideos(ctx context.Context, input RelatedVideosInput) []model.Video {
	limit := s.clampLimit(input.Limit)
	key := cache.RelatedKey(input.VideoID, input.City, limit)

	if videos, ok := s.caches.Videos.Get(ctx, key); ok {
		return slices.Clone(videos)
	}

	result, err := s.do(ctx, key, func(ctx context.Context) (any, error) {
		q := relatedQuery(input.VideoTitle, input.City)
		candidates, err := s.youtube.SearchVideos(ctx, q, youtube.SearchOptions{
			MaxResults: int64(min(limit*s.overfetch+1, youtubeMaxResults)),
		})
		if err != nil {
			return nil, err
		}

		candidates = excludeVideo(candidates, input.VideoID)
		candidates = filterByCity(candidates, input.City)
		videos := s.filter.FilterByRelevance(ctx, candidates, input.VideoTitle, input.City, limit)

		s.caches.Videos.Set(ctx, key, videos)
		return videos, nil
	})
	if err != nil {
		reportSearchError("get related videos", key, err)
		return []model.Video{}
	}

	return slices.Clone(result.([]model.Video))
}

// FetchCityCollection returns the cached collection or fetches, scores and sorts it.
func (s *videoService) FetchCityCollection(ctx context.Context, city, country, collectionType string) *CollectionOutput {
	key := cache.CollectionKey(city, country, collectionType)

	if videos, ok := s.caches.Collections.Get(ctx, key); ok {
		return &CollectionOutput{Videos: slices.Clone(videos), Cached: true}
	}

	result, err := s.do(ctx, key, func(ctx context.Context) (any, error) {
		videos, err := s.youtube.FetchVideosForCity(ctx, city, country, collectionType)
		if err != nil {
			return nil, err
		}
		s.caches.Collections.Set(ctx, key, videos)
		return videos, nil
	})
	if err != nil {
		return &CollectionOutput{Videos: []model.EnrichedVideo{}, Error: reportSearchError("fetch city collection", key, err)}
	}

	return &CollectionOutput{Videos: slices.Clone(result.([]model.EnrichedVideo))}
}

// CacheStats reports the occupancy of every in-memory cache.
func (s *videoService) CacheStats() []cache.Stats {
	return s.caches.Stats()
}

// ClearCaches empties every cache, including the shared tier when configured.
func (s *videoService) ClearCaches(ctx context.Context) error {
	if err := s.caches.Clear(ctx); err != nil {
		slog.Error("failed to clear caches", "error", err)
		return err
	}
	slog.Info("caches cleared")
	return nil
}

// do coalesces concurrent misses for the same key into one upstream call.
// fn runs on a context detached from any single caller and bounded by
// fetchTimeout; a caller whose own ctx ends stops waiting without failing
// the others.
func (s *videoService) do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := s.sfGroup.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return fn(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
		} else {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *videoService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	return min(limit, s.maxLimit)
}

// reportSearchError logs a YouTube failure and returns the message for the
// caller. A missing API key is not an error from the caller's point of view.
func reportSearchError(op, key string, err error) string {
	switch {
	case errors.Is(err, youtube.ErrMissingAPIKey):
		slog.Warn("youtube api key not configured, returning no videos", "op", op)
		return ""
	case errors.Is(err, youtube.ErrQuotaExceeded):
		slog.Error("youtube quota exceeded", "op", op, "key", key, "error", err)
		return ErrMsgQuotaExceeded
	default:
		slog.Error("video lookup failed", "op", op, "key", key, "error", err)
		return ErrMsgSearchFailed
	}
}

func logCollaboratorError(op, key string, err, missingKey error) {
	if errors.Is(err, missingKey) {
		slog.Warn("api key not configured", "op", op)
		return
	}
	slog.Error("collaborator call failed", "op", op, "key", key, "error", err)
}

// searchQuery appends the city and country to the query unless it already names them.
func searchQuery(query, city, country string) string {
	parts := []string{strings.TrimSpace(query)}
	lower := strings.ToLower(query)
	for _, p := range []string{city, country} {
		p = strings.TrimSpace(p)
		if p != "" && !strings.Contains(lower, strings.ToLower(p)) {
			parts = append(parts, p)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func location(city, country string) string {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	switch {
	case city == "":
		return country
	case country == "":
		return city
	default:
		return city + ", " + country
	}
}

// filterByCity keeps videos whose title or description mentions city,
// ignoring case. If none do, the candidates are returned unfiltered.
func filterByCity(videos []model.Video, city string) []model.Video {
	needle := strings.ToLower(strings.TrimSpace(city))
	if needle == "" {
		return videos
	}

	kept := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		if strings.Contains(strings.ToLower(v.Title+" "+v.Description), needle) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return videos
	}
	return kept
}

func excludeVideo(videos []model.Video, videoID string) []model.Video {
	kept := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		if v.VideoID != videoID {
			kept = append(kept, v)
		}
	}
	return kept
}
