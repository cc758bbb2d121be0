package youtube

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hszk-dev/tripreel/internal/domain/model"
)

// defaultAugmentation is appended to city queries with no known collection type.
const defaultAugmentation = "travel cinematic"

// collectionAugmentations maps a collection type to the words appended to the city query.
var collectionAugmentations = map[string]string{
	"hidden-gems":  "hidden gems secret spots local",
	"food":         "street food must try local dishes",
	"nightlife":    "nightlife bars night walk",
	"nature":       "nature hiking scenic views",
	"culture":      "culture history temples museums",
	"budget":       "budget travel cheap tips",
	"luxury":       "luxury hotels experiences",
	"walking-tour": "walking tour 4k",
	"day-trips":    "day trips from",
}

// Caption-bearing medium videos must fall in this window, in seconds.
const (
	captionedMinSeconds = 300
	captionedMaxSeconds = 1200
)

// BuildCityQuery returns "<city> <augmentation> <country>", skipping empty parts.
func BuildCityQuery(city, country, collectionType string) string {
	aug, ok := collectionAugmentations[collectionType]
	if !ok {
		aug = defaultAugmentation
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{city, aug, country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// FetchVideosForCity searches for a city collection, enriches the results with
// one batched details call, and returns them sorted by score, highest first.
func (c *Client) FetchVideosForCity(ctx context.Context, city, country, collectionType string) ([]model.EnrichedVideo, error) {
	query := BuildCityQuery(city, country, collectionType)

	videos, err := c.SearchVideos(ctx, query, SearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("search city videos: %w", err)
	}

	return c.enrich(ctx, videos)
}

// SearchMediumWithCaptions finds medium-length captioned videos and keeps
// those between 5 and 20 minutes. Duration is only known after enrichment,
// so the window is applied afterwards.
func (c *Client) SearchMediumWithCaptions(ctx context.Context, query string, maxResults int64) ([]model.EnrichedVideo, error) {
	videos, err := c.SearchVideos(ctx, query, SearchOptions{
		MaxResults: maxResults,
		Duration:   DurationMedium,
		Definition: "high",
		Caption:    "closedCaption",
	})
	if err != nil {
		return nil, fmt.Errorf("search captioned videos: %w", err)
	}

	enriched, err := c.enrich(ctx, videos)
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(enriched, func(v model.EnrichedVideo) bool {
		return v.DurationSeconds < captionedMinSeconds || v.DurationSeconds > captionedMaxSeconds
	}), nil
}

func (c *Client) enrich(ctx context.Context, videos []model.Video) ([]model.EnrichedVideo, error) {
	if len(videos) == 0 {
		return []model.EnrichedVideo{}, nil
	}

	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.VideoID
	}

	details, err := c.GetVideoDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get video details: %w", err)
	}

	return Enrich(videos, details), nil
}

// Enrich joins search results with their details, scores and classifies them,
// and sorts by score descending. Videos without details are dropped.
func Enrich(videos []model.Video, details map[string]VideoDetails) []model.EnrichedVideo {
	enriched := make([]model.EnrichedVideo, 0, len(videos))
	for _, v := range videos {
		d, ok := details[v.VideoID]
		if !ok {
			continue
		}
		enriched = append(enriched, model.EnrichedVideo{
			Video:           v,
			DurationSeconds: d.DurationSeconds,
			VideoType:       ClassifyVideo(d.DurationSeconds),
			Score:           CalculateVideoScore(d.ViewCount, d.LikeCount, d.DurationSeconds, v.Title),
			ViewCount:       d.ViewCount,
			LikeCount:       d.LikeCount,
			Source:          Source,
		})
	}

	slices.SortStableFunc(enriched, func(a, b model.EnrichedVideo) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return enriched
}
