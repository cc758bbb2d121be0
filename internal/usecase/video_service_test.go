package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/infrastructure/cache"
	"github.com/hszk-dev/tripreel/internal/infrastructure/llm"
	"github.com/hszk-dev/tripreel/internal/infrastructure/places"
	"github.com/hszk-dev/tripreel/internal/infrastructure/youtube"
)

type testDeps struct {
	caches   *cache.Registry
	youtube  *mockVideoSearcher
	filter   *mockRelevanceFilter
	analyzer *mockVideoAnalyzer
	places   *mockPlaceFinder
}

func newTestVideoService(t *testing.T) (VideoService, *testDeps) {
	t.Helper()
	deps := &testDeps{
		caches:   cache.NewRegistry(cache.DefaultRegistryConfig(), nil),
		youtube:  &mockVideoSearcher{},
		filter:   &mockRelevanceFilter{},
		analyzer: &mockVideoAnalyzer{},
		places:   &mockPlaceFinder{},
	}
	svc := NewVideoService(deps.caches, deps.youtube, deps.filter, deps.analyzer, deps.places, DefaultVideoServiceConfig())
	return svc, deps
}

func videosAbout(city string, n int) []model.Video {
	out := make([]model.Video, n)
	for i := range out {
		out[i] = model.Video{
			VideoID: fmt.Sprintf("%s-%d", strings.ToLower(city), i),
			Title:   fmt.Sprintf("%s day %d", city, i),
		}
	}
	return out
}

func TestVideoService_SearchVideos_CacheAside(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		return videosAbout("Tokyo", 3), nil
	}

	input := SearchVideosInput{Query: "ramen", City: "Tokyo", Limit: 5}

	first := svc.SearchVideos(context.Background(), input)
	if first.Cached {
		t.Error("first call should not be cached")
	}
	if first.Error != "" {
		t.Errorf("unexpected error message: %q", first.Error)
	}
	if len(first.Videos) != 3 {
		t.Fatalf("len(Videos) = %d, want 3", len(first.Videos))
	}

	second := svc.SearchVideos(context.Background(), SearchVideosInput{Query: "RAMEN", City: "tokyo", Limit: 5})
	if !second.Cached {
		t.Error("second call should be served from cache")
	}
	if len(second.Videos) != 3 {
		t.Errorf("len(Videos) = %d, want 3", len(second.Videos))
	}

	if got := deps.youtube.searchCount.Load(); got != 1 {
		t.Errorf("SearchVideos called %d times, want 1", got)
	}
}

func TestVideoService_SearchVideos_QueryAndOptions(t *testing.T) {
	tests := []struct {
		name      string
		input     SearchVideosInput
		wantQuery string
		wantMax   int64
	}{
		{
			name:      "appends city and country",
			input:     SearchVideosInput{Query: "street food", City: "Bangkok", Country: "Thailand", Limit: 4},
			wantQuery: "street food Bangkok Thailand",
			wantMax:   12,
		},
		{
			name:      "does not repeat city already in query",
			input:     SearchVideosInput{Query: "bangkok night markets", City: "Bangkok"},
			wantQuery: "bangkok night markets",
			wantMax:   30,
		},
		{
			name:      "caps candidate pool",
			input:     SearchVideosInput{Query: "temples", City: "Kyoto", Limit: 40},
			wantQuery: "temples Kyoto",
			wantMax:   50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestVideoService(t)
			deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
				if query != tt.wantQuery {
					t.Errorf("query = %q, want %q", query, tt.wantQuery)
				}
				if opts.MaxResults != tt.wantMax {
					t.Errorf("MaxResults = %d, want %d", opts.MaxResults, tt.wantMax)
				}
				return nil, nil
			}

			svc.SearchVideos(context.Background(), tt.input)
		})
	}
}

func TestVideoService_SearchVideos_CityFilter(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		return []model.Video{
			{VideoID: "a", Title: "Best of PORTO"},
			{VideoID: "b", Title: "Lisbon trams"},
			{VideoID: "c", Title: "Food tour", Description: "We ate our way through porto"},
		}, nil
	}

	out := svc.SearchVideos(context.Background(), SearchVideosInput{Query: "food", City: "Porto"})

	if len(out.Videos) != 2 {
		t.Fatalf("len(Videos) = %d, want 2", len(out.Videos))
	}
	if out.Videos[0].VideoID != "a" || out.Videos[1].VideoID != "c" {
		t.Errorf("Videos = %v, want [a c]", []string{out.Videos[0].VideoID, out.Videos[1].VideoID})
	}
}

func TestVideoService_SearchVideos_CityFilterKeepsAllWhenNoneMatch(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		return videosAbout("Elsewhere", 2), nil
	}

	out := svc.SearchVideos(context.Background(), SearchVideosInput{Query: "beaches", City: "Nice"})

	if len(out.Videos) != 2 {
		t.Errorf("len(Videos) = %d, want 2", len(out.Videos))
	}
}

func TestVideoService_SearchVideos_Rerank(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		return videosAbout("Seoul", 9), nil
	}
	deps.filter.filterFn = func(ctx context.Context, candidates []model.Video, query, location string, limit int) []model.Video {
		if query != "where to stay" {
			t.Errorf("query = %q", query)
		}
		if location != "Seoul, South Korea" {
			t.Errorf("location = %q", location)
		}
		if limit != 3 {
			t.Errorf("limit = %d, want 3", limit)
		}
		return []model.Video{candidates[8], candidates[4], candidates[0]}
	}

	out := svc.SearchVideos(context.Background(), SearchVideosInput{
		Query: "where to stay", City: "Seoul", Country: "South Korea", Limit: 3,
	})

	want := []string{"seoul-8", "seoul-4", "seoul-0"}
	for i, v := range out.Videos {
		if v.VideoID != want[i] {
			t.Errorf("Videos[%d] = %s, want %s", i, v.VideoID, want[i])
		}
	}
}

func TestVideoService_SearchVideos_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"quota exceeded", &youtube.APIError{Endpoint: "search", StatusCode: 403, Message: "quotaExceeded"}, ErrMsgQuotaExceeded},
		{"transient failure", errors.New("connection reset"), ErrMsgSearchFailed},
		{"missing api key", youtube.ErrMissingAPIKey, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestVideoService(t)
			deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
				return nil, tt.err
			}

			out := svc.SearchVideos(context.Background(), SearchVideosInput{Query: "q", City: "Oslo"})

			if out.Error != tt.wantMsg {
				t.Errorf("Error = %q, want %q", out.Error, tt.wantMsg)
			}
			if out.Videos == nil || len(out.Videos) != 0 {
				t.Errorf("Videos = %v, want empty non-nil slice", out.Videos)
			}
			if out.Cached {
				t.Error("failed search must not be reported as cached")
			}

			svc.SearchVideos(context.Background(), SearchVideosInput{Query: "q", City: "Oslo"})
			if got := deps.youtube.searchCount.Load(); got != 2 {
				t.Errorf("failures must not be cached: SearchVideos called %d times, want 2", got)
			}
		})
	}
}

func TestVideoService_SearchVideos_Singleflight(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		time.Sleep(50 * time.Millisecond)
		return videosAbout("Hanoi", 2), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := svc.SearchVideos(context.Background(), SearchVideosInput{Query: "pho", City: "Hanoi"})
			if len(out.Videos) != 2 {
				t.Errorf("len(Videos) = %d, want 2", len(out.Videos))
			}
		}()
	}
	wg.Wait()

	if got := deps.youtube.searchCount.Load(); got != 1 {
		t.Errorf("SearchVideos called %d times, want 1 (singleflight should coalesce)", got)
	}
}

func TestVideoService_SearchVideos_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	svc, deps := newTestVideoService(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return videosAbout("Lisbon", 2), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	input := SearchVideosInput{Query: "trams", City: "Lisbon"}
	firstCtx, cancelFirst := context.WithCancel(context.Background())

	firstDone := make(chan *SearchVideosOutput)
	go func() { firstDone <- svc.SearchVideos(firstCtx, input) }()
	<-started

	waiterDone := make(chan *SearchVideosOutput)
	go func() { waiterDone <- svc.SearchVideos(context.Background(), input) }()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if first := <-firstDone; first.Error != ErrMsgSearchFailed {
		t.Errorf("cancelled caller Error = %q, want %q", first.Error, ErrMsgSearchFailed)
	}

	close(release)
	waiter := <-waiterDone
	if waiter.Error != "" || len(waiter.Videos) != 2 {
		t.Fatalf("waiter got videos=%d error=%q, want 2 videos and no error", len(waiter.Videos), waiter.Error)
	}

	if got := deps.youtube.searchCount.Load(); got != 1 {
		t.Errorf("SearchVideos called %d times, want 1", got)
	}
	if again := svc.SearchVideos(context.Background(), input); !again.Cached {
		t.Error("result of the shared fetch should be cached")
	}
}

func TestVideoService_SearchVideos_FetchTimeout(t *testing.T) {
	deps := &testDeps{
		caches:  cache.NewRegistry(cache.DefaultRegistryConfig(), nil),
		youtube: &mockVideoSearcher{},
		filter:  &mockRelevanceFilter{},
	}
	cfg := DefaultVideoServiceConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	svc := NewVideoService(deps.caches, deps.youtube, deps.filter, &mockVideoAnalyzer{}, &mockPlaceFinder{}, cfg)

	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	out := svc.SearchVideos(context.Background(), SearchVideosInput{Query: "fado", City: "Lisbon"})
	if out.Error != ErrMsgSearchFailed {
		t.Errorf("Error = %q, want %q", out.Error, ErrMsgSearchFailed)
	}
}

func TestVideoService_SearchVideos_ResultIsACopy(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		return videosAbout("Oslo", 2), nil
	}
	input := SearchVideosInput{Query: "fjords", City: "Oslo"}

	first := svc.SearchVideos(context.Background(), input)
	first.Videos[0].Title = "mutated"

	second := svc.SearchVideos(context.Background(), input)
	second.Videos[1].Title = "mutated too"

	third := svc.SearchVideos(context.Background(), input)
	if !third.Cached {
		t.Fatal("expected cache hit")
	}
	if third.Videos[0].Title != "Oslo day 0" || third.Videos[1].Title != "Oslo day 1" {
		t.Errorf("cached videos were mutated through a returned slice: %+v", third.Videos)
	}
}

func TestVideoService_AnalyzeVideo(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.analyzer.analyzeFn = func(ctx context.Context, in llm.AnalyzeInput) (*model.VideoAnalysis, error) {
		if in.VideoID != "dQw4w9WgXcQ" || in.CityName != "Tokyo" || in.Title != "Shibuya at night" {
			t.Errorf("unexpected input: %+v", in)
		}
		return &model.VideoAnalysis{VideoID: in.VideoID, CityName: in.CityName, Summary: "Neon."}, nil
	}

	input := AnalyzeVideoInput{VideoID: "dQw4w9WgXcQ", Title: "Shibuya at night", CityName: "Tokyo"}

	got := svc.AnalyzeVideo(context.Background(), input)
	if got == nil || got.Summary != "Neon." {
		t.Fatalf("AnalyzeVideo() = %+v, want summary Neon.", got)
	}

	got.Summary = "mutated"
	again := svc.AnalyzeVideo(context.Background(), input)
	if again == nil || again.Summary != "Neon." {
		t.Errorf("cached analysis was mutated through a returned pointer: %+v", again)
	}

	if n := deps.analyzer.count.Load(); n != 1 {
		t.Errorf("Analyze called %d times, want 1", n)
	}
}

func TestVideoService_AnalyzeVideo_FailureReturnsNil(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing api key", llm.ErrMissingAPIKey},
		{"malformed response", errors.New("failed to decode analysis")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestVideoService(t)
			deps.analyzer.analyzeFn = func(ctx context.Context, in llm.AnalyzeInput) (*model.VideoAnalysis, error) {
				return nil, tt.err
			}

			if got := svc.AnalyzeVideo(context.Background(), AnalyzeVideoInput{VideoID: "x"}); got != nil {
				t.Errorf("AnalyzeVideo() = %+v, want nil", got)
			}
			if n := len(deps.caches.Analyses.Local().Keys()); n != 0 {
				t.Errorf("failed analysis cached: %d entries", n)
			}
		})
	}
}

func TestVideoService_GetPlaceDetails(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.places.findPlaceFn = func(ctx context.Context, name, city string) (*model.Place, error) {
		return &model.Place{PlaceID: "p1", Name: "Eiffel Tower", Category: model.PlaceCategoryAttraction}, nil
	}

	got := svc.GetPlaceDetails(context.Background(), "Eiffel Tower", "Paris")
	if got == nil || got.PlaceID != "p1" {
		t.Fatalf("GetPlaceDetails() = %+v", got)
	}

	again := svc.GetPlaceDetails(context.Background(), "eiffel tower", "PARIS")
	if again == nil || again.PlaceID != "p1" {
		t.Fatalf("GetPlaceDetails() second call = %+v", again)
	}

	if n := deps.places.count.Load(); n != 1 {
		t.Errorf("FindPlace called %d times, want 1 (case-insensitive cache key)", n)
	}
}

func TestVideoService_GetPlaceDetails_FailureReturnsNil(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", places.ErrPlaceNotFound},
		{"missing api key", places.ErrMissingAPIKey},
		{"upstream error", errors.New("maps: REQUEST_DENIED")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestVideoService(t)
			deps.places.findPlaceFn = func(ctx context.Context, name, city string) (*model.Place, error) {
				return nil, tt.err
			}

			if got := svc.GetPlaceDetails(context.Background(), "Louvre", "Paris"); got != nil {
				t.Errorf("GetPlaceDetails() = %+v, want nil", got)
			}
		})
	}
}

func TestVideoService_GetRelatedVideos(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		if query != "hidden temples kyoto's backstreets Kyoto" {
			t.Errorf("query = %q", query)
		}
		return []model.Video{
			{VideoID: "src", Title: "Kyoto hidden temples"},
			{VideoID: "r1", Title: "Kyoto gardens"},
			{VideoID: "r2", Title: "Kyoto tea"},
		}, nil
	}

	got := svc.GetRelatedVideos(context.Background(), RelatedVideosInput{
		VideoID:    "src",
		VideoTitle: "The 10 Hidden Temples of Kyoto's Backstreets",
		City:       "Kyoto",
		Limit:      5,
	})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, v := range got {
		if v.VideoID == "src" {
			t.Error("related videos must not include the source video")
		}
	}

	svc.GetRelatedVideos(context.Background(), RelatedVideosInput{VideoID: "src", VideoTitle: "ignored", City: "kyoto", Limit: 5})
	if n := deps.youtube.searchCount.Load(); n != 1 {
		t.Errorf("SearchVideos called %d times, want 1", n)
	}
}

func TestVideoService_GetRelatedVideos_FailureReturnsEmpty(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		return nil, youtube.ErrQuotaExceeded
	}

	got := svc.GetRelatedVideos(context.Background(), RelatedVideosInput{VideoID: "v", VideoTitle: "t"})
	if got == nil || len(got) != 0 {
		t.Errorf("GetRelatedVideos() = %v, want empty non-nil slice", got)
	}
}

func TestVideoService_FetchCityCollection(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.fetchVideosForCityFn = func(ctx context.Context, city, country, collectionType string) ([]model.EnrichedVideo, error) {
		if city != "Tokyo" || country != "Japan" || collectionType != "hidden-gems" {
			t.Errorf("unexpected args %q %q %q", city, country, collectionType)
		}
		return []model.EnrichedVideo{{Video: model.Video{VideoID: "a"}, Score: 0.9}}, nil
	}

	first := svc.FetchCityCollection(context.Background(), "Tokyo", "Japan", "hidden-gems")
	if first.Cached || len(first.Videos) != 1 {
		t.Fatalf("first = %+v", first)
	}

	second := svc.FetchCityCollection(context.Background(), "tokyo", "japan", "hidden-gems")
	if !second.Cached {
		t.Error("second call should be cached")
	}
	if n := deps.youtube.cityCount.Load(); n != 1 {
		t.Errorf("FetchVideosForCity called %d times, want 1", n)
	}
}

func TestVideoService_FetchCityCollection_Quota(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.fetchVideosForCityFn = func(ctx context.Context, city, country, collectionType string) ([]model.EnrichedVideo, error) {
		return nil, fmt.Errorf("search city videos: %w", &youtube.APIError{StatusCode: 403})
	}

	out := svc.FetchCityCollection(context.Background(), "Tokyo", "", "")
	if out.Error != ErrMsgQuotaExceeded {
		t.Errorf("Error = %q, want %q", out.Error, ErrMsgQuotaExceeded)
	}
}

func TestVideoService_CacheStatsAndClear(t *testing.T) {
	svc, deps := newTestVideoService(t)
	deps.youtube.searchVideosFn = func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
		return videosAbout("Rome", 1), nil
	}

	svc.SearchVideos(context.Background(), SearchVideosInput{Query: "pasta", City: "Rome"})

	stats := svc.CacheStats()
	if len(stats) != 4 {
		t.Fatalf("len(stats) = %d, want 4", len(stats))
	}
	if stats[0].Name != cache.NameVideos || stats[0].Size != 1 {
		t.Errorf("videos stats = %+v", stats[0])
	}

	if err := svc.ClearCaches(context.Background()); err != nil {
		t.Fatalf("ClearCaches() error = %v", err)
	}

	if got := svc.CacheStats()[0].Size; got != 0 {
		t.Errorf("size after clear = %d, want 0", got)
	}
}

func TestRelatedQuery(t *testing.T) {
	tests := []struct {
		title string
		city  string
		want  string
	}{
		{"The 10 Hidden Temples of Kyoto's Backstreets", "Kyoto", "hidden temples kyoto's backstreets Kyoto"},
		{"Paris vlog: Montmartre, Le Marais & more!", "Paris", "montmartre marais more Paris"},
		{"one two three four five six seven", "", "one two three four five"},
		{"", "Lima", "Lima"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := relatedQuery(tt.title, tt.city); got != tt.want {
				t.Errorf("relatedQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
