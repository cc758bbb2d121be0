package usecase

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/domain/repository"
	"github.com/hszk-dev/tripreel/internal/infrastructure/llm"
	"github.com/hszk-dev/tripreel/internal/infrastructure/youtube"
)

// mockExportRepository provides a configurable mock for ExportRepository.
type mockExportRepository struct {
	createFn       func(ctx context.Context, job *model.ExportJob) error
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*model.ExportJob, error)
	updateFn       func(ctx context.Context, job *model.ExportJob) error
	updateStatusFn func(ctx context.Context, id uuid.UUID, status model.Status) error
}

func (m *mockExportRepository) Create(ctx context.Context, job *model.ExportJob) error {
	if m.createFn != nil {
		return m.createFn(ctx, job)
	}
	return nil
}

func (m *mockExportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExportJob, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrExportNotFound
}

func (m *mockExportRepository) Update(ctx context.Context, job *model.ExportJob) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, job)
	}
	return nil
}

func (m *mockExportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	generatePresignedDownloadURLFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
	uploadFn                       func(ctx context.Context, key string, reader io.Reader, contentType string) error
	downloadFn                     func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteFn                       func(ctx context.Context, key string) error
	existsFn                       func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjectStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.generatePresignedDownloadURLFn != nil {
		return m.generatePresignedDownloadURLFn(ctx, key, expiry)
	}
	return "http://example.com/download", nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, contentType)
	}
	return nil
}

func (m *mockObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	return nil, nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishExportTaskFn  func(ctx context.Context, task repository.ExportTask) error
	consumeExportTasksFn func(ctx context.Context, handler func(task repository.ExportTask) error) error
}

func (m *mockMessageQueue) PublishExportTask(ctx context.Context, task repository.ExportTask) error {
	if m.publishExportTaskFn != nil {
		return m.publishExportTaskFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeExportTasks(ctx context.Context, handler func(task repository.ExportTask) error) error {
	if m.consumeExportTasksFn != nil {
		return m.consumeExportTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockVideoSearcher provides a configurable mock for VideoSearcher.
type mockVideoSearcher struct {
	searchVideosFn       func(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error)
	fetchVideosForCityFn func(ctx context.Context, city, country, collectionType string) ([]model.EnrichedVideo, error)
	searchCount          atomic.Int32
	cityCount            atomic.Int32
}

func (m *mockVideoSearcher) SearchVideos(ctx context.Context, query string, opts youtube.SearchOptions) ([]model.Video, error) {
	m.searchCount.Add(1)
	if m.searchVideosFn != nil {
		return m.searchVideosFn(ctx, query, opts)
	}
	return nil, nil
}

func (m *mockVideoSearcher) FetchVideosForCity(ctx context.Context, city, country, collectionType string) ([]model.EnrichedVideo, error) {
	m.cityCount.Add(1)
	if m.fetchVideosForCityFn != nil {
		return m.fetchVideosForCityFn(ctx, city, country, collectionType)
	}
	return nil, nil
}

// mockRelevanceFilter provides a configurable mock for RelevanceFilter.
// Without filterFn it truncates to limit.
type mockRelevanceFilter struct {
	filterFn func(ctx context.Context, candidates []model.Video, query, location string, limit int) []model.Video
	count    atomic.Int32
}

func (m *mockRelevanceFilter) FilterByRelevance(ctx context.Context, candidates []model.Video, query, location string, limit int) []model.Video {
	m.count.Add(1)
	if m.filterFn != nil {
		return m.filterFn(ctx, candidates, query, location, limit)
	}
	if len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

// mockVideoAnalyzer provides a configurable mock for VideoAnalyzer.
type mockVideoAnalyzer struct {
	analyzeFn func(ctx context.Context, in llm.AnalyzeInput) (*model.VideoAnalysis, error)
	count     atomic.Int32
}

func (m *mockVideoAnalyzer) Analyze(ctx context.Context, in llm.AnalyzeInput) (*model.VideoAnalysis, error) {
	m.count.Add(1)
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, in)
	}
	return nil, llm.ErrMissingAPIKey
}

// mockPlaceFinder provides a configurable mock for PlaceFinder.
type mockPlaceFinder struct {
	findPlaceFn func(ctx context.Context, name, city string) (*model.Place, error)
	count       atomic.Int32
}

func (m *mockPlaceFinder) FindPlace(ctx context.Context, name, city string) (*model.Place, error) {
	m.count.Add(1)
	if m.findPlaceFn != nil {
		return m.findPlaceFn(ctx, name, city)
	}
	return nil, nil
}

// mockDetailsFetcher provides a configurable mock for DetailsFetcher.
type mockDetailsFetcher struct {
	getVideoDetailsFn func(ctx context.Context, ids []string) (map[string]youtube.VideoDetails, error)
}

func (m *mockDetailsFetcher) GetVideoDetails(ctx context.Context, ids []string) (map[string]youtube.VideoDetails, error) {
	if m.getVideoDetailsFn != nil {
		return m.getVideoDetailsFn(ctx, ids)
	}
	return map[string]youtube.VideoDetails{}, nil
}
