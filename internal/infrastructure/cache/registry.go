package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hszk-dev/tripreel/internal/domain/model"
)

// Cache names used in stats, metrics and logs.
const (
	NameVideos      = "videos"
	NameCollections = "collections"
	NameAnalyses    = "analyses"
	NamePlaces      = "places"
)

// RegistryConfig sizes each cache in the registry.
type RegistryConfig struct {
	Videos      Config
	Collections Config
	Analyses    Config
	Places      Config
}

// DefaultRegistryConfig returns the production cache sizes.
func DefaultRegistryConfig() RegistryConfig {
	const day = 24 * time.Hour
	return RegistryConfig{
		Videos:      Config{Name: NameVideos, MaxEntries: 1000, TTL: 7 * day},
		Collections: Config{Name: NameCollections, MaxEntries: 500, TTL: 7 * day},
		Analyses:    Config{Name: NameAnalyses, MaxEntries: 500, TTL: 30 * day},
		Places:      Config{Name: NamePlaces, MaxEntries: 1000, TTL: 30 * day},
	}
}

// Registry owns every cache the services share. Build one at startup and
// pass it to the services that need it.
type Registry struct {
	Videos      *Tiered[[]model.Video]
	Collections *Tiered[[]model.EnrichedVideo]
	Analyses    *Tiered[model.VideoAnalysis]
	Places      *Tiered[model.Place]
}

// NewRegistry creates the caches. remote may be nil to keep everything in process.
func NewRegistry(cfg RegistryConfig, remote Store, opts ...Option) *Registry {
	return &Registry{
		Videos:      NewTiered(NewGenericCache[[]model.Video](named(cfg.Videos, NameVideos), opts...), remote),
		Collections: NewTiered(NewGenericCache[[]model.EnrichedVideo](named(cfg.Collections, NameCollections), opts...), remote),
		Analyses:    NewTiered(NewGenericCache[model.VideoAnalysis](named(cfg.Analyses, NameAnalyses), opts...), remote),
		Places:      NewTiered(NewGenericCache[model.Place](named(cfg.Places, NamePlaces), opts...), remote),
	}
}

// Stats returns the occupancy of every in-memory cache.
func (r *Registry) Stats() []Stats {
	return []Stats{
		r.Videos.Local().Stats(),
		r.Collections.Local().Stats(),
		r.Analyses.Local().Stats(),
		r.Places.Local().Stats(),
	}
}

// Clear empties every cache in both tiers. Every cache is attempted even
// when an earlier one fails.
func (r *Registry) Clear(ctx context.Context) error {
	return errors.Join(
		r.Videos.Clear(ctx),
		r.Collections.Clear(ctx),
		r.Analyses.Clear(ctx),
		r.Places.Clear(ctx),
	)
}

func named(cfg Config, name string) Config {
	if cfg.Name == "" {
		cfg.Name = name
	}
	return cfg
}
