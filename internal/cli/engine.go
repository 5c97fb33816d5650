package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/carepath/carepath/internal/assist"
	"github.com/carepath/carepath/internal/cache"
	"github.com/carepath/carepath/internal/dataset"
	"github.com/carepath/carepath/internal/model"
	"github.com/carepath/carepath/internal/pipeline"
	"github.com/carepath/carepath/internal/places"
)

// buildEngine wires the cache, the live place channels, the curated
// baseline dataset, and the assistant composer into a turn pipeline.
func buildEngine(cfg *model.Config) (*pipeline.Pipeline, *places.Client, error) {
	var store cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			if home, err := os.UserHomeDir(); err == nil {
				dir = filepath.Join(home, ".carepath", "cache")
			}
		}
		if dir != "" {
			store = cache.NewLayeredCache(cfg.Places.CacheTTL, dir, cfg.Cache.TTL)
		} else {
			store = cache.NewMemoryCache(cfg.Places.CacheTTL)
		}
	}

	placesClient := places.NewClient(cfg, store)

	var baseline *dataset.Store
	if cfg.Dataset.Path != "" {
		ds, err := dataset.Load(cfg.Dataset.Path)
		if err != nil {
			// The engine still answers from live channels and fallbacks
			fmt.Fprintf(os.Stderr, "Warning: baseline dataset unavailable: %v\n", err)
		} else {
			baseline = ds
			if cfg.Output.Verbose {
				fmt.Fprintf(os.Stderr, "Loaded %d baseline places (%d rows skipped)\n", ds.Len(), ds.Skipped())
			}
		}
	}

	provider, err := assist.NewProvider(cfg.Assist)
	if err != nil {
		return nil, nil, fmt.Errorf("configure assist provider: %w", err)
	}

	p := pipeline.NewPipeline(cfg, placesClient, baseline, assist.NewComposer(provider))
	return p, placesClient, nil
}
