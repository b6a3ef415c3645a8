package cmd

import (
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/codegraph/retrieval/internal/chunk"
	"github.com/codegraph/retrieval/internal/config"
	"github.com/codegraph/retrieval/internal/coordinator"
	"github.com/codegraph/retrieval/internal/searchdb"
)

// buildCoordinator loads project config from root and assembles a
// Coordinator wired with the cached default annotator.
func buildCoordinator(root string) (*coordinator.Coordinator, *config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}

	annotator := searchdb.NewCachedAnnotator(searchdb.NewDefaultAnnotator(), searchdb.DefaultAnnotationCacheSize)
	db := searchdb.New(annotator)

	walkOpts := chunk.WalkOptions{Languages: cfg.Languages}
	if len(cfg.ExcludePaths) > 0 {
		patterns := cfg.ExcludePaths
		walkOpts.ShouldIncludePath = func(_, relPath string) bool {
			rel := filepath.ToSlash(relPath)
			include := true
			for _, p := range patterns {
				if strings.HasPrefix(p, "!") {
					if ok, _ := path.Match(p[1:], rel); ok {
						include = true
					}
				} else if ok, _ := path.Match(p, rel); ok {
					include = false
				}
			}
			return include
		}
	}

	c := coordinator.New(root, db,
		coordinator.WithChunkOptions(chunk.Options{WalkOptions: walkOpts}),
		coordinator.WithLogger(slog.Default()),
	)
	return c, cfg, nil
}
