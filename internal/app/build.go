// Package app builds the service object graph from configuration.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/stillpointhq/stillpoint/internal/config"
	"github.com/stillpointhq/stillpoint/internal/httpapi"
	"github.com/stillpointhq/stillpoint/internal/lexicon"
	"github.com/stillpointhq/stillpoint/internal/observability"
	"github.com/stillpointhq/stillpoint/internal/orchestrator"
	"github.com/stillpointhq/stillpoint/internal/risk"
	"github.com/stillpointhq/stillpoint/internal/store"
)

type BuildResult struct {
	Config         config.Config
	API            *httpapi.Server
	Orchestrator   *orchestrator.Orchestrator
	Metrics        *observability.Metrics
	Store          store.Store
	LexiconVersion string
	StorageBackend string

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	st, err := store.NewStore(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}

	lex := lexicon.Builtin()
	if strings.TrimSpace(cfg.LexiconPath) != "" {
		lex, err = lexicon.FromFile(cfg.LexiconPath)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("lexicon load failed: %w", err)
		}
	}

	scorer := risk.NewScorer(lex)
	orch := orchestrator.New(st, scorer, metrics, cfg.DefaultRegion, cfg.SessionInactivityTimeout)
	api := httpapi.New(cfg, orch, metrics)

	return &BuildResult{
		Config:         cfg,
		API:            api,
		Orchestrator:   orch,
		Metrics:        metrics,
		Store:          st,
		LexiconVersion: lex.Version,
		StorageBackend: storageBackend(cfg),
		Cleanup:        st.Close,
	}, nil
}

func storageBackend(cfg config.Config) string {
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		return "postgres"
	case strings.TrimSpace(cfg.SQLitePath) != "":
		return "sqlite"
	default:
		return "in-memory"
	}
}
