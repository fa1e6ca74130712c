package app

import (
	"context"
	"testing"
	"time"

	"github.com/stillpointhq/stillpoint/internal/config"
)

func TestBuildInMemory(t *testing.T) {
	cfg := config.Config{
		MetricsNamespace:         "test_app_build_" + time.Now().Format("150405") + "_" + time.Now().Format("000000000"),
		SessionInactivityTimeout: time.Minute,
		DefaultRegion:            "intl",
	}

	res, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
	}()

	if res.API == nil || res.Orchestrator == nil || res.Store == nil {
		t.Fatalf("Build() left nil components: %+v", res)
	}
	if res.StorageBackend != "in-memory" {
		t.Fatalf("StorageBackend = %q, want in-memory", res.StorageBackend)
	}
	if res.LexiconVersion != "builtin-1" {
		t.Fatalf("LexiconVersion = %q, want builtin-1", res.LexiconVersion)
	}
}

func TestBuildRejectsBadLexiconPath(t *testing.T) {
	cfg := config.Config{
		MetricsNamespace:         "test_app_lexfail_" + time.Now().Format("150405") + "_" + time.Now().Format("000000000"),
		SessionInactivityTimeout: time.Minute,
		LexiconPath:              "/nonexistent/lexicon.yaml",
	}

	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("Build() error = nil, want lexicon load failure")
	}
}
