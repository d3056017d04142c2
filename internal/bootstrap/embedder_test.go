package bootstrap

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/config"
	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/metrics"
	embeddinguc "github.com/kailas-cloud/normrag/internal/usecase/embedding"
)

func TestBuildEmbedder_InstructionByPurpose(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Provider: "openai", Model: "m", Dimensions: 3,
		QueryInstruction: "query: ", DocumentInstruction: "passage: ",
	}

	for _, purpose := range []string{metrics.EmbedPurposeQuery, metrics.EmbedPurposeDocument} {
		e := BuildEmbedder(cfg, purpose, 0, nil, zap.NewNop())
		if _, ok := e.(*domain.InstructionEmbedder); !ok {
			t.Errorf("%s: expected instruction embedder, got %T", purpose, e)
		}
	}
}

func TestBuildEmbedder_NoInstruction(t *testing.T) {
	cfg := config.EmbeddingConfig{Provider: "openai", Model: "m", Dimensions: 3, QueryInstruction: "query: "}

	e := BuildEmbedder(cfg, metrics.EmbedPurposeDocument, 0, nil, zap.NewNop())
	if _, ok := e.(*embeddinguc.InstrumentedEmbedder); !ok {
		t.Fatalf("expected instrumented embedder, got %T", e)
	}
}

func TestOpenCache_Disabled(t *testing.T) {
	s, err := OpenCache(context.Background(), config.DatabaseConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil store, got %T", s)
	}
}
