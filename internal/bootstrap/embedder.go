// Package bootstrap assembles provider chains shared by the server and the indexing tool.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/config"
	"github.com/kailas-cloud/normrag/internal/db"
	dbRedis "github.com/kailas-cloud/normrag/internal/db/redis"
	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/metrics"
	"github.com/kailas-cloud/normrag/internal/repository/embcache"
	openaiTransport "github.com/kailas-cloud/normrag/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/normrag/internal/usecase/embedding"
)

// OpenCache connects to the embedding cache. Returns a nil store when no addrs are configured.
func OpenCache(ctx context.Context, c config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	if len(c.Addrs) == 0 {
		return nil, nil
	}

	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    c.Addrs,
		Password: c.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache store: %w", err)
	}
	if err := s.WaitForReady(ctx, time.Duration(c.ReadinessTimeout)*time.Second); err != nil {
		s.Close()
		return nil, fmt.Errorf("cache database not ready: %w", err)
	}

	logger.Info("Connected to cache database",
		zap.String("driver", c.Driver),
		zap.Strings("addrs", c.Addrs),
	)
	return s, nil
}

// BuildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// purpose is metrics.EmbedPurposeQuery or metrics.EmbedPurposeDocument; it selects the
// instruction prefix and labels the metrics. store may be nil.
func BuildEmbedder(
	embCfg config.EmbeddingConfig,
	purpose string,
	cacheTTL time.Duration,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Purpose:    purpose,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.CacheCounter(purpose), logger,
			embcache.WithModel(embCfg.Model),
			embcache.WithTTL(cacheTTL),
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, embCfg.Provider, embCfg.Model, embCfg.MaxBatchSize, logger,
	)

	instruction := embCfg.QueryInstruction
	if purpose == metrics.EmbedPurposeDocument {
		instruction = embCfg.DocumentInstruction
	}
	// Instruction prefix is outermost so the cache key includes it
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
