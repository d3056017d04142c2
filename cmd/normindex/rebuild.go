package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/bootstrap"
	"github.com/kailas-cloud/normrag/internal/config"
	"github.com/kailas-cloud/normrag/internal/metrics"
	"github.com/kailas-cloud/normrag/internal/repository/normstore"
	"github.com/kailas-cloud/normrag/internal/usecase/ingest"
	"github.com/kailas-cloud/normrag/internal/vectorindex"
)

type rebuildArgs struct {
	kind  string
	norms string
	index string
	lock  string
}

func runRebuild(ctx context.Context, args []string, stderr io.Writer, logger *zap.Logger) error {
	var a rebuildArgs
	fs := flag.NewFlagSet("rebuild", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&a.kind, "kind", kindText, "collection kind: text or table")
	fs.StringVar(&a.norms, "norms", "", "collection file (default: from config)")
	fs.StringVar(&a.index, "index", "", "index file to write (default: from config)")
	fs.StringVar(&a.lock, "lock", "", "lock file (default: store.lock_file from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validKind(a.kind); err != nil {
		return err
	}

	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.applyConfig(cfg.Store)
	if a.norms == "" || a.index == "" {
		return fmt.Errorf("%w: no %s collection configured, pass -norms and -index", errUsage, a.kind)
	}

	release, err := ingest.Lock(a.lock)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("Failed to release lock", zap.String("lock", a.lock), zap.Error(err))
		}
	}()

	texts, err := loadEmbeddingTexts(a.kind, a.norms)
	if err != nil {
		return err
	}

	store, err := bootstrap.OpenCache(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	embedder := bootstrap.BuildEmbedder(
		cfg.Embedding, metrics.EmbedPurposeDocument,
		time.Duration(cfg.Database.CacheTTLHours)*time.Hour, store, logger,
	)

	start := time.Now()
	logger.Info("Rebuilding index",
		zap.String("kind", a.kind),
		zap.String("norms", a.norms),
		zap.Int("records", len(texts)),
		zap.String("model", cfg.Embedding.Model),
	)

	rb := ingest.NewRebuilder(embedder, cfg.Embedding.Dimensions, cfg.Store.RebuildSize, logger)
	idx, err := rb.Rebuild(ctx, texts)
	if err != nil {
		return fmt.Errorf("rebuild %s index: %w", a.kind, err)
	}
	if err := vectorindex.WriteFile(a.index, idx); err != nil {
		return fmt.Errorf("write %s: %w", a.index, err)
	}

	logger.Info("Index written",
		zap.String("index", a.index),
		zap.Int("rows", idx.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (a *rebuildArgs) applyConfig(s config.StoreConfig) {
	if a.kind == kindText {
		a.norms = orDefault(a.norms, s.TextNorms)
		a.index = orDefault(a.index, s.TextIndex)
	} else {
		a.norms = orDefault(a.norms, s.TableNorms)
		a.index = orDefault(a.index, s.TableIndex)
	}
	a.lock = orDefault(a.lock, s.LockFile)
	if a.lock == "" {
		a.lock = a.index + ".lock"
	}
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// loadEmbeddingTexts reads a collection and returns the text to embed for each valid record, in row order.
func loadEmbeddingTexts(kind, path string) ([]string, error) {
	if kind == kindText {
		norms, _, err := normstore.LoadTextNorms(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return ingest.EmbeddingTexts(norms), nil
	}
	norms, _, err := normstore.LoadTableNorms(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ingest.EmbeddingTexts(norms), nil
}
