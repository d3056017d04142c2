package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/bootstrap"
	"github.com/kailas-cloud/normrag/internal/config"
	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/batch"
	logpkg "github.com/kailas-cloud/normrag/internal/logger"
	"github.com/kailas-cloud/normrag/internal/metrics"
	feedbackrepo "github.com/kailas-cloud/normrag/internal/repository/feedback"
	"github.com/kailas-cloud/normrag/internal/repository/normstore"
	chiTransport "github.com/kailas-cloud/normrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/normrag/internal/transport/openai"
	askuc "github.com/kailas-cloud/normrag/internal/usecase/ask"
	feedbackuc "github.com/kailas-cloud/normrag/internal/usecase/feedback"
	healthuc "github.com/kailas-cloud/normrag/internal/usecase/health"
	"github.com/kailas-cloud/normrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/normrag/internal/usecase/synthesis"
	"github.com/kailas-cloud/normrag/internal/version"
)

func main() {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting normrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("synthesis_mode", cfg.Synthesis.Mode),
		zap.Strings("cache_addrs", cfg.Database.Addrs),
	)

	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterPipelineMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenCache(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open embedding cache", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	queryEmbedder := bootstrap.BuildEmbedder(
		cfg.Embedding, metrics.EmbedPurposeQuery,
		time.Duration(cfg.Database.CacheTTLHours)*time.Hour, store, logger,
	)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	// Norm store: initial snapshot plus hot reload
	paths := normstore.Paths{
		TextNorms:  cfg.Store.TextNorms,
		TextIndex:  cfg.Store.TextIndex,
		TableNorms: cfg.Store.TableNorms,
		TableIndex: cfg.Store.TableIndex,
	}
	snapshot, err := normstore.Load(paths)
	if err != nil {
		logger.Fatal("Failed to load norm store", zap.Error(err))
	}
	holder := normstore.NewHolder(snapshot)
	normstore.ReportRecords(snapshot)
	logger.Info("Norm store loaded",
		zap.Int("text_norms", snapshot.Text.Len()),
		zap.Int("table_norms", snapshot.Table.Len()),
	)

	if cfg.Store.Watch {
		watcher := normstore.NewWatcher(paths, holder, time.Duration(cfg.Store.DebounceMS)*time.Millisecond, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Norm store watcher stopped", zap.Error(err))
			}
		}()
	}

	// Use cases
	retrievalOpts := retrieval.Options{
		TextTopK:         cfg.Retrieval.TextTopK,
		TableTopK:        cfg.Retrieval.TableTopK,
		TextOverfetch:    cfg.Retrieval.TextOverfetch,
		TableOverfetch:   cfg.Retrieval.TableOverfetch,
		AppliesThreshold: cfg.Retrieval.AppliesThreshold,
		IgnoredDomains:   cfg.Retrieval.IgnoredDomains,
	}
	textRetriever := retrieval.NewTextRetriever(queryEmbedder, retrievalOpts, logger)
	tableRetriever := retrieval.NewTableRetriever(queryEmbedder, retrievalOpts, logger)

	synthSvc := synthesis.New(completer, synthesisOptions(cfg.Synthesis, cfg.LLM.Model), logger)
	askSvc := askuc.New(holder, textRetriever, tableRetriever, synthSvc, logger)

	sinks, closeSinks := buildFeedbackSinks(cfg.Feedback, logger)
	defer closeSinks()
	feedbackSvc := feedbackuc.New(logger, sinks...)

	components := healthuc.Components{
		Store:     holder,
		Embedding: newProviderHealthChecker(queryEmbedder),
		LLM:       newProviderHealthChecker(completer),
	}
	if store != nil {
		components.DB = store
	}
	healthSvc := healthuc.New(components)

	server := chiTransport.NewServer(askSvc, feedbackSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func synthesisOptions(c config.SynthesisConfig, model string) synthesis.Options {
	// Validate already accepted both names
	mode, _ := synthesis.ParseMode(c.Mode)
	strategy, _ := batch.ParseStrategy(c.Strategy)

	opts := synthesis.Options{
		Mode:          mode,
		Workers:       c.Workers,
		Strategy:      strategy,
		BatchSize:     c.BatchSize,
		Model:         model,
		Jurisdiction:  synthesis.DefaultJurisdiction,
		ReasoningTags: c.ReasoningTags,
	}
	if c.Jurisdiction != nil {
		opts.Jurisdiction = *c.Jurisdiction
	}
	return opts
}

// buildFeedbackSinks opens every configured sink. A sink that fails to open is logged and skipped.
func buildFeedbackSinks(c config.FeedbackConfig, logger *zap.Logger) ([]feedbackuc.Sink, func()) {
	var (
		sinks   []feedbackuc.Sink
		closers []func() error
	)
	if c.JSONLPath != "" {
		s, err := feedbackrepo.NewJSONLSink(c.JSONLPath)
		if err != nil {
			logger.Error("Failed to open JSONL feedback sink", zap.String("path", c.JSONLPath), zap.Error(err))
		} else {
			sinks = append(sinks, s)
			closers = append(closers, s.Close)
		}
	}
	if c.SQLitePath != "" {
		s, err := feedbackrepo.NewSQLiteSink(c.SQLitePath)
		if err != nil {
			logger.Error("Failed to open SQLite feedback sink", zap.String("path", c.SQLitePath), zap.Error(err))
		} else {
			sinks = append(sinks, s)
			closers = append(closers, s.Close)
		}
	}
	if len(sinks) == 0 {
		logger.Warn("No feedback sinks configured, feedback is logged only")
	}

	return sinks, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Failed to close feedback sink", zap.Error(err))
			}
		}
	}
}

// providerHealthChecker probes a provider if it supports health checks.
type providerHealthChecker struct {
	provider any
}

func newProviderHealthChecker(provider any) *providerHealthChecker {
	return &providerHealthChecker{provider: provider}
}

func (h *providerHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.provider.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("provider health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}
