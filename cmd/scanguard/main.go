package main

import (
	"context"
	"encoding/json"
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

	"github.com/kailas-cloud/scanguard/internal/config"
	"github.com/kailas-cloud/scanguard/internal/db"
	dbRedis "github.com/kailas-cloud/scanguard/internal/db/redis"
	"github.com/kailas-cloud/scanguard/internal/domain"
	domchat "github.com/kailas-cloud/scanguard/internal/domain/chat"
	"github.com/kailas-cloud/scanguard/internal/domain/redaction"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
	logpkg "github.com/kailas-cloud/scanguard/internal/logger"
	"github.com/kailas-cloud/scanguard/internal/metrics"
	credentialrepo "github.com/kailas-cloud/scanguard/internal/repository/credential"
	quotarepo "github.com/kailas-cloud/scanguard/internal/repository/quota"
	"github.com/kailas-cloud/scanguard/internal/repository/scancache"
	chiTransport "github.com/kailas-cloud/scanguard/internal/transport/chi"
	"github.com/kailas-cloud/scanguard/internal/transport/detector"
	geminiModel "github.com/kailas-cloud/scanguard/internal/transport/gemini"
	"github.com/kailas-cloud/scanguard/internal/transport/objectstore"
	openaiModel "github.com/kailas-cloud/scanguard/internal/transport/openai"
	chatuc "github.com/kailas-cloud/scanguard/internal/usecase/chat"
	documentuc "github.com/kailas-cloud/scanguard/internal/usecase/document"
	healthuc "github.com/kailas-cloud/scanguard/internal/usecase/health"
	objectuc "github.com/kailas-cloud/scanguard/internal/usecase/object"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
	scanuc "github.com/kailas-cloud/scanguard/internal/usecase/scan"
	"github.com/kailas-cloud/scanguard/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
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

	logger.Info("Starting scanguard API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("detector_url", cfg.Detector.BaseURL),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()

	// The store is optional: without it there is no scan cache, no credential refs
	// and quota counters live in memory only.
	var store db.Store
	if cfg.Database.Enabled() {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer redisStore.Close()

		if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")
		store = redisStore
	}

	// Register scan metrics explicitly (no init())
	metrics.RegisterScanMetrics()

	detectorClient := detector.NewClient(detector.Config{
		BaseURL:   cfg.Detector.BaseURL,
		Timeout:   time.Duration(cfg.Detector.TimeoutSec) * time.Second,
		UserAgent: version.UserAgent(),
	})
	det := buildDetector(ctx, cfg, detectorClient, store, logger)
	creds := buildCredentials(cfg, store)

	unit, err := redaction.ParseUnit(cfg.Detector.OffsetUnit)
	if err != nil {
		logger.Fatal("Invalid offset unit", zap.Error(err))
	}

	builder := documentuc.NewBuilder(domain.ScanLimits{
		MaxDocumentBytes: cfg.Detector.MaxDocumentBytes,
		MaxDocuments:     cfg.Detector.MaxDocuments,
	})
	pipe := pipeline.New(
		builder,
		scanuc.New(det),
		redaction.Engine{Marker: cfg.Scan.Marker, Unit: unit},
		logger,
	).WithConcurrency(cfg.Scan.Concurrency)

	// Optional subsystems. Pass nil interfaces, never typed nil pointers.
	var (
		objects     chiTransport.ObjectScanner
		chat        chiTransport.ChatGateway
		objectCheck healthuc.Checker
		modelCheck  healthuc.Checker
	)
	if cfg.ObjectStore.Endpoint != "" {
		objStore, err := objectstore.New(objectstore.Config{
			Endpoint:       cfg.ObjectStore.Endpoint,
			Region:         cfg.ObjectStore.Region,
			AccessKey:      cfg.ObjectStore.AccessKey,
			SecretKey:      cfg.ObjectStore.SecretKey,
			UseSSL:         cfg.ObjectStore.UseSSL,
			MaxObjectBytes: cfg.ObjectStore.MaxObjectBytes,
		})
		if err != nil {
			logger.Fatal("Failed to create object store client", zap.Error(err))
		}
		objects = objectuc.New(objStore, pipe)
		objectCheck = objStore
		logger.Info("Object scans enabled",
			zap.String("endpoint", cfg.ObjectStore.Endpoint),
			zap.Int64("max_object_bytes", objStore.MaxObjectBytes()),
		)
	}
	if cfg.Model.Provider != "" {
		model, check, err := buildModel(ctx, cfg.Model, logger)
		if err != nil {
			logger.Fatal("Failed to create chat model", zap.Error(err))
		}
		chat = chatuc.New(pipe, model, logger)
		modelCheck = check
		logger.Info("Chat gateway enabled",
			zap.String("provider", cfg.Model.Provider),
			zap.String("model", cfg.Model.Model),
		)
	}

	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger,
		healthuc.Component{Name: "detector", Checker: detectorClient, Critical: true},
		healthuc.Component{Name: "object_store", Checker: objectCheck},
		healthuc.Component{Name: "model", Checker: modelCheck},
	)

	server := chiTransport.NewServer(pipe, objects, chat, healthSvc, creds, logger).
		WithMaxBatchItems(cfg.Scan.MaxBatchItems).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildDetector assembles the decorator chain: client -> Retrying -> Quota -> Instrumented -> Cached.
func buildDetector(
	ctx context.Context,
	cfg config.Config,
	client domscan.Detector,
	store db.Store,
	logger *zap.Logger,
) domscan.Detector {
	var det domscan.Detector = scanuc.NewRetryingDetector(client, scanuc.RetryPolicy{
		Attempts: cfg.Detector.Retry.Attempts,
		Backoff:  time.Duration(cfg.Detector.Retry.BackoffMS) * time.Millisecond,
	}, logger)

	// Quota (only documents that reach the network count)
	if cfg.Detector.DailyDocumentQuota > 0 {
		quota := scanuc.NewQuotaDetector(
			det, cfg.Detector.DailyDocumentQuota, scanuc.QuotaAction(cfg.Detector.QuotaAction), logger,
		)
		if store != nil {
			quota.WithStore(ctx, quotarepo.New(store, 48*time.Hour))
		}
		det = quota
	}

	// Instrumented (metrics + per-request usage)
	det = scanuc.NewInstrumentedDetector(det, logger)

	// Cached (outermost, so hits never count as detector calls)
	if store != nil && cfg.Scan.CacheTTLSec > 0 {
		det = scancache.New(det, store, time.Duration(cfg.Scan.CacheTTLSec)*time.Second,
			metrics.ScanCacheTotal, logger)
	}
	return det
}

// buildCredentials prefers the stored credential reference and falls back to the static key.
func buildCredentials(cfg config.Config, store db.Store) domain.CredentialProvider {
	static := domain.StaticCredential(cfg.Detector.APIKey)
	if cfg.Detector.APIKeyRef == "" || store == nil {
		return static
	}
	credStore := credentialrepo.NewStore(store, cfg.Credentials.CacheSize,
		time.Duration(cfg.Credentials.CacheTTLSec)*time.Second, metrics.CredentialCacheTotal)
	chain := credentialrepo.Chain{credStore.Provider(cfg.Detector.APIKeyRef)}
	if static != "" {
		chain = append(chain, static)
	}
	return chain
}

// buildModel creates the configured chat model and its health checker (nil for gemini).
func buildModel(ctx context.Context, cfg config.ModelConfig, logger *zap.Logger) (domchat.Model, healthuc.Checker, error) {
	switch cfg.Provider {
	case "openai":
		m := openaiModel.NewModel(&openaiModel.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Logger:   logger,
		})
		return m, m, nil
	case "gemini":
		m, err := geminiModel.NewModel(ctx, &geminiModel.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gemini: %w", err)
		}
		return m, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line. Request bodies are never logged.
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("detector_calls", ww.Header().Get("X-Detector-Calls")),
			)
		})
	}
}
