package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	memstore "github.com/Jimstew23/smlgpt-pipeline/internal/application/memory"
	"github.com/Jimstew23/smlgpt-pipeline/internal/application/pipeline"
	"github.com/Jimstew23/smlgpt-pipeline/internal/config"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
	dommem "github.com/Jimstew23/smlgpt-pipeline/internal/domain/memory"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/pipelineerrors"
	aiopenai "github.com/Jimstew23/smlgpt-pipeline/internal/infra/ai/openai"
	mysqlp "github.com/Jimstew23/smlgpt-pipeline/internal/infra/db/mysql"
	postgresp "github.com/Jimstew23/smlgpt-pipeline/internal/infra/db/postgres"
	"github.com/Jimstew23/smlgpt-pipeline/internal/infra/httpserver"
	minioStore "github.com/Jimstew23/smlgpt-pipeline/internal/infra/storage"
	"github.com/Jimstew23/smlgpt-pipeline/internal/middleware"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database and build repositories for the configured driver
	var (
		db         *sql.DB
		records    assessment.Repository
		memPersist dommem.Persistence
		errRepo    pipelineerrors.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		records = postgresp.NewAssessmentRepository(db)
		memPersist = postgresp.NewMemoryRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		records = mysqlp.NewAssessmentRepository(db)
		memPersist = mysqlp.NewMemoryRepository(db)
		errRepo = mysqlp.NewPipelineErrorRepository(db)
	}
	defer db.Close()

	// init minio image archive
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// restore episodic memory
	memory := memstore.NewStore(memPersist)
	if err := memory.Load(ctx); err != nil {
		// A missing snapshot starts an empty memory; a broken one should not
		// keep the safety service down.
		log.Printf("memory snapshot load failed, starting empty: %v", err)
	}

	// init vision oracle + pipeline
	oracle := aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	svc := pipeline.NewService(oracle, memory)
	svc.Records = records
	svc.Images = store
	svc.Errors = errRepo
	if cfg.OpenAI.TimeoutSeconds > 0 {
		svc.OracleTimeout = time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second
	}

	// init router with middleware chain
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	}
	mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	mux.Get("/healthz", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database":     &middleware.DatabaseHealthChecker{DB: db},
		"object_store": &middleware.PingHealthChecker{Ping: store.Ping},
	}))
	mux.Mount("/", httpserver.NewRouter(svc, records, memory))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
