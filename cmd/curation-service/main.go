package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-curation/internal/api"
	"ms-curation/internal/config"
	"ms-curation/internal/curation"
	curationdb "ms-curation/internal/curation/db"
	"ms-curation/internal/database/migrations"
	"ms-curation/internal/intake"
	intakedb "ms-curation/internal/intake/db"
	"ms-curation/internal/kafka"
	"ms-curation/internal/logger"
	"ms-curation/internal/models"
	"ms-curation/internal/search"
	servingdb "ms-curation/internal/serving/db"
)

func connectDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Could not connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable at %s, translation caching disabled: %v", cfg.Redis.Addr, err))
		return nil
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s", cfg.Redis.Addr))
	return client
}

func buildTranslator(cfg *config.Config, redisClient *redis.Client, log *logger.Logger) search.Translator {
	var translator search.Translator
	if cfg.OpenRouter.MockMode || cfg.OpenRouter.APIKey == "" {
		log.Info("SEARCH", "Using rule-based translator (mock mode)")
		translator = search.NewStaticTranslator()
	} else {
		translator = search.NewOpenRouterTranslator(
			&http.Client{Timeout: cfg.OpenRouter.Timeout},
			cfg.OpenRouter,
			log,
		)
	}

	if redisClient != nil && cfg.Redis.Enabled {
		translator = search.NewCachedTranslator(translator, redisClient, cfg.Redis.TranslationTTL, log)
	}
	return translator
}

func main() {
	_ = godotenv.Load() // Loads .env file if present

	log := logger.NewLogger()
	defer log.Close()
	cfg := config.Load()

	bunDB := connectDatabase(cfg, log)
	defer bunDB.Close()

	if os.Getenv("AUTO_MIGRATE") != "false" {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}

	redisClient := connectRedis(cfg, log)

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MockMode)
		defer producer.Close()
		if !cfg.Kafka.MockMode {
			topics := []string{
				cfg.Kafka.Topics.EventPublished,
				cfg.Kafka.Topics.EventQuarantined,
				cfg.Kafka.Topics.EventRejected,
				cfg.Kafka.Topics.ScrapedSubmissions,
			}
			if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
				log.Warn("KAFKA", fmt.Sprintf("Could not ensure topics: %v", err))
			}
		}
	}

	curDB := &curationdb.DB{Bun: bunDB}
	bronzeDB := &intakedb.DB{Bun: bunDB}
	goldDB := &servingdb.DB{Bun: bunDB}

	upsertService := curation.NewUpsertService(curDB, log)
	var lifecycle curation.LifecyclePublisher
	if producer != nil {
		lifecycle = producer
	}
	auditService := curation.NewAuditService(curDB, lifecycle, cfg.Kafka.Topics, log)
	intakeService := intake.NewService(bronzeDB, upsertService, log)

	translator := buildTranslator(cfg, redisClient, log)
	searchService := search.NewService(translator, goldDB, cfg.Serving.PageSize, cfg.Serving.WindowDays, log)

	handler := &api.Handler{
		Intake:           intakeService,
		Upsert:           upsertService,
		Audit:            auditService,
		Search:           searchService,
		Serving:          goldDB,
		Ping:             bunDB.Ping,
		PendingLimit:     cfg.Serving.PendingLimit,
		QuarantinedLimit: cfg.Serving.QuarantinedLimit,
		Logger:           log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scraped submissions arrive over Kafka and run through the same intake
	// path as the public form.
	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.ScrapedSubmissions, cfg.Kafka.GroupID)
		defer consumer.Close()
		go consumer.Start(ctx, func(submission kafka.ScrapedSubmission) {
			req := submission.Event
			req.SourceType = models.SourceScraper
			source := intake.SourceIdentity{IP: submission.ScraperID, UserAgent: "scraper"}
			if _, err := intakeService.SubmitEvent(ctx, req, source); err != nil {
				log.Error("INTAKE", fmt.Sprintf("Scraped submission failed: %v", err))
			}
		})
	}

	r := chi.NewRouter()
	r.Get("/health", handler.Health)
	r.Get("/venues", handler.ListVenues)
	r.Route("/events", func(r chi.Router) {
		r.Post("/", handler.SubmitEvent)
		r.Get("/upcoming", handler.ListUpcoming)
		r.Post("/search", handler.SearchEvents)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Get("/events/pending", handler.ListPending)
		r.Get("/events/quarantined", handler.ListQuarantined)
		r.Get("/stats", handler.Stats)
		r.Post("/events/{eventID}/approve", handler.ApproveEvent)
		r.Post("/events/{eventID}/reject", handler.RejectEvent)
		r.Post("/audit/run", handler.RunAudit)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Curation service listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	ctxShutdown, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Curation service shutdown complete")
}
