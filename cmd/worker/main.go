package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/batch"
	"github.com/pressmill/pressmill/internal/config"
	"github.com/pressmill/pressmill/internal/events"
	"github.com/pressmill/pressmill/internal/orchestrator"
	"github.com/pressmill/pressmill/internal/provision"
	"github.com/pressmill/pressmill/internal/publish"
	"github.com/pressmill/pressmill/internal/repository/postgres"
	redisrepo "github.com/pressmill/pressmill/internal/repository/redis"
	"github.com/pressmill/pressmill/internal/scheduler"
	"github.com/pressmill/pressmill/internal/secrets"
	"github.com/pressmill/pressmill/internal/sshexec"
	"github.com/pressmill/pressmill/internal/wordpress"
	"github.com/pressmill/pressmill/internal/wpcli"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Pressmill Workflow Worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Connect to Redis
	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := goredis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Credential encryption
	crypter, err := secrets.NewCrypter(cfg.Secrets.EncryptionKey)
	if err != nil {
		logger.Fatal("Invalid credential encryption key", zap.Error(err))
	}

	// Initialize repositories
	jobRepo := postgres.NewJobRepository(dbPool)
	siteRepo := postgres.NewSiteRepository(dbPool)
	credRepo := postgres.NewCredentialRepository(dbPool)
	articleRepo := postgres.NewArticleRepository(dbPool)
	productRepo := postgres.NewProductRepository(dbPool)
	clusterRepo := postgres.NewClusterRepository(dbPool)
	scheduleRepo := postgres.NewScheduleRepository(dbPool)
	idempotencyStore := redisrepo.NewIdempotencyStore(redisClient)

	// Provisioning over SSH + wp-cli
	sshClient := sshexec.NewClient(sshexec.Config{
		Host:           cfg.SSH.Host,
		Port:           cfg.SSH.Port,
		User:           cfg.SSH.User,
		PrivateKey:     cfg.SSH.PrivateKey,
		KeyIsBase64:    cfg.SSH.KeyIsBase64,
		ConnectTimeout: time.Duration(cfg.SSH.ConnectTimeoutS) * time.Second,
	}, logger)
	siteControl := wpcli.NewClient(cfg.Platform.WPPath, cfg.Platform.BaseDomain, logger)
	provisioner := provision.NewManager(
		provision.SSHConnector{Client: sshClient},
		siteControl,
		cfg.Platform.AdminUser,
		logger,
	)

	// Batch inference and publishing
	batchClient := batch.NewClient(
		cfg.Anthropic.BaseURL,
		cfg.Anthropic.APIKey,
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
		logger,
	)
	articlePublisher := publish.NewManager(logger)
	postClients := func(siteURL, username, password string) publish.PostClient {
		return wordpress.NewClient(siteURL, username, password, logger)
	}

	// Initialize step functions and registry
	steps := orchestrator.NewSteps(orchestrator.StepsConfig{
		Jobs:         jobRepo,
		Sites:        siteRepo,
		Creds:        credRepo,
		Articles:     articleRepo,
		Products:     productRepo,
		Clusters:     clusterRepo,
		Schedules:    scheduleRepo,
		Provisioner:  provisioner,
		Batches:      batchClient,
		Publisher:    articlePublisher,
		PostClients:  postClients,
		Crypter:      crypter,
		ContactEmail: cfg.Platform.ContactEmail,
		Logger:       logger,
	})
	registry := steps.BuildRegistry()

	// Event publisher for follow-on events
	pub, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()

	// Create buffered event channel
	eventsChan := make(chan *events.EventMessage, cfg.Worker.PoolSize*2)

	// Initialize AMQP consumer
	consumer, err := events.NewConsumer(cfg.RabbitMQ.URL, cfg.Worker.PoolSize, eventsChan, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AMQP consumer", zap.Error(err))
	}
	defer consumer.Close()
	logger.Info("Connected to RabbitMQ")

	// Start dispatcher worker pool
	dispatcher := orchestrator.NewDispatcher(registry, jobRepo, idempotencyStore, pub, logger)
	dispatcher.Start(ctx, eventsChan, cfg.Worker.PoolSize)

	// Start AMQP consumer in a goroutine
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("AMQP consumer error", zap.Error(err))
			cancel()
		}
	}()

	// Start schedule scanner
	sched := scheduler.New(
		scheduleRepo,
		jobRepo,
		pub,
		time.Duration(cfg.Platform.ScheduleTickS)*time.Second,
		logger,
	)
	go sched.Run(ctx)

	// Start Prometheus metrics server
	go func() {
		metricsAddr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics server listening", zap.String("addr", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	// Wait for in-flight steps to finish
	dispatcher.Stop()

	logger.Info("Worker stopped")
}
