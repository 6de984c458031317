package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"raffle-admin/internal/archive"
	"raffle-admin/internal/auth"
	"raffle-admin/internal/cache"
	"raffle-admin/internal/config"
	"raffle-admin/internal/database"
	"raffle-admin/internal/handlers"
	"raffle-admin/internal/jobs"
	"raffle-admin/internal/lock"
	"raffle-admin/internal/notify"
	"raffle-admin/internal/repository"
	"raffle-admin/internal/services"
)

func main() {
	defer logger.Init("raffle-admin", true, false, io.Discard).Close()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.Database.Driver, cfg.GetDSN()); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Event ownership: etcd when several instances share the database
	var owners lock.Lock = lock.NewLocalLock()
	if len(cfg.Etcd.Endpoints) > 0 {
		etcdLock, err := lock.NewEtcdLock(cfg.Etcd.Endpoints, cfg.Etcd.DialTimeout, cfg.Etcd.LeaseTTL, cfg.App.InstanceID)
		if err != nil {
			logger.Fatalf("Failed to connect to etcd: %v", err)
		}
		owners = etcdLock
		logger.Infof("Event ownership via etcd %v", cfg.Etcd.Endpoints)
	}
	defer owners.Close()

	// Domain events
	var publisher notify.Publisher = notify.NewLogPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Infof("Publishing domain events to kafka topic %s", cfg.Kafka.Topic)
	}
	defer publisher.Close()

	// Optional result cache
	var resultCache services.ResultCache
	if cfg.Redis.Address != "" {
		redisCache, err := cache.NewRedisResultCache(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ResultTTL)
		if err != nil {
			logger.Warningf("Result cache disabled: %v", err)
		} else {
			resultCache = redisCache
			defer redisCache.Close()
		}
	}

	// Optional archive
	var archiver archive.Archiver
	if cfg.Archive.Bucket != "" {
		s3Archiver, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			Prefix:          cfg.Archive.Prefix,
		})
		if err != nil {
			logger.Fatalf("Failed to configure archive: %v", err)
		}
		archiver = s3Archiver
	}

	// Initialize services
	eventService := services.NewEventService(repo, owners, publisher, resultCache, archiver, cfg.App.EntryPageURL)

	// Background jobs
	scheduler, err := jobs.NewScheduler(map[string]jobs.Job{
		"deadline-watcher": jobs.NewDeadlineWatcher(eventService, cfg.App.DeadlineInterval),
		"retention":        jobs.NewRetentionJob(eventService, cfg.App.RetentionPeriod, cfg.App.RetentionCheck),
	})
	if err != nil {
		logger.Fatalf("Failed to schedule jobs: %v", err)
	}
	scheduler.Start()

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(eventService)

	// Set up Gin router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-Already-Closed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handlers.RegisterRoutes(router, eventHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := scheduler.Stop(); err != nil {
		logger.Errorf("Failed to stop jobs: %v", err)
	}
	eventService.Shutdown(shutdownCtx)

	logger.Info("Server exited")
}
