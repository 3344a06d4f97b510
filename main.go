package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"nust-bites/cache"
	"nust-bites/checkout"
	"nust-bites/config"
	"nust-bites/delivery"
	"nust-bites/handlers"
	"nust-bites/logger"
	"nust-bites/mailer"
	"nust-bites/middleware"
	"nust-bites/routes"
	"nust-bites/sequence"
	"nust-bites/services"
	"nust-bites/storage"
	"nust-bites/timeutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logger()); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()
	gin.SetMode(cfg.GinMode)

	config.InitDB()

	clock, err := timeutil.NewClock(cfg.Timezone)
	if err != nil {
		log.WithError(err).Fatal("Invalid TIMEZONE")
	}
	images, err := storage.NewLocalStore(cfg.UploadDir, "/uploads", cfg.MaxUploadBytes())
	if err != nil {
		log.WithError(err).Fatal("Failed to prepare upload directory")
	}
	if err := middleware.RegisterValidations(); err != nil {
		log.WithError(err).Fatal("Failed to register validations")
	}

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		log.Warn("SMTP_HOST not set, emails will only be logged")
	}

	var sequences sequence.Allocator = sequence.NewSQLAllocator(config.DB)
	if cfg.MongoURI != "" {
		client, err := sequence.ConnectMongo(context.Background(), cfg.MongoURI)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())
		sequences = sequence.NewMongoAllocator(client.Database(cfg.MongoDatabase))
		log.Info("Order numbers allocated from MongoDB")
	}

	if err := services.EnsureAdmin(context.Background(), config.DB, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("Failed to seed admin account")
	}

	settings := services.NewSettingsService(config.DB)
	quoter := delivery.NewQuoter(delivery.NewOSRMClient(cfg.OSRMURL, cfg.RoutingTimeout), settings)
	validator := checkout.NewValidator(checkout.NewGormCatalog(config.DB), quoter, clock.MinutesNow)
	readCache := cache.New(cfg.CacheSize, cfg.CacheTTL)

	h := handlers.New(handlers.Deps{
		DB:          config.DB,
		Clock:       clock,
		Cache:       readCache,
		Orders:      services.NewOrderService(config.DB, validator, sequences, mailer.NewNotifier(mail)),
		Restaurants: services.NewRestaurantService(config.DB, images, readCache),
		Settings:    settings,
	})

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS())
	r.MaxMultipartMemory = cfg.MaxUploadBytes()

	r.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if sqlDB, err := config.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": "NUST Bites API",
			"time":    clock.Now().Format(time.RFC3339),
		})
	})
	routes.SetupRoutes(r, h, images.Dir())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Server running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server exited")
}
