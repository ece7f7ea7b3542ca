package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-server/config"
	"catalog-server/database"
	"catalog-server/handlers"
	"catalog-server/logger"
	"catalog-server/metrics"
	"catalog-server/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logr, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, logr)
	if err != nil {
		logr.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logr.WithError(err).Fatal("failed to migrate database")
	}

	storage, err := newStorage(cfg)
	if err != nil {
		logr.WithError(err).Fatal("failed to initialize file storage")
	}
	logr.WithField("driver", cfg.StorageDriver).Info("file storage ready")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newRouter(cfg, db, storage, logr)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.WithField("addr", srv.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.WithError(err).Error("graceful shutdown failed")
	}
}

func newStorage(cfg *config.Config) (services.FileStorage, error) {
	if cfg.StorageDriver == config.StorageCloudinary {
		return services.NewCloudinaryStorage(cfg.CloudinaryURL)
	}
	return services.NewLocalStorage(cfg.StorageRoot)
}

func newRouter(cfg *config.Config, db *gorm.DB, storage services.FileStorage, logr *logrus.Logger) *gin.Engine {
	h := handlers.New(handlers.Deps{
		Categories: database.NewCategoryRepository(db),
		Brands:     database.NewBrandRepository(db),
		Products:   database.NewProductRepository(db),
		Users:      database.NewUserRepository(db),
		Storage:    storage,
		Tokens:     services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Ping: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		Log: logr,
		Options: handlers.Options{
			MaxUploadKB:  cfg.MaxUploadKB,
			ExposeErrors: !cfg.IsProduction(),
			AuthRequired: cfg.AuthRequired,
		},
	})

	router := gin.New()
	router.MaxMultipartMemory = (cfg.MaxUploadKB + 1024) * 1024
	router.Use(handlers.RequestLogger(logr), handlers.Recovery(logr), metrics.Middleware())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.StorageDriver == config.StorageLocal {
		router.Static(cfg.StorageURLPrefix, cfg.StorageRoot)
	}

	h.Register(router)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.Envelope{Message: "Route not found"})
	})
	return router
}
