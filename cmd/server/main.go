// Package main runs the registration HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mphomathabathe/Baobab/config"
	"github.com/mphomathabathe/Baobab/internal/auth"
	"github.com/mphomathabathe/Baobab/internal/emaillogs"
	"github.com/mphomathabathe/Baobab/internal/mailer"
	"github.com/mphomathabathe/Baobab/internal/middleware"
	"github.com/mphomathabathe/Baobab/internal/organizations"
	"github.com/mphomathabathe/Baobab/internal/questions"
	"github.com/mphomathabathe/Baobab/internal/registrations"
	"github.com/mphomathabathe/Baobab/internal/worker"
	"github.com/mphomathabathe/Baobab/pkg/database"
	"github.com/mphomathabathe/Baobab/pkg/queue"
	"github.com/mphomathabathe/Baobab/pkg/redis"
	"github.com/mphomathabathe/Baobab/pkg/response"
	"github.com/mphomathabathe/Baobab/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), poolOptions(cfg.Database), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	db, err := database.NewGorm(pool, logger)
	if err != nil {
		logger.Fatal("gorm", zap.Error(err))
	}

	emailLogsRepo := emaillogs.NewRepository(db)

	var m mailer.Mailer
	switch cfg.Email.Delivery {
	case config.DeliveryQueue:
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		m = mailer.NewQueueMailer(queue.NewQueue(rdb.Client, logger))
	case config.DeliverySMTP:
		m = worker.NewEmailProcessor(mailer.NewSMTPMailer(smtpConfig(cfg.Email), logger), emailLogsRepo, nil, logger)
	default:
		m = mailer.NewLogMailer(logger)
	}
	logger.Info("email delivery", zap.String("mode", cfg.Email.Delivery))

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(db)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(db)
	notifier := registrations.NewNotifier(m, logger)
	registrationHandler := registrations.NewHandler(registrationRepo, notifier, cfg.Registration.DefaultEventID, logger)
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			UploadsBucket:        cfg.AWS.UploadsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			registrationHandler.SetFileStore(s3Client)
		}
	}

	// Admin: organisations, events, forms and questions
	orgHandler := organizations.NewHandler(organizations.NewRepository(db), logger)
	questionHandler := questions.NewHandler(questions.NewRepository(db), logger)

	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		api.GET("/registration", registrationHandler.Get)
		api.POST("/registration", registrationHandler.Create)
		api.PUT("/registration", registrationHandler.Update)
		api.POST("/registration/uploads", registrationHandler.CreateUpload)
		api.GET("/registration/uploads", registrationHandler.GetUpload)

		api.GET("/registration-forms/:id/questions", questionHandler.ListByForm)

		admin := api.Group("", middleware.RequireRole("admin"))
		admin.GET("/registrations/:id/emails", emailLogsHandler.ListByRegistration)
		admin.POST("/registration-forms", questionHandler.CreateForm)
		admin.POST("/registration-forms/:id/questions", questionHandler.Create)
		admin.DELETE("/registration-questions/:id", questionHandler.Delete)
		admin.GET("/organisations", orgHandler.List)
		admin.POST("/organisations", orgHandler.Create)
		admin.PUT("/organisations/:id/email-from", orgHandler.SetEmailFrom)
		admin.GET("/organisations/:id/events", orgHandler.ListEvents)
		admin.POST("/organisations/:id/events", orgHandler.CreateEvent)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func smtpConfig(c config.EmailConfig) mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:        c.SMTPHost,
		Port:        c.SMTPPort,
		User:        c.SMTPUser,
		Pass:        c.SMTPPass,
		FromAddress: c.FromAddress,
		FromName:    c.FromName,
	}
}

func poolOptions(c config.DatabaseConfig) database.PoolOptions {
	return database.PoolOptions{
		MaxConns:        int32(c.MaxConns),
		MaxConnLifetime: time.Duration(c.MaxConnLifetimeMin) * time.Minute,
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
