package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/unforgotten-api/api/swagger"
	"github.com/noah-isme/unforgotten-api/internal/handler"
	"github.com/noah-isme/unforgotten-api/internal/middleware"
	"github.com/noah-isme/unforgotten-api/internal/repository"
	"github.com/noah-isme/unforgotten-api/internal/service"
	"github.com/noah-isme/unforgotten-api/pkg/cache"
	"github.com/noah-isme/unforgotten-api/pkg/config"
	"github.com/noah-isme/unforgotten-api/pkg/database"
	"github.com/noah-isme/unforgotten-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/unforgotten-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/unforgotten-api/pkg/middleware/requestid"
	"github.com/noah-isme/unforgotten-api/pkg/storage"
)

// @title Unforgotten API
// @version 0.1.0
// @description Family calendar aggregation and note sync
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, calendar cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	palette, err := config.LoadPalette(cfg.Calendar.PaletteFile)
	if err != nil {
		logr.Warn("falling back to default palette", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	var cacheStore service.CacheRepository
	if redisClient != nil {
		cacheStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Calendar.CacheTTL, logr, cfg.Calendar.CacheEnabled)

	members := repository.NewAccountMemberRepository(db)
	appointments := repository.NewAppointmentRepository(db)
	countdowns := repository.NewCountdownRepository(db)
	shares := repository.NewShareRepository(db)

	calendarSvc := service.NewCalendarService(service.CalendarServiceParams{
		Profiles:     repository.NewProfileRepository(db),
		Members:      members,
		Appointments: appointments,
		Countdowns:   countdowns,
		Medications:  repository.NewMedicationRepository(db),
		TodoLists:    repository.NewTodoListRepository(db),
		Shares:       shares,
		Cache:        cacheSvc,
		Metrics:      metricsSvc,
		Logger:       logr,
		Config: service.CalendarServiceConfig{
			Location:              cfg.Calendar.Location(),
			MedicationHorizonDays: cfg.Calendar.MedicationHorizonDays,
			MaxShareFetchers:      cfg.Calendar.MaxShareFetchers,
			CacheTTL:              cfg.Calendar.CacheTTL,
		},
	})
	shareSvc := service.NewShareService(service.ShareServiceParams{
		Shares:       shares,
		Appointments: appointments,
		Countdowns:   countdowns,
		Validator:    validate,
		Cache:        cacheSvc,
		Logger:       logr,
	})

	var signer *storage.FeedTokenSigner
	feedSecret := cfg.Calendar.FeedSecret
	if feedSecret == "" {
		derived, err := storage.DeriveFeedSecret(cfg.JWT.Secret)
		if err != nil {
			logr.Warn("calendar feeds disabled", zap.Error(err))
		}
		feedSecret = derived
	}
	if feedSecret != "" {
		signer = storage.NewFeedTokenSigner(feedSecret, cfg.Calendar.FeedTTL)
	}
	exportSvc := service.NewExportService(signer, palette, service.ExportConfig{
		PublicBaseURL: cfg.Calendar.PublicBaseURL,
		APIPrefix:     cfg.APIPrefix,
	}, logr)
	noteSvc := service.NewNoteService(repository.NewNoteRepository(db), validate, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	calendarHandler := handler.NewCalendarHandler(calendarSvc, exportSvc, shareSvc, palette)
	feedHandler := handler.NewFeedHandler(calendarSvc, exportSvc, members, palette, logr)
	noteHandler := handler.NewNoteHandler(noteSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/feeds/family.ics", feedHandler.Family)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokenSvc))
	secured.GET("/metrics/summary", metricsHandler.Summary)

	account := secured.Group("/accounts/:" + middleware.AccountParam)
	account.Use(middleware.AccountAccess(members, logr))

	calendar := account.Group("/calendar")
	calendar.GET("/events", calendarHandler.Events)
	calendar.GET("/day", calendarHandler.Day)
	calendar.GET("/month", calendarHandler.Month)
	calendar.GET("/filters", calendarHandler.Filters)
	calendar.GET("/export", calendarHandler.Export)
	calendar.GET("/feed", calendarHandler.FeedLink)
	calendar.POST("/shares", middleware.RequireWriter(), middleware.Audit(logr, "share", "calendar_share"), calendarHandler.CreateShare)
	calendar.DELETE("/shares/:shareId", middleware.RequireWriter(), middleware.Audit(logr, "unshare", "calendar_share"), calendarHandler.DeleteShare)

	notes := account.Group("/notes")
	notes.GET("", noteHandler.List)
	notes.POST("", middleware.RequireWriter(), middleware.Audit(logr, "upsert", "note"), noteHandler.Create)
	notes.PUT("/:noteId", middleware.RequireWriter(), middleware.Audit(logr, "update", "note"), noteHandler.Update)
	notes.DELETE("/:noteId", middleware.RequireWriter(), middleware.Audit(logr, "delete", "note"), noteHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
