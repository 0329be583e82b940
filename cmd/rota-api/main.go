package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/willowdale/rota-api/api/swagger"
	"github.com/willowdale/rota-api/internal/handler"
	"github.com/willowdale/rota-api/internal/middleware"
	"github.com/willowdale/rota-api/internal/repository"
	"github.com/willowdale/rota-api/internal/service"
	"github.com/willowdale/rota-api/pkg/cache"
	"github.com/willowdale/rota-api/pkg/config"
	"github.com/willowdale/rota-api/pkg/database"
	"github.com/willowdale/rota-api/pkg/logger"
	corsmiddleware "github.com/willowdale/rota-api/pkg/middleware/cors"
	reqidmiddleware "github.com/willowdale/rota-api/pkg/middleware/requestid"
	"github.com/willowdale/rota-api/pkg/storage"
)

// @title Willowdale Rota API
// @version 1.0.0
// @description Weekly volunteer scheduling for the Willowdale sanctuary
// @BasePath /
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := database.RunMigrations(migrateCtx, db); err != nil {
		cancelMigrate()
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}
	cancelMigrate()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, schedule cache disabled", "error", err)
			cfg.Cache.Enabled = false
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	slotRepo := repository.NewSlotRepository(db)
	backupRepo := repository.NewBackupRepository(db)
	volunteerRepo := repository.NewVolunteerRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	scheduleSvc := service.NewScheduleService(slotRepo, backupRepo, db, cacheSvc, validate, logr, service.ScheduleServiceConfig{
		WindowWeeks:    cfg.Schedule.WindowWeeks,
		BackupMaxCount: cfg.Backups.MaxCount,
	})
	assignmentSvc := service.NewAssignmentService(slotRepo, cacheSvc, validate, logr)
	provisionSvc := service.NewProvisionService(slotRepo, scheduleSvc, logr, service.ProvisionServiceConfig{
		ProvisionWeeks: cfg.Schedule.ProvisionWeeks,
		HorizonWeeks:   cfg.Schedule.HorizonWeeks,
	})
	backupSvc := service.NewBackupService(backupRepo, slotRepo, scheduleSvc, db, logr, cfg.Backups.MaxCount)
	volunteerSvc := service.NewVolunteerService(volunteerRepo, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, validate, logr)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, provisionSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	backupHandler := handler.NewBackupHandler(backupSvc)
	volunteerHandler := handler.NewVolunteerHandler(volunteerSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	var exportSvc *service.ExportService
	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(slotRepo, store, signer, logr, service.ExportServiceConfig{
			WindowWeeks:       cfg.Schedule.WindowWeeks,
			WorkerConcurrency: cfg.Exports.WorkerConcurrency,
			WorkerRetries:     cfg.Exports.WorkerRetries,
			DownloadPath:      cfg.APIPrefix + "/exports/download",
		})
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seeded, err := provisionSvc.InitializeScheduleIfEmpty(startupCtx, time.Now().UTC())
	if err != nil {
		logr.Sugar().Fatalw("failed to provision default schedule", "error", err)
	}
	if !seeded {
		if _, err := provisionSvc.AutoManageWeeks(startupCtx, time.Now().UTC()); err != nil {
			logr.Sugar().Warnw("failed to extend schedule horizon", "error", err)
		}
	}

	if exportSvc != nil {
		exportSvc.Start(context.Background())
		defer exportSvc.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsSvc))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/schedule", scheduleHandler.Weeks)
		api.PUT("/schedule", scheduleHandler.Replace)
		api.POST("/schedule/auto-manage", scheduleHandler.AutoManage)

		api.GET("/schedule/slots", scheduleHandler.ListSlots)
		api.POST("/schedule/slots", scheduleHandler.CreateSlot)
		api.GET("/schedule/slots/:id", scheduleHandler.GetSlot)
		api.PUT("/schedule/slots/:id", scheduleHandler.UpdateSlot)
		api.DELETE("/schedule/slots/:id", scheduleHandler.DeleteSlot)
		api.POST("/schedule/slots/:id/assign", assignmentHandler.Assign)
		api.POST("/schedule/slots/:id/unassign", assignmentHandler.Unassign)

		api.GET("/backups", backupHandler.List)
		api.POST("/backups", backupHandler.Create)
		api.POST("/backups/:id/restore", backupHandler.Restore)

		api.GET("/volunteers", volunteerHandler.List)
		api.POST("/volunteers", volunteerHandler.Create)

		api.GET("/activity-types", activityHandler.List)
		api.POST("/activity-types", activityHandler.Create)

		if exportHandler != nil {
			api.POST("/exports", exportHandler.Request)
			api.GET("/exports/download", exportHandler.Download)
			api.GET("/exports/:id", exportHandler.Get)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
