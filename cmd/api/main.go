package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/absensi-go-api/internal/config"
	"github.com/noah-isme/absensi-go-api/internal/database"
	"github.com/noah-isme/absensi-go-api/internal/handler"
	"github.com/noah-isme/absensi-go-api/internal/middleware"
	"github.com/noah-isme/absensi-go-api/internal/models"
	"github.com/noah-isme/absensi-go-api/internal/repository"
	"github.com/noah-isme/absensi-go-api/internal/router"
	"github.com/noah-isme/absensi-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.SchoolClass{},
		&models.Enrollment{},
		&models.AttendanceSession{},
		&models.DailySecret{},
		&models.ScanAttempt{},
		&models.AttendanceRecord{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	sessionRepo := repository.NewSessionRepository(db)
	secretRepo := repository.NewDailySecretRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attemptRepo := repository.NewScanAttemptRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	scanService := service.NewScanService(service.ScanServiceDeps{
		Sessions:   sessionRepo,
		Secrets:    secretRepo,
		Attempts:   attemptRepo,
		Attendance: attendanceRepo,
		Scopes:     service.NewScopeResolver(enrollmentRepo),
		Geofence:   service.NewGeofenceValidator(cfg.Attendance),
		Fraud:      service.NewDeviceFraudDetector(attemptRepo, cfg.Attendance, logger),
		Cache:      redisClient,
		CacheTTL:   cfg.SessionCacheTTL,
		Policy:     cfg.Attendance,
	}, logger)
	adminService := service.NewAdminService(sessionRepo, secretRepo, redisClient, validate, logger)

	scanHandler := handler.NewScanHandler(scanService, validate, logger)
	dailyTokenHandler := handler.NewDailyTokenHandler(scanService, logger)
	adminHandler := handler.NewAdminHandler(adminService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ScanHandler:       scanHandler,
		DailyTokenHandler: dailyTokenHandler,
		AdminHandler:      adminHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
