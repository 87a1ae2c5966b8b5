package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-api/api/swagger"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/cache"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/database"
	"github.com/noah-isme/lms-api/pkg/jobs"
	"github.com/noah-isme/lms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-api/pkg/middleware/requestid"
)

// @title LMS API
// @version 1.0.0
// @description University course registration, eligibility and grading service
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-memory suggestion cache", zap.Error(err))
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		redisRepo := repository.NewCacheRepository(redisClient, logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
	} else {
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Registration.SuggestionsCacheSize)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Registration.SuggestionsCacheTTL, logr.Named("cache"), true)

	users := repository.NewUserRepository(db)
	holds := repository.NewHoldRepository(db)
	courses := repository.NewCourseRepository(db)
	prereqs := repository.NewPrerequisiteRepository(db)
	offerings := repository.NewSemesterCourseRepository(db)
	registrations := repository.NewRegistrationRepository(db)
	grades := repository.NewGradeRepository(db)
	gpaRules := repository.NewGPARuleRepository(db)
	progressions := repository.NewLevelProgressionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	quizzes := repository.NewQuizRepository(db)

	validate := validator.New()
	history := service.NewAcademicHistory(registrations, grades)
	calculator := service.NewAcademicCalculator(gpaRules, progressions, history, cfg.Registration.DefaultMaxCreditHours, logr.Named("calculator"))

	notifications := service.NewNotificationService(notificationRepo, metrics, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
	}, logr.Named("notifications"))
	notifications.Start(ctx)
	defer notifications.Stop()

	services := routeServices{
		auth: service.NewAuthService(users, validate, logr.Named("auth"), service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		courses: service.NewCourseService(courses, prereqs, offerings, cacheSvc, validate, logr.Named("courses")),
		rules:   service.NewAcademicRuleService(gpaRules, progressions, cacheSvc, validate, logr.Named("rules")),
		students: service.NewStudentService(users, holds, calculator, cacheSvc, notifications, validate, logr.Named("students")),
		eligibility: service.NewEligibilityService(service.EligibilityServiceDeps{
			Users:         users,
			Holds:         holds,
			Courses:       courses,
			Registrations: registrations,
			Prerequisites: prereqs,
			History:       history,
			Calculator:    calculator,
			Cache:         cacheSvc,
			Metrics:       metrics,
			CacheTTL:      cfg.Registration.SuggestionsCacheTTL,
			Logger:        logr.Named("eligibility"),
		}),
		registrations: service.NewRegistrationService(service.RegistrationServiceDeps{
			Registrations: registrations,
			Users:         users,
			Courses:       courses,
			Offerings:     offerings,
			Holds:         holds,
			Prerequisites: prereqs,
			History:       history,
			Calculator:    calculator,
			Cache:         cacheSvc,
			Notifier:      notifications,
			Metrics:       metrics,
			Validator:     validate,
			Logger:        logr.Named("registrations"),
		}),
		grades: service.NewGradeService(service.GradeServiceDeps{
			Tx:            db,
			Grades:        grades,
			Registrations: registrations,
			Users:         users,
			Courses:       courses,
			Cache:         cacheSvc,
			Notifier:      notifications,
			Metrics:       metrics,
			Validator:     validate,
			Logger:        logr.Named("grades"),
		}),
		attendance: service.NewAttendanceService(attendanceRepo, courses, users, registrations, validate, logr.Named("attendance")),
		quizzes: service.NewQuizService(service.QuizServiceDeps{
			Quizzes:     quizzes,
			Courses:     courses,
			Enrollments: registrations,
			Notifier:    notifications,
			Validator:   validate,
			Logger:      logr.Named("quizzes"),
		}),
		transcripts:   service.NewTranscriptService(users, grades, nil, nil, logr.Named("transcripts")),
		notifications: notifications,
		metrics:       metrics,
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	registerRoutes(r, cfg, db, services)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
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
