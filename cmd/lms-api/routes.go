package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/config"
)

type routeServices struct {
	auth          *service.AuthService
	courses       *service.CourseService
	rules         *service.AcademicRuleService
	students      *service.StudentService
	eligibility   *service.EligibilityService
	registrations *service.RegistrationService
	grades        *service.GradeService
	attendance    *service.AttendanceService
	quizzes       *service.QuizService
	transcripts   *service.TranscriptService
	notifications *service.NotificationService
	metrics       *service.MetricsService
}

func registerRoutes(r *gin.Engine, cfg *config.Config, db *sqlx.DB, svc routeServices) {
	metricsHandler := handler.NewMetricsHandler(svc.metrics, db)
	r.Use(middleware.Metrics(svc.metrics))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svc.auth)
	courseHandler := handler.NewCourseHandler(svc.courses)
	ruleHandler := handler.NewAcademicRuleHandler(svc.rules)
	studentHandler := handler.NewStudentHandler(svc.students)
	eligibilityHandler := handler.NewEligibilityHandler(svc.eligibility)
	registrationHandler := handler.NewRegistrationHandler(svc.registrations)
	gradeHandler := handler.NewGradeHandler(svc.grades)
	transcriptHandler := handler.NewTranscriptHandler(svc.transcripts)
	notificationHandler := handler.NewNotificationHandler(svc.notifications)
	attendanceHandler := handler.NewAttendanceHandler(svc.attendance)
	quizHandler := handler.NewQuizHandler(svc.quizzes)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	staffOrInstructor := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleInstructor)
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleManager), string(models.RoleInstructor), middleware.SelfAccess)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(svc.auth))
	secured.GET("/auth/me", authHandler.Me)

	courses := secured.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.GET("/:id", courseHandler.Get)
	courses.POST("", staff, courseHandler.Create)
	courses.PUT("/:id", staffOrInstructor, courseHandler.Update)
	courses.DELETE("/:id", staff, courseHandler.Deactivate)
	courses.GET("/:id/prerequisites", courseHandler.ListPrerequisites)
	courses.POST("/:id/prerequisites", staff, courseHandler.AddPrerequisite)
	courses.DELETE("/:id/prerequisites/:prerequisiteId", staff, courseHandler.RemovePrerequisite)
	courses.GET("/:id/offerings", courseHandler.ListOfferings)
	courses.POST("/:id/offerings", staff, courseHandler.AddOffering)
	courses.GET("/:id/attendance", staffOrInstructor, attendanceHandler.ListByCourse)
	courses.POST("/:id/attendance", staffOrInstructor, attendanceHandler.Mark)
	courses.POST("/:id/attendance/bulk", staffOrInstructor, attendanceHandler.BulkMark)
	courses.GET("/:id/quizzes", quizHandler.ListByCourse)
	courses.POST("/:id/quizzes", staffOrInstructor, quizHandler.Create)

	students := secured.Group("/students/:id")
	students.GET("", staffOrSelf, studentHandler.Profile)
	students.POST("/holds", staff, studentHandler.AddHold)
	students.DELETE("/holds/:holdId", staff, studentHandler.RemoveHold)
	students.GET("/suggested-courses", staffOrSelf, eligibilityHandler.SuggestedCourses)
	students.GET("/prerequisites/:courseId", staffOrSelf, eligibilityHandler.CheckPrerequisites)
	students.GET("/progression", staffOrSelf, studentHandler.Evaluate)
	students.POST("/progression", staff, studentHandler.Progress)
	students.POST("/level", staff, studentHandler.OverrideLevel)
	students.GET("/registrations", staffOrSelf, registrationHandler.ListForStudent)
	students.GET("/transcript", staffOrSelf, transcriptHandler.Get)
	students.GET("/attendance/:courseId", staffOrSelf, attendanceHandler.StudentRecord)
	students.GET("/quizzes/:quizId/submission", staffOrSelf, quizHandler.StudentSubmission)

	registrations := secured.Group("/registrations")
	registrations.POST("", registrationHandler.Register)
	registrations.POST("/:id/approve", staffOrInstructor, registrationHandler.Approve)
	registrations.POST("/:id/reject", staffOrInstructor, registrationHandler.Reject)
	registrations.POST("/:id/drop", registrationHandler.Drop)

	grades := secured.Group("/grades")
	grades.GET("", gradeHandler.List)
	grades.POST("", staffOrInstructor, gradeHandler.Record)

	quizzes := secured.Group("/quizzes")
	quizzes.GET("/:id", quizHandler.Get)
	quizzes.PUT("/:id", staffOrInstructor, quizHandler.Update)
	quizzes.DELETE("/:id", staffOrInstructor, quizHandler.Delete)
	quizzes.POST("/:id/submissions", quizHandler.Submit)
	quizzes.GET("/:id/submissions", staffOrInstructor, quizHandler.ListSubmissions)

	gpaRules := secured.Group("/gpa-rules")
	gpaRules.GET("", ruleHandler.ListGPARules)
	gpaRules.POST("", staff, ruleHandler.CreateGPARule)
	gpaRules.PUT("/:id", staff, ruleHandler.UpdateGPARule)
	gpaRules.DELETE("/:id", staff, ruleHandler.DeleteGPARule)

	progressions := secured.Group("/level-progressions")
	progressions.GET("", ruleHandler.ListLevelProgressions)
	progressions.POST("", staff, ruleHandler.CreateLevelProgression)
	progressions.DELETE("/:id", staff, ruleHandler.DeleteLevelProgression)

	notifications := secured.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkRead)
}
