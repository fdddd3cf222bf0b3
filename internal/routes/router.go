// internal/routes/router.go
package routes

import (
	"log/slog"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/attendance"
	"github.com/JudeDesigns/attendance-sub000/internal/handlers"
	"github.com/JudeDesigns/attendance-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Options struct {
	JWTSecret string
	Logger    *slog.Logger
	Location  *time.Location
	// DB backs the health check. Nil skips the database ping.
	DB *gorm.DB
}

func NewRouter(svc *attendance.Service, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	healthH := handlers.NewHealthHandler(opts.DB)
	attH := handlers.NewAttendanceHandler(svc, logger, opts.Location)
	adminH := handlers.NewAdminHandler(svc, logger)

	r.GET("/health", healthH.Health)

	att := r.Group("/api/v1/attendance")
	att.Use(middleware.AuthRequired(opts.JWTSecret))
	{
		att.POST("/clock-in", attH.ClockIn)
		att.POST("/clock-out", attH.ClockOut)
		att.POST("/breaks/start", attH.StartBreak)
		att.POST("/breaks/end", attH.EndBreak)
		att.POST("/breaks/waive", attH.WaiveBreak)
		att.POST("/breaks/reject-reminder", attH.RejectReminder)
		att.GET("/breaks/status", attH.BreakStatus)
		att.GET("/compliance", attH.Compliance)
		att.GET("/sessions/current", attH.CurrentSession)
	}

	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthRequired(opts.JWTSecret), middleware.RequireAdmin())
	{
		admin.GET("/stuck-sessions", adminH.ListStuckSessions)
		admin.POST("/stuck-sessions/sweep", adminH.SweepStuckSessions)
		admin.POST("/break-reminders/sweep", adminH.SweepBreakReminders)
	}

	return r
}
