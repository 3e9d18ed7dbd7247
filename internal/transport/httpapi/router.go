package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/lingvo-api/internal/transport/httpapi/middleware"
)

// RouterOptions — параметры роутера.
type RouterOptions struct {
	RequestTimeout time.Duration
	Limiter        *middleware.RateLimiter // nil — без ограничения частоты
}

// NewRouter собирает gin.Engine со всеми маршрутами.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestLogger())
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")

	users := api.Group("/users/:userId")
	submit := []gin.HandlerFunc{h.SubmitAnswer}
	if opts.Limiter != nil {
		submit = append([]gin.HandlerFunc{opts.Limiter.Middleware()}, submit...)
	}
	users.POST("/answers", submit...)
	users.POST("/streak/refresh", h.RefreshStreak)
	users.GET("/progress", h.GetProgress)
	users.GET("/activity", h.GetActivity)

	admin := api.Group("/admin", h.requireAdmin)
	admin.POST("/maintenance/daily", h.RunDaily)
	admin.POST("/maintenance/weekly", h.RunWeekly)

	return r
}
