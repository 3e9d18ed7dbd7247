package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/lingvo-api/internal/features/maintenance"
	"serotonyl.ru/lingvo-api/internal/features/streak"
	"serotonyl.ru/lingvo-api/internal/features/xp"
)

const (
	defaultActivityDays = 7
	maxActivityDays     = 90
)

type XPService interface {
	Award(ctx context.Context, sub xp.Submission) (*xp.Result, error)
	Progress(ctx context.Context, userID string) (*xp.Progress, error)
	Activity(ctx context.Context, userID string, days int) ([]xp.Activity, error)
}

type StreakService interface {
	Refresh(ctx context.Context, userID string) (streak.Outcome, error)
	Get(ctx context.Context, userID string) (*streak.State, error)
}

type MaintenanceService interface {
	RunDaily(ctx context.Context) (maintenance.Summary, error)
	RunWeekly(ctx context.Context) (int64, error)
}

type AdminAuthorizer interface {
	Authorize(client, password string) error
}

// Handler — обработчики REST API.
type Handler struct {
	xp          XPService
	streaks     StreakService
	maintenance MaintenanceService
	admin       AdminAuthorizer
	ping        func(ctx context.Context) error
}

func NewHandler(xpSvc XPService, streaks StreakService, m MaintenanceService, admin AdminAuthorizer, ping func(ctx context.Context) error) *Handler {
	return &Handler{xp: xpSvc, streaks: streaks, maintenance: m, admin: admin, ping: ping}
}

// SubmitAnswer — POST /api/v1/users/:userId/answers
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var sub xp.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sub.UserID = c.Param("userId")

	res, err := h.xp.Award(c.Request.Context(), sub)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, res)
}

// RefreshStreak — POST /api/v1/users/:userId/streak/refresh
func (h *Handler) RefreshStreak(c *gin.Context) {
	userID := c.Param("userId")
	outcome, err := h.streaks.Refresh(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	state, err := h.streaks.Get(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"outcome": outcome, "streak": state})
}

// GetProgress — GET /api/v1/users/:userId/progress
func (h *Handler) GetProgress(c *gin.Context) {
	p, err := h.xp.Progress(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, p)
}

// GetActivity — GET /api/v1/users/:userId/activity?days=N
func (h *Handler) GetActivity(c *gin.Context) {
	days := defaultActivityDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondError(c, http.StatusBadRequest, "invalid_days", errors.New("days должен быть положительным числом"))
			return
		}
		days = min(n, maxActivityDays)
	}

	rows, err := h.xp.Activity(c.Request.Context(), c.Param("userId"), days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if rows == nil {
		rows = []xp.Activity{}
	}
	RespondOK(c, gin.H{"days": days, "activity": rows})
}

// RunDaily — POST /api/v1/admin/maintenance/daily
func (h *Handler) RunDaily(c *gin.Context) {
	summary, err := h.maintenance.RunDaily(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, summary)
}

// RunWeekly — POST /api/v1/admin/maintenance/weekly
func (h *Handler) RunWeekly(c *gin.Context) {
	n, err := h.maintenance.RunWeekly(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"reset": n})
}

// Health — GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			RespondError(c, http.StatusServiceUnavailable, "unhealthy", err)
			return
		}
	}
	RespondOK(c, gin.H{"status": "ok"})
}

// requireAdmin пропускает запрос только с верным X-Admin-Password.
func (h *Handler) requireAdmin(c *gin.Context) {
	if err := h.admin.Authorize(c.ClientIP(), c.GetHeader("X-Admin-Password")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Next()
}
