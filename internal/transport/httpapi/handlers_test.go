package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lingvo-api/internal/common"
	"serotonyl.ru/lingvo-api/internal/features/admin"
	"serotonyl.ru/lingvo-api/internal/features/maintenance"
	"serotonyl.ru/lingvo-api/internal/features/questions"
	"serotonyl.ru/lingvo-api/internal/features/streak"
	"serotonyl.ru/lingvo-api/internal/features/xp"
	"serotonyl.ru/lingvo-api/internal/infra/memory"
	"serotonyl.ru/lingvo-api/internal/transport/httpapi"
	"serotonyl.ru/lingvo-api/internal/transport/httpapi/middleware"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type testEnv struct {
	store  *memory.Store
	router *gin.Engine
}

func newEnv(t *testing.T, adminHash string, limiter *middleware.RateLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore(true)
	streaks := streak.NewService(store, streak.DefaultGracePeriod).WithClock(clock)
	xpSvc := xp.NewService(store, questions.NewMemoryCatalog(store, time.Minute), streaks, 30).WithClock(clock)
	h := httpapi.NewHandler(xpSvc, streaks, maintenance.NewService(store, streaks), admin.NewService(adminHash), nil)

	return &testEnv{
		store:  store,
		router: httpapi.NewRouter(h, httpapi.RouterOptions{RequestTimeout: time.Second, Limiter: limiter}),
	}
}

func (e *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func yesterday() *time.Time {
	d := common.Yesterday(common.DayStart(now))
	return &d
}

func TestSubmitAnswer(t *testing.T) {
	env := newEnv(t, "", nil)
	env.store.AddQuestion("q1", questions.GameMetadata{PointsValue: 80, DifficultyMultiplier: 1.2, TimeLimit: 20})
	env.store.AddUser(memory.User{ID: "u1", CurrentStreak: 2, LongestStreak: 2, LastStreakDate: yesterday()})

	w := env.do(http.MethodPost, "/api/v1/users/u1/answers", map[string]any{
		"questionId": "q1", "isCorrect": true, "timeSpent": 5,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[map[string]any](t, w)
	assert.EqualValues(t, 138, res["xpAwarded"])
	assert.EqualValues(t, 138, res["totalXP"])
	assert.EqualValues(t, 3, res["currentStreak"])
	assert.Equal(t, true, res["streakBonus"])
	assert.Equal(t, true, res["timeBonus"])
	assert.Equal(t, true, res["levelUp"])
	assert.EqualValues(t, 0, res["oldLevel"])
	assert.EqualValues(t, 1, res["newLevel"])
}

func TestSubmitAnswerFractionalTime(t *testing.T) {
	env := newEnv(t, "", nil)
	env.store.AddQuestion("q1", questions.GameMetadata{PointsValue: 10, DifficultyMultiplier: 1})
	env.store.AddUser(memory.User{ID: "u1"})

	w := env.do(http.MethodPost, "/api/v1/users/u1/answers", map[string]any{
		"questionId": "q1", "isCorrect": true, "timeSpent": 14.6, "timeLimit": 30.0,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[map[string]any](t, w)
	assert.Equal(t, true, res["timeBonus"])
	assert.EqualValues(t, 12, res["xpAwarded"])
}

func TestSubmitAnswerErrors(t *testing.T) {
	env := newEnv(t, "", nil)
	env.store.AddQuestion("q1", questions.GameMetadata{PointsValue: 10, DifficultyMultiplier: 1})
	env.store.AddUser(memory.User{ID: "u1"})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"нет questionId", "/api/v1/users/u1/answers", map[string]any{"isCorrect": true}, http.StatusBadRequest, "invalid_request"},
		{"неизвестный вопрос", "/api/v1/users/u1/answers", map[string]any{"questionId": "nope", "isCorrect": true}, http.StatusNotFound, "question_not_found"},
		{"неизвестный пользователь", "/api/v1/users/ghost/answers", map[string]any{"questionId": "q1", "isCorrect": true}, http.StatusNotFound, "user_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, w.Code)
			body := decode[httpapi.ErrorEnvelope](t, w)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestSubmitAnswerRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Close()
	env := newEnv(t, "", limiter)
	env.store.AddQuestion("q1", questions.GameMetadata{PointsValue: 10, DifficultyMultiplier: 1})
	env.store.AddUser(memory.User{ID: "u1"})

	body := map[string]any{"questionId": "q1", "isCorrect": false}
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/users/u1/answers", body, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(http.MethodPost, "/api/v1/users/u1/answers", body, nil).Code)
}

func TestRefreshStreak(t *testing.T) {
	env := newEnv(t, "", nil)
	env.store.AddUser(memory.User{ID: "u1", CurrentStreak: 4, LongestStreak: 6, LastStreakDate: yesterday()})

	w := env.do(http.MethodPost, "/api/v1/users/u1/streak/refresh", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Outcome string       `json:"outcome"`
		Streak  streak.State `json:"streak"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "advanced", body.Outcome)
	assert.Equal(t, 5, body.Streak.CurrentStreak)
	assert.Equal(t, 6, body.Streak.LongestStreak)
}

func TestGetProgressAndActivity(t *testing.T) {
	env := newEnv(t, "", nil)
	env.store.AddQuestion("q1", questions.GameMetadata{PointsValue: 10, DifficultyMultiplier: 1, TimeLimit: 30})
	env.store.AddUser(memory.User{ID: "u1", TotalXP: 90})

	w := env.do(http.MethodPost, "/api/v1/users/u1/answers", map[string]any{"questionId": "q1", "isCorrect": true, "timeSpent": 30}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/users/u1/progress", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[xp.Progress](t, w)
	assert.EqualValues(t, 100, p.TotalXP)
	assert.Equal(t, 1, p.Level)
	assert.EqualValues(t, 200, p.XPToNextLevel)

	w = env.do(http.MethodGet, "/api/v1/users/u1/activity?days=500", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var activity struct {
		Days     int           `json:"days"`
		Activity []xp.Activity `json:"activity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &activity))
	assert.Equal(t, 90, activity.Days)
	require.Len(t, activity.Activity, 1)
	assert.EqualValues(t, 10, activity.Activity[0].XPEarned)

	w = env.do(http.MethodGet, "/api/v1/users/u1/activity?days=zero", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminMaintenance(t *testing.T) {
	hash, err := admin.HashPassword("s3cret")
	require.NoError(t, err)
	env := newEnv(t, hash, nil)
	env.store.AddUser(memory.User{ID: "u1", DailyXP: 20, WeeklyXP: 40})

	w := env.do(http.MethodPost, "/api/v1/admin/maintenance/daily", nil, map[string]string{"X-Admin-Password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/v1/admin/maintenance/daily", nil, map[string]string{"X-Admin-Password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[maintenance.Summary](t, w)
	assert.Equal(t, 1, summary.Processed)
	assert.EqualValues(t, 1, summary.DailyReset)

	w = env.do(http.MethodPost, "/api/v1/admin/maintenance/weekly", nil, map[string]string{"X-Admin-Password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	u, _ := env.store.User("u1")
	assert.EqualValues(t, 0, u.WeeklyXP)
}

func TestAdminDisabled(t *testing.T) {
	env := newEnv(t, "", nil)
	w := env.do(http.MethodPost, "/api/v1/admin/maintenance/daily", nil, map[string]string{"X-Admin-Password": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type failingXP struct{ httpapi.XPService }

func (failingXP) Progress(context.Context, string) (*xp.Progress, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func TestStorageFailureIsRetryable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := httpapi.NewHandler(failingXP{}, nil, nil, admin.NewService(""), nil)
	r := httpapi.NewRouter(h, httpapi.RouterOptions{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/progress", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5", "детали инфраструктуры не уходят клиенту")
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := httpapi.NewHandler(nil, nil, nil, admin.NewService(""), func(context.Context) error { return errors.New("down") })
	r := httpapi.NewRouter(h, httpapi.RouterOptions{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
