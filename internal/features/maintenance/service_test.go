package maintenance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lingvo-api/internal/common"
	"serotonyl.ru/lingvo-api/internal/features/maintenance"
	"serotonyl.ru/lingvo-api/internal/features/streak"
	"serotonyl.ru/lingvo-api/internal/infra/memory"
)

var now = time.Date(2026, 3, 10, 0, 0, 5, 0, time.UTC)

func day(offset int) *time.Time {
	d := common.DayStart(now).AddDate(0, 0, offset)
	return &d
}

func newService(store *memory.Store) *maintenance.Service {
	streaks := streak.NewService(store, streak.DefaultGracePeriod).WithClock(func() time.Time { return now })
	return maintenance.NewService(store, streaks)
}

func TestRunDaily(t *testing.T) {
	store := memory.NewStore(true)
	active := store.AddUser(memory.User{ID: "active", DailyXP: 50, WeeklyXP: 200, CurrentStreak: 4, LongestStreak: 4, LastStreakDate: day(-1)})
	stale := store.AddUser(memory.User{ID: "stale", DailyXP: 0, CurrentStreak: 7, LongestStreak: 9, LastStreakDate: day(-3)})
	fresh := store.AddUser(memory.User{ID: "fresh"})

	summary, err := newService(store).RunDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Broken)
	assert.EqualValues(t, 1, summary.DailyReset)
	assert.Empty(t, summary.Errors)

	u, _ := store.User(active)
	assert.Equal(t, 4, u.CurrentStreak, "вчерашняя активность не даёт лишний день")
	assert.EqualValues(t, 0, u.DailyXP)
	assert.EqualValues(t, 200, u.WeeklyXP)

	u, _ = store.User(stale)
	assert.Equal(t, 0, u.CurrentStreak)
	assert.Equal(t, 9, u.LongestStreak)

	u, _ = store.User(fresh)
	assert.Equal(t, 0, u.CurrentStreak)
}

func TestRunDailyIsIdempotent(t *testing.T) {
	store := memory.NewStore(true)
	id := store.AddUser(memory.User{DailyXP: 10, CurrentStreak: 3, LongestStreak: 3, LastStreakDate: day(-2)})
	svc := newService(store)

	_, err := svc.RunDaily(context.Background())
	require.NoError(t, err)
	before, _ := store.User(id)

	second, err := svc.RunDaily(context.Background())
	require.NoError(t, err)
	after, _ := store.User(id)

	assert.Equal(t, before, after)
	assert.Equal(t, 0, second.Broken)
	assert.EqualValues(t, 0, second.DailyReset)
}

type flakyChecker struct {
	failFor string
	inner   maintenance.BreakChecker
}

func (f flakyChecker) BreakCheck(ctx context.Context, userID string) (streak.Outcome, error) {
	if userID == f.failFor {
		return "", errors.New("connection reset")
	}
	return f.inner.BreakCheck(ctx, userID)
}

func TestRunDailyCollectsPerUserErrors(t *testing.T) {
	store := memory.NewStore(true)
	store.AddUser(memory.User{ID: "a", DailyXP: 5})
	store.AddUser(memory.User{ID: "b", DailyXP: 5, CurrentStreak: 2, LongestStreak: 2, LastStreakDate: day(-5)})

	streaks := streak.NewService(store, streak.DefaultGracePeriod).WithClock(func() time.Time { return now })
	svc := maintenance.NewService(store, flakyChecker{failFor: "a", inner: streaks})

	summary, err := svc.RunDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "a", summary.Errors[0].UserID)
	assert.Equal(t, "connection reset", summary.Errors[0].Error)
	assert.Equal(t, 1, summary.Broken)
	assert.EqualValues(t, 2, summary.DailyReset, "сброс daily_xp идёт несмотря на ошибки")
}

func TestRunWeekly(t *testing.T) {
	store := memory.NewStore(true)
	id := store.AddUser(memory.User{DailyXP: 5, WeeklyXP: 70})
	store.AddUser(memory.User{})

	n, err := newService(store).RunWeekly(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	u, _ := store.User(id)
	assert.EqualValues(t, 0, u.WeeklyXP)
	assert.EqualValues(t, 5, u.DailyXP)
}
