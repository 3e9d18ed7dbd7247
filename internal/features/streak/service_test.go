package streak_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lingvo-api/internal/common"
	"serotonyl.ru/lingvo-api/internal/features/streak"
	"serotonyl.ru/lingvo-api/internal/infra/memory"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := common.DayStart(now).AddDate(0, 0, offset)
	return &d
}

func newService(store *memory.Store) *streak.Service {
	return streak.NewService(store, streak.DefaultGracePeriod).WithClock(func() time.Time { return now })
}

func TestRefreshAdvancesFromYesterday(t *testing.T) {
	store := memory.NewStore(true)
	id := store.AddUser(memory.User{CurrentStreak: 4, LongestStreak: 4, LastStreakDate: day(-1)})

	outcome, err := newService(store).Refresh(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, streak.OutcomeAdvanced, outcome)

	u, _ := store.User(id)
	assert.Equal(t, 5, u.CurrentStreak)
	assert.Equal(t, 5, u.LongestStreak)
	assert.Equal(t, *day(0), *u.LastStreakDate)
}

func TestRefreshSameDayIsNoop(t *testing.T) {
	store := memory.NewStore(true)
	id := store.AddUser(memory.User{CurrentStreak: 2, LongestStreak: 7, LastStreakDate: day(0)})
	svc := newService(store)

	for i := 0; i < 3; i++ {
		outcome, err := svc.Refresh(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, streak.OutcomeUnchanged, outcome)
	}

	u, _ := store.User(id)
	assert.Equal(t, 2, u.CurrentStreak)
	assert.Equal(t, 7, u.LongestStreak)
}

func TestRefreshResetsAfterGap(t *testing.T) {
	store := memory.NewStore(true)
	id := store.AddUser(memory.User{CurrentStreak: 9, LongestStreak: 9, LastStreakDate: day(-3)})

	outcome, err := newService(store).Refresh(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, streak.OutcomeReset, outcome)

	u, _ := store.User(id)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, 9, u.LongestStreak, "рекорд не уменьшается")
	assert.Equal(t, *day(0), *u.LastStreakDate)
}

func TestRefreshNewUserStartsAtOne(t *testing.T) {
	store := memory.NewStore(true)
	id := store.AddUser(memory.User{})

	outcome, err := newService(store).Refresh(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, streak.OutcomeReset, outcome)

	u, _ := store.User(id)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, 1, u.LongestStreak)
}

func TestRefreshUnknownUser(t *testing.T) {
	_, err := newService(memory.NewStore(true)).Refresh(context.Background(), "nobody")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestRefreshConcurrentSameDayAdvancesOnce(t *testing.T) {
	store := memory.NewStore(true)
	id := store.AddUser(memory.User{CurrentStreak: 3, LongestStreak: 3, LastStreakDate: day(-1)})
	svc := newService(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background(), id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, _ := store.User(id)
	assert.Equal(t, 4, u.CurrentStreak)
	assert.Equal(t, 4, u.LongestStreak)
}

func TestBreakCheck(t *testing.T) {
	tests := []struct {
		name        string
		user        memory.User
		wantOutcome streak.Outcome
		wantStreak  int
	}{
		{"занимался вчера", memory.User{CurrentStreak: 5, LastStreakDate: day(-1)}, streak.OutcomeUnchanged, 5},
		{"занимался сегодня", memory.User{CurrentStreak: 5, LastStreakDate: day(0)}, streak.OutcomeUnchanged, 5},
		{"пропустил день", memory.User{CurrentStreak: 5, LastStreakDate: day(-2)}, streak.OutcomeBroken, 0},
		{"серии нет", memory.User{CurrentStreak: 0, LastStreakDate: day(-10)}, streak.OutcomeUnchanged, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore(true)
			tt.user.LongestStreak = tt.user.CurrentStreak
			id := store.AddUser(tt.user)
			svc := newService(store)

			outcome, err := svc.BreakCheck(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, outcome)

			// Повторный прогон ничего не меняет
			_, err = svc.BreakCheck(context.Background(), id)
			require.NoError(t, err)

			u, _ := store.User(id)
			assert.Equal(t, tt.wantStreak, u.CurrentStreak)
			assert.Equal(t, tt.user.LongestStreak, u.LongestStreak)
		})
	}
}

func TestBreakCheckThenActivityStartsNewStreak(t *testing.T) {
	store := memory.NewStore(true)
	id := store.AddUser(memory.User{CurrentStreak: 6, LongestStreak: 6, LastStreakDate: day(-3)})
	svc := newService(store)

	_, err := svc.BreakCheck(context.Background(), id)
	require.NoError(t, err)
	outcome, err := svc.Refresh(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, streak.OutcomeReset, outcome)

	u, _ := store.User(id)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, 6, u.LongestStreak)
}
