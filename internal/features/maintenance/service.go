// Package maintenance — ночные и недельные работы над счётчиками пользователей.
package maintenance

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/common"
	"serotonyl.ru/lingvo-api/internal/features/streak"
)

// Store — массовые операции над пользователями.
type Store interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	ResetDailyXP(ctx context.Context) (int64, error)
	ResetWeeklyXP(ctx context.Context) (int64, error)
}

// BreakChecker — проверка разрыва стрика.
type BreakChecker interface {
	BreakCheck(ctx context.Context, userID string) (streak.Outcome, error)
}

// UserError — ошибка обработки одного пользователя.
type UserError struct {
	UserID string `json:"userId"`
	Error  string `json:"error"`
}

// Summary — итог ночного прогона.
type Summary struct {
	Processed  int         `json:"processed"`
	Broken     int         `json:"broken"`
	DailyReset int64       `json:"dailyReset"`
	Errors     []UserError `json:"errors"`
	StartedAt  time.Time   `json:"startedAt"`
	Duration   string      `json:"duration"`
}

// Service — ночное обслуживание.
type Service struct {
	store   Store
	streaks BreakChecker
	now     func() time.Time
}

// NewService создаёт новый сервис обслуживания.
func NewService(store Store, streaks BreakChecker) *Service {
	return &Service{store: store, streaks: streaks, now: time.Now}
}

// RunDaily — ночной прогон:
//  1. каждому пользователю проверка разрыва стрика (ошибки копим, не прерываемся)
//  2. обнуление daily_xp у всех
//
// Повторный запуск в те же сутки ничего не меняет.
func (s *Service) RunDaily(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: s.now(), Errors: []UserError{}}

	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("ошибка получения пользователей: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := s.streaks.BreakCheck(ctx, id)
		summary.Processed++
		if err != nil {
			log.WithError(err).WithField("user_id", id).Error("Ошибка проверки стрика")
			summary.Errors = append(summary.Errors, UserError{UserID: id, Error: err.Error()})
			continue
		}
		if outcome == streak.OutcomeBroken {
			summary.Broken++
		}
	}

	reset, err := s.store.ResetDailyXP(ctx)
	if err != nil {
		return summary, fmt.Errorf("ошибка сброса daily_xp: %w", err)
	}
	summary.DailyReset = reset
	summary.Duration = s.now().Sub(summary.StartedAt).String()

	log.WithFields(log.Fields{
		"processed": summary.Processed,
		"broken":    summary.Broken,
		"errors":    len(summary.Errors),
		"reset":     reset,
	}).Info("Ночное обслуживание завершено")
	return summary, nil
}

// RunWeekly обнуляет weekly_xp. Возвращает число затронутых строк.
func (s *Service) RunWeekly(ctx context.Context) (int64, error) {
	n, err := s.store.ResetWeeklyXP(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка сброса weekly_xp: %w", err)
	}
	log.WithFields(log.Fields{
		"reset": n,
		"week":  common.WeekStart(s.now()).Format("2006-01-02"),
	}).Info("Недельные счётчики обнулены")
	return n, nil
}
