// Package streak — service.go содержит бизнес-логику стриков:
// ежедневное продление при активности и ночную проверку разрывов.
package streak

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/common"
)

// DefaultGracePeriod — допуск сверх «ровно вчера» на рассинхрон часов и поясов.
const DefaultGracePeriod = 26 * time.Hour

// Store — операции хранилища, нужные движку стриков.
type Store interface {
	GetState(ctx context.Context, userID string) (*State, error)
	AdvanceStreak(ctx context.Context, userID string, today time.Time) (bool, error)
	ResetStreak(ctx context.Context, userID string, today time.Time) error
	BreakStreak(ctx context.Context, userID string, cutoff time.Time) (bool, error)
}

// Service управляет стрик-системой.
type Service struct {
	store Store
	grace time.Duration
	now   func() time.Time
}

// NewService создаёт новый сервис стриков.
func NewService(store Store, grace time.Duration) *Service {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Service{store: store, grace: grace, now: time.Now}
}

// WithClock подменяет часы (для тестов).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get возвращает текущий стрик пользователя.
func (s *Service) Get(ctx context.Context, userID string) (*State, error) {
	return s.store.GetState(ctx, userID)
}

// Refresh засчитывает сегодняшний день в стрик.
//
// Алгоритм:
//  1. Загружаем last_streak_date (нет пользователя — ErrUserNotFound)
//  2. Сегодня уже засчитан — ничего не делаем
//  3. Вчера или в пределах grace — условное +1 (0 строк = гонку выиграл другой вызов, это успех)
//  4. Иначе — серия начинается заново с 1
//
// Ошибки хранилища не ретраим, их повторяет вызывающий.
func (s *Service) Refresh(ctx context.Context, userID string) (Outcome, error) {
	state, err := s.store.GetState(ctx, userID)
	if err != nil {
		return "", err
	}

	now := s.now()
	today := common.DayStart(now)

	switch decide(state.LastStreakDate, now, s.grace) {
	case actionNone:
		return OutcomeUnchanged, nil

	case actionAdvance:
		advanced, err := s.store.AdvanceStreak(ctx, userID, today)
		if err != nil {
			return "", err
		}
		if !advanced {
			log.WithField("user_id", userID).Debug("Стрик уже продлён параллельным запросом")
			return OutcomeRaced, nil
		}
		log.WithFields(log.Fields{
			"user_id": userID,
			"day":     state.CurrentStreak + 1,
		}).Debug("Стрик продлён")
		return OutcomeAdvanced, nil

	default:
		if err := s.store.ResetStreak(ctx, userID, today); err != nil {
			return "", err
		}
		log.WithFields(log.Fields{
			"user_id":  userID,
			"previous": state.CurrentStreak,
		}).Debug("Стрик начат заново")
		return OutcomeReset, nil
	}
}

// BreakCheck — ночная проверка: обнуляет серию, если ни сегодня, ни вчера
// (с учётом grace) активности не было. Серию не продлевает — продление
// бывает только от реальной активности через Refresh.
func (s *Service) BreakCheck(ctx context.Context, userID string) (Outcome, error) {
	state, err := s.store.GetState(ctx, userID)
	if err != nil {
		return "", err
	}
	if state.CurrentStreak == 0 {
		return OutcomeUnchanged, nil
	}

	now := s.now()
	if decide(state.LastStreakDate, now, s.grace) != actionReset {
		return OutcomeUnchanged, nil
	}

	broken, err := s.store.BreakStreak(ctx, userID, common.Yesterday(common.DayStart(now)))
	if err != nil {
		return "", err
	}
	if !broken {
		return OutcomeUnchanged, nil
	}
	log.WithFields(log.Fields{
		"user_id":  userID,
		"previous": state.CurrentStreak,
	}).Info("Стрик прерван")
	return OutcomeBroken, nil
}
