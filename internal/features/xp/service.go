package xp

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/common"
	"serotonyl.ru/lingvo-api/internal/features/questions"
	"serotonyl.ru/lingvo-api/internal/features/streak"
)

// DefaultTimeLimit — лимит времени, если его нет ни у вопроса, ни у попытки.
const DefaultTimeLimit = 30

// Store — хранилище XP.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	TouchActivity(ctx context.Context, userID string, at time.Time) error
	GetTotals(ctx context.Context, userID string) (*Totals, error)
	ListActivity(ctx context.Context, userID string, since time.Time) ([]Activity, error)
}

// Tx — операции внутри единицы работы начисления.
type Tx interface {
	LockUser(ctx context.Context, userID string) (*Totals, error)
	AddXP(ctx context.Context, userID string, amount int64, at time.Time) (int64, error)
	UpsertActivity(ctx context.Context, userID string, day time.Time, xp int64) error
	Ledger() AwardLedger
}

// Catalog отдаёт метаданные вопроса.
type Catalog interface {
	GameMetadata(ctx context.Context, questionID string) (questions.GameMetadata, error)
}

// StreakRefresher засчитывает сегодняшний день в стрик.
type StreakRefresher interface {
	Refresh(ctx context.Context, userID string) (streak.Outcome, error)
}

// Service — движок начисления XP.
type Service struct {
	store        Store
	catalog      Catalog
	streaks      StreakRefresher
	defaultLimit int
	now          func() time.Time
}

// NewService создаёт новый сервис XP.
func NewService(store Store, catalog Catalog, streaks StreakRefresher, defaultLimit int) *Service {
	if defaultLimit < 1 {
		defaultLimit = DefaultTimeLimit
	}
	return &Service{
		store:        store,
		catalog:      catalog,
		streaks:      streaks,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// WithClock подменяет часы (для тестов).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Award обрабатывает попытку ответа.
//
// Любая попытка продлевает стрик. Неверный ответ только отмечает активность.
// Верный ответ начисляет XP одной транзакцией: блокировка строки,
// проверка реестра, инкременты счётчиков, журнал активности, запись в реестр.
func (s *Service) Award(ctx context.Context, sub Submission) (*Result, error) {
	if !sub.IsCorrect {
		return s.recordAttempt(ctx, sub)
	}

	// До любых записей: неизвестный вопрос не должен трогать стрик
	meta, err := s.catalog.GameMetadata(ctx, sub.QuestionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.streaks.Refresh(ctx, sub.UserID); err != nil {
		return nil, err
	}

	now := s.now()
	var result *Result

	err = s.store.WithinTx(ctx, func(tx Tx) error {
		totals, err := tx.LockUser(ctx, sub.UserID)
		if err != nil {
			return err
		}

		ledger := tx.Ledger()
		awarded, err := ledger.Has(ctx, sub.UserID, sub.QuestionID)
		if err != nil {
			log.WithError(err).WithField("user_id", sub.UserID).Warn("Реестр начислений недоступен, проверка пропущена")
			awarded = false
		}
		if awarded {
			level := LevelFor(totals.TotalXP)
			result = &Result{
				TotalXP:       totals.TotalXP,
				CurrentStreak: totals.CurrentStreak,
				OldLevel:      level,
				NewLevel:      level,
			}
			return nil
		}

		limit := SafeTimeLimit(meta.TimeLimit, sub.TimeLimit, s.defaultLimit)
		b := Calculate(meta.PointsValue, meta.DifficultyMultiplier, totals.CurrentStreak, sub.TimeSpent, limit)

		newTotal, err := tx.AddXP(ctx, sub.UserID, b.Final, now)
		if err != nil {
			return err
		}
		if err := tx.UpsertActivity(ctx, sub.UserID, common.DayStart(now), b.Final); err != nil {
			return err
		}

		// Реестр best-effort: сбой записи не откатывает начисление
		if err := ledger.Record(ctx, Award{
			UserID:     sub.UserID,
			QuestionID: sub.QuestionID,
			XPAwarded:  b.Final,
			AwardedAt:  now,
		}); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"user_id":     sub.UserID,
				"question_id": sub.QuestionID,
			}).Warn("Не удалось записать начисление в реестр")
		}

		oldLevel := LevelFor(newTotal - b.Final)
		newLevel := LevelFor(newTotal)
		result = &Result{
			XPAwarded:     b.Final,
			TotalXP:       newTotal,
			CurrentStreak: totals.CurrentStreak,
			StreakBonus:   b.StreakMultiplier > 1,
			TimeBonus:     b.TimeMultiplier > 1,
			LevelUp:       newLevel > oldLevel,
			OldLevel:      oldLevel,
			NewLevel:      newLevel,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.XPAwarded > 0 {
		log.WithFields(log.Fields{
			"user_id":     sub.UserID,
			"question_id": sub.QuestionID,
			"xp":          result.XPAwarded,
			"total":       result.TotalXP,
			"level_up":    result.LevelUp,
		}).Info("Начислен XP")
	}
	return result, nil
}

// recordAttempt — неверный ответ: стрик и отметка активности, без XP.
func (s *Service) recordAttempt(ctx context.Context, sub Submission) (*Result, error) {
	if _, err := s.streaks.Refresh(ctx, sub.UserID); err != nil {
		return nil, err
	}
	if err := s.store.TouchActivity(ctx, sub.UserID, s.now()); err != nil {
		return nil, err
	}

	totals, err := s.store.GetTotals(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	level := LevelFor(totals.TotalXP)
	return &Result{
		TotalXP:       totals.TotalXP,
		CurrentStreak: totals.CurrentStreak,
		OldLevel:      level,
		NewLevel:      level,
	}, nil
}

// Progress возвращает уровень и счётчики пользователя.
func (s *Service) Progress(ctx context.Context, userID string) (*Progress, error) {
	totals, err := s.store.GetTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Progress{
		UserID:        userID,
		TotalXP:       totals.TotalXP,
		DailyXP:       totals.DailyXP,
		WeeklyXP:      totals.WeeklyXP,
		Level:         LevelFor(totals.TotalXP),
		CurrentStreak: totals.CurrentStreak,
		LongestStreak: totals.LongestStreak,
	}
	if next, ok := NextThreshold(totals.TotalXP); ok {
		p.NextLevelXP = next
		p.XPToNextLevel = next - totals.TotalXP
	}
	return p, nil
}

// Activity возвращает журнал за последние days дней, включая сегодня.
func (s *Service) Activity(ctx context.Context, userID string, days int) ([]Activity, error) {
	if _, err := s.store.GetTotals(ctx, userID); err != nil {
		return nil, err
	}
	since := common.Today(s.now).AddDate(0, 0, -(days - 1))
	return s.store.ListActivity(ctx, userID, since)
}
