package reminders

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/common"
)

// Store — хранилище напоминаний.
type Store interface {
	ListCandidates(ctx context.Context, c Criteria) ([]Candidate, error)
	Claim(ctx context.Context, userID, kind string, day time.Time) (bool, error)
	Release(ctx context.Context, userID, kind string, day time.Time) error
}

// Service рассылает напоминания о стрике.
type Service struct {
	store         Store
	mailer        Mailer
	minStreak     int
	inactiveAfter time.Duration
	now           func() time.Time
}

// NewService создаёт сервис напоминаний.
func NewService(store Store, mailer Mailer, minStreak int, inactiveHours int) *Service {
	return &Service{
		store:         store,
		mailer:        mailer,
		minStreak:     minStreak,
		inactiveAfter: time.Duration(inactiveHours) * time.Hour,
		now:           time.Now,
	}
}

// WithClock подменяет часы (для тестов).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SendStreakReminders отправляет по одному напоминанию в день каждому,
// у кого серия >= порога, сегодня ещё не засчитана и давно не было активности.
// Запускается кроном каждый час. Возвращает число отправленных писем.
func (s *Service) SendStreakReminders(ctx context.Context) (int, error) {
	now := s.now()
	today := common.DayStart(now)

	candidates, err := s.store.ListCandidates(ctx, Criteria{
		MinStreak:     s.minStreak,
		Yesterday:     common.Yesterday(today),
		InactiveSince: now.Add(-s.inactiveAfter),
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		// Сначала занимаем слот, потом шлём: два экземпляра не отправят дважды
		claimed, err := s.store.Claim(ctx, c.UserID, KindStreak, today)
		if err != nil {
			log.WithError(err).WithField("user_id", c.UserID).Error("Ошибка записи напоминания")
			continue
		}
		if !claimed {
			continue
		}

		if err := s.mailer.Send(ctx, streakMessage(c)); err != nil {
			log.WithError(err).WithField("user_id", c.UserID).Warn("Не удалось отправить напоминание")
			if err := s.store.Release(ctx, c.UserID, KindStreak, today); err != nil {
				log.WithError(err).WithField("user_id", c.UserID).Error("Не удалось освободить слот напоминания")
			}
			continue
		}
		sent++
	}

	if sent > 0 {
		log.WithField("sent", sent).Info("Напоминания о стрике отправлены")
	}
	return sent, nil
}

func streakMessage(c Candidate) Message {
	name := c.DisplayName
	if name == "" {
		name = "Привет"
	}
	days := fmt.Sprintf("%d %s", c.CurrentStreak, common.PluralizeDays(c.CurrentStreak))
	return Message{
		To:      c.Email,
		Subject: fmt.Sprintf("Серия %s под угрозой", days),
		Body: fmt.Sprintf(
			"%s!\n\nТвоя серия занятий: %s подряд. Ответь хотя бы на один вопрос сегодня, чтобы её сохранить.\n\nНакоплено: %s.\n",
			name, days, common.FormatXP(c.TotalXP),
		),
	}
}
