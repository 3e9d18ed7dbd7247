// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночное обслуживание, недельный сброс
// и ежечасные напоминания о стрике.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/features/maintenance"
)

// Maintenance — ночные и недельные работы.
type Maintenance interface {
	RunDaily(ctx context.Context) (maintenance.Summary, error)
	RunWeekly(ctx context.Context) (int64, error)
}

// Reminders — рассылка напоминаний.
type Reminders interface {
	SendStreakReminders(ctx context.Context) (int, error)
}

// Schedule — cron-выражения задач. Пустое выражение = задача выключена.
type Schedule struct {
	Daily     string
	Weekly    string
	Reminders string
	Timezone  string
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron        *cron.Cron
	schedule    Schedule
	maintenance Maintenance
	reminders   Reminders // nil — напоминания выключены
}

// NewScheduler создаёт планировщик задач в указанном часовом поясе.
func NewScheduler(schedule Schedule, m Maintenance, r Reminders) *Scheduler {
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC", schedule.Timezone)
		loc = time.UTC
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		schedule:    schedule,
		maintenance: m,
		reminders:   r,
	}
}

// Start регистрирует и запускает все фоновые задачи.
// Задачи получают ctx: его отмена прерывает текущий прогон.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.add(s.schedule.Daily, func() {
		log.Info("[CRON] Ночное обслуживание")
		if _, err := s.maintenance.RunDaily(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка ночного обслуживания")
		}
	}); err != nil {
		return err
	}

	if err := s.add(s.schedule.Weekly, func() {
		log.Info("[CRON] Недельный сброс")
		if _, err := s.maintenance.RunWeekly(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка недельного сброса")
		}
	}); err != nil {
		return err
	}

	if s.reminders != nil {
		if err := s.add(s.schedule.Reminders, func() {
			log.Debug("[CRON] Проверка напоминаний")
			if _, err := s.reminders.SendStreakReminders(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка напоминаний")
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Infof("Планировщик задач запущен (%s)", s.cron.Location())
	return nil
}

func (s *Scheduler) add(spec string, fn func()) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("некорректное расписание %q: %w", spec, err)
	}
	return nil
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
