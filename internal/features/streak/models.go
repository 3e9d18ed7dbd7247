// Package streak управляет системой ежедневных стриков (серий).
// models.go описывает состояние стрика и исходы его обновления.
package streak

import (
	"time"

	"serotonyl.ru/lingvo-api/internal/common"
)

// State — стрик-поля строки users.
// Стрик растёт на 1 за каждый календарный день (UTC), в который ученик
// хотя бы раз ответил на вопрос (верно или нет).
type State struct {
	UserID         string     `db:"id" json:"userId"`
	CurrentStreak  int        `db:"current_streak" json:"currentStreak"`
	LongestStreak  int        `db:"longest_streak" json:"longestStreak"`
	LastStreakDate *time.Time `db:"last_streak_date" json:"lastStreakDate,omitempty"` // Полночь UTC последнего засчитанного дня
	LastActivityAt *time.Time `db:"last_activity_at" json:"lastActivityAt,omitempty"` // Последняя попытка ответа
}

// Outcome — что сделал Refresh со стриком.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged" // Сегодня уже засчитан
	OutcomeAdvanced  Outcome = "advanced"  // +1 день
	OutcomeRaced     Outcome = "raced"     // Параллельный вызов уже продвинул стрик
	OutcomeReset     Outcome = "reset"     // Разрыв, серия начата заново
	OutcomeBroken    Outcome = "broken"    // Ночная проверка обнулила серию
)

// action — решение по дате последнего засчитанного дня.
type action int

const (
	actionNone action = iota
	actionAdvance
	actionReset
)

// decide классифицирует lastStreakDate относительно now.
//
//   - тот же день           → ничего
//   - вчера или ≤ grace     → условное +1
//   - иначе (или даты нет)  → жёсткий сброс на 1
func decide(last *time.Time, now time.Time, grace time.Duration) action {
	if last == nil {
		return actionReset
	}
	if common.SameDay(*last, now) {
		return actionNone
	}
	isYesterday := common.SameDay(*last, common.Yesterday(now))
	isWithinGrace := now.Sub(*last) <= grace
	if isYesterday || isWithinGrace {
		return actionAdvance
	}
	return actionReset
}
