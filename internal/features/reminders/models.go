// Package reminders напоминает ученикам, что серия вот-вот прервётся.
package reminders

import "time"

// KindStreak — тип напоминания о стрике (ключ в reminder_log).
const KindStreak = "streak"

// Candidate — пользователь, которому пора напомнить.
type Candidate struct {
	UserID         string     `db:"id"`
	Email          string     `db:"email"`
	DisplayName    string     `db:"display_name"`
	CurrentStreak  int        `db:"current_streak"`
	TotalXP        int64      `db:"total_xp"`
	LastActivityAt *time.Time `db:"last_activity_at"`
}

// Criteria — фильтр кандидатов.
type Criteria struct {
	MinStreak     int
	Yesterday     time.Time // Серия жива: последний засчитанный день — вчера
	InactiveSince time.Time // Нет активности позже этого момента
}

// Message — письмо.
type Message struct {
	To      string
	Subject string
	Body    string
}
