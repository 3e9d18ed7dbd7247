// Package xp начисляет опыт за правильные ответы.
// models.go описывает входы и результаты движка.
package xp

import "time"

// Submission — попытка ответа на вопрос.
type Submission struct {
	UserID     string  `json:"userId"`
	QuestionID string  `json:"questionId" binding:"required"`
	IsCorrect  bool    `json:"isCorrect"`
	TimeSpent  float64 `json:"timeSpent"` // Секунды, допускаются доли
	TimeLimit  float64 `json:"timeLimit"` // Секунды, запасной лимит если у вопроса нет своего
}

// Result — ответ движка на попытку.
type Result struct {
	XPAwarded     int64 `json:"xpAwarded"`
	TotalXP       int64 `json:"totalXP"`
	CurrentStreak int   `json:"currentStreak"`
	StreakBonus   bool  `json:"streakBonus"`
	TimeBonus     bool  `json:"timeBonus"`
	LevelUp       bool  `json:"levelUp"`
	OldLevel      int   `json:"oldLevel"`
	NewLevel      int   `json:"newLevel"`
}

// Totals — XP- и стрик-счётчики пользователя.
type Totals struct {
	TotalXP       int64 `db:"total_xp"`
	DailyXP       int64 `db:"daily_xp"`
	WeeklyXP      int64 `db:"weekly_xp"`
	CurrentStreak int   `db:"current_streak"`
	LongestStreak int   `db:"longest_streak"`
}

// Award — запись реестра начислений (одна на пару пользователь+вопрос).
type Award struct {
	UserID     string    `db:"user_id"`
	QuestionID string    `db:"question_id"`
	XPAwarded  int64     `db:"xp_awarded"`
	AwardedAt  time.Time `db:"awarded_at"`
}

// Activity — строка дневного журнала активности.
type Activity struct {
	Date               time.Time `db:"activity_date" json:"date"`
	XPEarned           int64     `db:"xp_earned" json:"xpEarned"`
	QuestionsCompleted int       `db:"questions_completed" json:"questionsCompleted"`
}

// Progress — сводка для экрана прогресса.
type Progress struct {
	UserID        string `json:"userId"`
	TotalXP       int64  `json:"totalXP"`
	DailyXP       int64  `json:"dailyXP"`
	WeeklyXP      int64  `json:"weeklyXP"`
	Level         int    `json:"level"`
	NextLevelXP   int64  `json:"nextLevelXP,omitempty"` // 0 на максимальном уровне
	XPToNextLevel int64  `json:"xpToNextLevel"`
	CurrentStreak int    `json:"currentStreak"`
	LongestStreak int    `json:"longestStreak"`
}
