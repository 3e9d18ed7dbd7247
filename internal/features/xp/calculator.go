package xp

import "math"

const (
	maxStreakSteps   = 10  // Бонус стрика растёт 10 дней и упирается в x2.0
	streakStep       = 0.1 // +10% за каждый день после первого
	timeBonus        = 1.2
	timeBonusPortion = 0.5 // Бонус, если осталось больше половины лимита
)

// Breakdown — разложение начисления по множителям.
type Breakdown struct {
	Base             float64
	StreakMultiplier float64
	TimeMultiplier   float64
	SafeTimeLimit    float64
	TimeRemaining    float64
	Final            int64
}

// SafeTimeLimit выбирает лимит времени: у вопроса, затем у попытки, затем по умолчанию.
// Результат всегда >= 1.
func SafeTimeLimit(questionLimit int, submissionLimit float64, fallback int) float64 {
	limit := float64(fallback)
	switch {
	case questionLimit > 0:
		limit = float64(questionLimit)
	case submissionLimit > 0:
		limit = submissionLimit
	}
	return max(1, limit)
}

// StreakMultiplier: 1 + min(max(streak-1, 0), 10) * 0.1.
func StreakMultiplier(streak int) float64 {
	steps := min(max(streak-1, 0), maxStreakSteps)
	return 1 + float64(steps)*streakStep
}

// TimeMultiplier — 1.2, если оставшееся время больше половины лимита.
func TimeMultiplier(remaining, limit float64) float64 {
	if remaining > limit*timeBonusPortion {
		return timeBonus
	}
	return 1.0
}

// Calculate считает XP за правильный ответ. Функция чистая.
// timeSpent зажимается в [0, limit]: отрицательное время и переполнение лимита
// не дают ни бонуса, ни отрицательного остатка.
func Calculate(pointsValue int, difficulty float64, streak int, timeSpent, limit float64) Breakdown {
	effective := min(max(timeSpent, 0), limit)
	remaining := limit - effective

	b := Breakdown{
		Base:             float64(pointsValue) * difficulty,
		StreakMultiplier: StreakMultiplier(streak),
		TimeMultiplier:   TimeMultiplier(remaining, limit),
		SafeTimeLimit:    limit,
		TimeRemaining:    remaining,
	}
	b.Final = int64(math.Round(b.Base * b.StreakMultiplier * b.TimeMultiplier))
	return b
}
