// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: границы календарного дня (UTC), русская плюрализация
// и форматирование чисел для писем.
package common

import (
	"fmt"
	"math"
	"time"
)

// Day — длительность календарных суток.
const Day = 24 * time.Hour

// DayStart возвращает полночь UTC того дня, в который попадает t.
// Все сравнения дат в стриках, журнале активности и ежедневном джобе
// идут только через эту функцию.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Today — полночь UTC текущего дня для заданных часов.
func Today(now func() time.Time) time.Time {
	return DayStart(now())
}

// Yesterday возвращает полночь предыдущего дня.
func Yesterday(today time.Time) time.Time {
	return DayStart(today).Add(-Day)
}

// SameDay сообщает, попадают ли два момента в один календарный день UTC.
func SameDay(a, b time.Time) bool {
	return DayStart(a).Equal(DayStart(b))
}

// WeekStart возвращает понедельник 00:00 UTC той недели, в которую попадает t.
func WeekStart(t time.Time) time.Time {
	d := DayStart(t)
	offset := (int(d.Weekday()) + 6) % 7 // понедельник = 0
	return d.Add(-time.Duration(offset) * Day)
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
//
// Правила:
//   - 1, 21, 31 → "день"
//   - 2-4, 22-24 → "дня"
//   - 5-20, 25-30 → "дней"
func PluralizeDays(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "день"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "дня"
	}
	return "дней"
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}

// FormatXP создаёт строку вида "1 250 XP".
func FormatXP(xp int64) string {
	return FormatNumber(xp) + " XP"
}
