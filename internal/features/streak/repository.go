// Package streak — repository.go выполняет операции со стрик-колонками таблицы users.
// Все записи адресные (конкретные колонки), строку целиком не перезаписываем:
// её параллельно правят другие подсистемы.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/lingvo-api/internal/common"
)

// Repository предоставляет методы для работы со стриками в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий стриков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetState возвращает стрик пользователя.
func (r *Repository) GetState(ctx context.Context, userID string) (*State, error) {
	query := `
		SELECT id, current_streak, longest_streak, last_streak_date, last_activity_at
		FROM users
		WHERE id = $1
	`
	var s State
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastStreakDate, &s.LastActivityAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения стрика (user_id=%s): %w", userID, err)
	}
	return &s, nil
}

// AdvanceStreak — условное +1 (compare-and-swap по last_streak_date).
// Пишет только если сегодняшний день ещё не засчитан; рекорд обновляется
// тем же оператором, поэтому longest_streak >= current_streak держится атомарно.
// Возвращает false, если строку уже продвинул параллельный вызов.
func (r *Repository) AdvanceStreak(ctx context.Context, userID string, today time.Time) (bool, error) {
	query := `
		UPDATE users
		SET current_streak = current_streak + 1,
		    longest_streak = GREATEST(longest_streak, current_streak + 1),
		    last_streak_date = $2,
		    updated_at = NOW()
		WHERE id = $1 AND (last_streak_date IS NULL OR last_streak_date < $2)
	`
	tag, err := r.db.Exec(ctx, query, userID, today)
	if err != nil {
		return false, fmt.Errorf("ошибка продления стрика: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ResetStreak начинает серию заново с сегодняшнего дня.
func (r *Repository) ResetStreak(ctx context.Context, userID string, today time.Time) error {
	query := `
		UPDATE users
		SET current_streak = 1,
		    longest_streak = GREATEST(longest_streak, 1),
		    last_streak_date = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, today)
	if err != nil {
		return fmt.Errorf("ошибка сброса стрика: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

// BreakStreak обнуляет серию, если последний засчитанный день раньше cutoff.
// Условие в WHERE защищает от гонки с ответом, пришедшим сразу после полуночи.
func (r *Repository) BreakStreak(ctx context.Context, userID string, cutoff time.Time) (bool, error) {
	query := `
		UPDATE users
		SET current_streak = 0, updated_at = NOW()
		WHERE id = $1 AND current_streak > 0
		  AND (last_streak_date IS NULL OR last_streak_date < $2)
	`
	tag, err := r.db.Exec(ctx, query, userID, cutoff)
	if err != nil {
		return false, fmt.Errorf("ошибка обнуления стрика: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
