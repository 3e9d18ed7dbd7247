package maintenance

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository — массовые операции над таблицей users.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий обслуживания.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListUserIDs возвращает id всех пользователей.
func (r *Repository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, "SELECT id FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка чтения id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResetDailyXP обнуляет daily_xp там, где он не нулевой.
func (r *Repository) ResetDailyXP(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, "UPDATE users SET daily_xp = 0, updated_at = NOW() WHERE daily_xp <> 0")
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ResetWeeklyXP обнуляет weekly_xp там, где он не нулевой.
func (r *Repository) ResetWeeklyXP(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, "UPDATE users SET weekly_xp = 0, updated_at = NOW() WHERE weekly_xp <> 0")
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
