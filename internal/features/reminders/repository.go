package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository — кандидаты на напоминание и журнал отправок reminder_log.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий напоминаний.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListCandidates возвращает пользователей с живой серией, которые сегодня ещё не занимались.
func (r *Repository) ListCandidates(ctx context.Context, c Criteria) ([]Candidate, error) {
	query := `
		SELECT id, email, COALESCE(display_name, ''), current_streak, total_xp, last_activity_at
		FROM users
		WHERE current_streak >= $1
		  AND email <> ''
		  AND last_streak_date = $2
		  AND (last_activity_at IS NULL OR last_activity_at < $3)
		ORDER BY current_streak DESC
	`
	rows, err := r.db.Query(ctx, query, c.MinStreak, c.Yesterday, c.InactiveSince)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения кандидатов на напоминание: %w", err)
	}
	defer rows.Close()

	var result []Candidate
	for rows.Next() {
		var cand Candidate
		if err := rows.Scan(
			&cand.UserID, &cand.Email, &cand.DisplayName,
			&cand.CurrentStreak, &cand.TotalXP, &cand.LastActivityAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения кандидата: %w", err)
		}
		result = append(result, cand)
	}
	return result, rows.Err()
}

// Claim занимает слот (пользователь, тип, день). false — уже отправлено
// этим или другим экземпляром сервиса.
func (r *Repository) Claim(ctx context.Context, userID, kind string, day time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO reminder_log (user_id, reminder_type, sent_on)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, reminder_type, sent_on) DO NOTHING
	`, userID, kind, day)
	if err != nil {
		return false, fmt.Errorf("ошибка записи в reminder_log: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release освобождает слот, если письмо так и не ушло.
func (r *Repository) Release(ctx context.Context, userID, kind string, day time.Time) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM reminder_log WHERE user_id = $1 AND reminder_type = $2 AND sent_on = $3",
		userID, kind, day,
	)
	if err != nil {
		return fmt.Errorf("ошибка удаления из reminder_log: %w", err)
	}
	return nil
}
