// Package xp — repository.go: начисление XP в PostgreSQL.
// Все изменения счётчиков инкрементальные (total_xp = total_xp + $n),
// строка пользователя целиком не перезаписывается.
package xp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/common"
	"serotonyl.ru/lingvo-api/internal/db/postgres"
)

// Repository предоставляет методы для работы с XP в PostgreSQL.
type Repository struct {
	db            *pgxpool.Pool
	ledgerEnabled bool
}

// NewRepository создаёт новый репозиторий XP.
// ledgerEnabled=false — реестр начислений не используется (NullLedger).
func NewRepository(db *pgxpool.Pool, ledgerEnabled bool) *Repository {
	return &Repository{db: db, ledgerEnabled: ledgerEnabled}
}

// WithinTx выполняет fn в одной транзакции.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var ledger AwardLedger = NullLedger{}
		if r.ledgerEnabled {
			ledger = &PersistentLedger{tx: tx}
		}
		return fn(&pgTx{tx: tx, ledger: ledger})
	})
}

// TouchActivity отмечает попытку ответа без начисления.
func (r *Repository) TouchActivity(ctx context.Context, userID string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET last_activity_at = $2, updated_at = NOW() WHERE id = $1",
		userID, at,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления активности: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

// GetTotals возвращает счётчики пользователя.
func (r *Repository) GetTotals(ctx context.Context, userID string) (*Totals, error) {
	return scanTotals(r.db.QueryRow(ctx, `
		SELECT total_xp, daily_xp, weekly_xp, current_streak, longest_streak
		FROM users WHERE id = $1
	`, userID), userID)
}

// ListActivity возвращает журнал активности начиная с since (по возрастанию даты).
func (r *Repository) ListActivity(ctx context.Context, userID string, since time.Time) ([]Activity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT activity_date, xp_earned, questions_completed
		FROM user_activities
		WHERE user_id = $1 AND activity_date >= $2
		ORDER BY activity_date
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения активности: %w", err)
	}
	defer rows.Close()

	var result []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.Date, &a.XPEarned, &a.QuestionsCompleted); err != nil {
			return nil, fmt.Errorf("ошибка чтения активности: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanTotals(row pgx.Row, userID string) (*Totals, error) {
	var t Totals
	err := row.Scan(&t.TotalXP, &t.DailyXP, &t.WeeklyXP, &t.CurrentStreak, &t.LongestStreak)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения XP (user_id=%s): %w", userID, err)
	}
	return &t, nil
}

// pgTx — операции начисления внутри транзакции.
type pgTx struct {
	tx     pgx.Tx
	ledger AwardLedger
}

// LockUser читает счётчики с блокировкой строки до конца транзакции.
// Параллельные начисления одному пользователю выстраиваются в очередь.
func (t *pgTx) LockUser(ctx context.Context, userID string) (*Totals, error) {
	return scanTotals(t.tx.QueryRow(ctx, `
		SELECT total_xp, daily_xp, weekly_xp, current_streak, longest_streak
		FROM users WHERE id = $1
		FOR UPDATE
	`, userID), userID)
}

func (t *pgTx) AddXP(ctx context.Context, userID string, amount int64, at time.Time) (int64, error) {
	var total int64
	err := t.tx.QueryRow(ctx, `
		UPDATE users
		SET total_xp = total_xp + $2,
		    daily_xp = daily_xp + $2,
		    weekly_xp = weekly_xp + $2,
		    last_activity_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING total_xp
	`, userID, amount, at).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, common.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления XP: %w", err)
	}
	return total, nil
}

func (t *pgTx) UpsertActivity(ctx context.Context, userID string, day time.Time, xp int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO user_activities (user_id, activity_date, xp_earned, questions_completed)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, activity_date) DO UPDATE SET
			xp_earned = user_activities.xp_earned + EXCLUDED.xp_earned,
			questions_completed = user_activities.questions_completed + 1
	`, userID, day, xp)
	if err != nil {
		return fmt.Errorf("ошибка записи активности: %w", err)
	}
	return nil
}

func (t *pgTx) Ledger() AwardLedger {
	return t.ledger
}

// PersistentLedger — реестр начислений в таблице xp_awards.
// Каждый запрос идёт в своём SAVEPOINT: если таблицы нет (42P01),
// откатывается только savepoint, внешняя транзакция остаётся живой.
type PersistentLedger struct {
	tx pgx.Tx
}

func (l *PersistentLedger) Has(ctx context.Context, userID, questionID string) (bool, error) {
	var exists bool
	err := postgres.WithTx(ctx, l.tx, func(sp pgx.Tx) error {
		return sp.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM xp_awards WHERE user_id = $1 AND question_id = $2)",
			userID, questionID,
		).Scan(&exists)
	})
	if postgres.IsUndefinedTable(err) {
		log.Debug("Таблица xp_awards отсутствует, реестр начислений пропущен")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка проверки реестра начислений: %w", err)
	}
	return exists, nil
}

func (l *PersistentLedger) Record(ctx context.Context, award Award) error {
	err := postgres.WithTx(ctx, l.tx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, `
			INSERT INTO xp_awards (user_id, question_id, xp_awarded, awarded_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, question_id) DO NOTHING
		`, award.UserID, award.QuestionID, award.XPAwarded, award.AwardedAt)
		return err
	})
	if postgres.IsUndefinedTable(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка записи в реестр начислений: %w", err)
	}
	return nil
}
