package questions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/lingvo-api/internal/common"
)

// Repository читает вопросы из PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий вопросов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LoadMetadata возвращает игровые метаданные вопроса.
func (r *Repository) LoadMetadata(ctx context.Context, questionID string) (GameMetadata, error) {
	query := `
		SELECT points_value, time_limit, difficulty_multiplier
		FROM questions
		WHERE id = $1
	`
	var m GameMetadata
	err := r.db.QueryRow(ctx, query, questionID).Scan(&m.PointsValue, &m.TimeLimit, &m.DifficultyMultiplier)
	if errors.Is(err, pgx.ErrNoRows) {
		return GameMetadata{}, common.ErrQuestionNotFound
	}
	if err != nil {
		return GameMetadata{}, fmt.Errorf("ошибка получения вопроса (id=%s): %w", questionID, err)
	}
	return m, nil
}

// Save добавляет или обновляет вопрос (сид-данные, интеграционные тесты).
func (r *Repository) Save(ctx context.Context, q Question) error {
	query := `
		INSERT INTO questions (id, topic_id, prompt, points_value, time_limit, difficulty_multiplier)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			topic_id = EXCLUDED.topic_id,
			prompt = EXCLUDED.prompt,
			points_value = EXCLUDED.points_value,
			time_limit = EXCLUDED.time_limit,
			difficulty_multiplier = EXCLUDED.difficulty_multiplier
	`
	_, err := r.db.Exec(ctx, query, q.ID, q.TopicID, q.Prompt, q.PointsValue, q.TimeLimit, q.DifficultyMultiplier)
	if err != nil {
		return fmt.Errorf("ошибка сохранения вопроса: %w", err)
	}
	return nil
}
