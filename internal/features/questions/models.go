// Package questions — справочник вопросов (только чтение).
// Движку XP нужны лишь игровые метаданные вопроса, их и отдаёт каталог.
package questions

import "context"

// GameMetadata — параметры начисления XP за вопрос.
type GameMetadata struct {
	PointsValue          int     `db:"points_value" json:"pointsValue"`
	TimeLimit            int     `db:"time_limit" json:"timeLimit"` // Секунды, 0 = не задан
	DifficultyMultiplier float64 `db:"difficulty_multiplier" json:"difficultyMultiplier"`
}

// Question — строка таблицы questions.
type Question struct {
	ID      string `db:"id" json:"id"`
	TopicID string `db:"topic_id" json:"topicId"`
	Prompt  string `db:"prompt" json:"prompt"`
	GameMetadata
}

// Loader достаёт метаданные из первичного хранилища.
type Loader interface {
	LoadMetadata(ctx context.Context, questionID string) (GameMetadata, error)
}
