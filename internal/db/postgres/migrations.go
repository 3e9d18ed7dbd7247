package postgres

// SQL-миграции встроены в код для упрощения деплоя.
// Порядок важен: версии применяются по возрастанию.
var migrations = []struct {
	version int
	name    string
	sql     string
}{
	{1, "users", migration001Users},
	{2, "questions", migration002Questions},
	{3, "user_activities", migration003Activities},
	{4, "xp_awards", migration004XPAwards},
	{5, "reminder_log", migration005ReminderLog},
}

// users — общая строка ученика. Стрик- и XP-поля пишет только движок XP/стриков,
// остальные подсистемы (кошелёк, ачивки) трогают свои колонки.
var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email VARCHAR(255) UNIQUE,
    display_name VARCHAR(255),
    total_xp BIGINT NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
    daily_xp BIGINT NOT NULL DEFAULT 0 CHECK (daily_xp >= 0),
    weekly_xp BIGINT NOT NULL DEFAULT 0 CHECK (weekly_xp >= 0),
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    longest_streak INTEGER NOT NULL DEFAULT 0 CHECK (longest_streak >= 0),
    last_streak_date TIMESTAMPTZ,
    last_activity_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_current_streak ON users(current_streak);
CREATE INDEX IF NOT EXISTS idx_users_total_xp ON users(total_xp DESC);
`

var migration002Questions = `
CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    topic_id TEXT,
    prompt TEXT NOT NULL DEFAULT '',
    points_value INTEGER NOT NULL DEFAULT 10,
    time_limit INTEGER NOT NULL DEFAULT 30,
    difficulty_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
`

var migration003Activities = `
CREATE TABLE IF NOT EXISTS user_activities (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    activity_date TIMESTAMPTZ NOT NULL,
    xp_earned BIGINT NOT NULL DEFAULT 0,
    questions_completed INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE (user_id, activity_date)
);
CREATE INDEX IF NOT EXISTS idx_user_activities_user_date ON user_activities(user_id, activity_date DESC);
`

var migration004XPAwards = `
CREATE TABLE IF NOT EXISTS xp_awards (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL,
    xp_awarded BIGINT NOT NULL,
    awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, question_id)
);
`

var migration005ReminderLog = `
CREATE TABLE IF NOT EXISTS reminder_log (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    reminder_type VARCHAR(50) NOT NULL,
    sent_on DATE NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE (user_id, reminder_type, sent_on)
);
`
