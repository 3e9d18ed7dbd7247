// Package app собирает все зависимости сервиса в одном месте.
// Порядок: хранилище → кеш вопросов → сервисы → HTTP → планировщик.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/config"
	"serotonyl.ru/lingvo-api/internal/db/postgres"
	"serotonyl.ru/lingvo-api/internal/features/admin"
	"serotonyl.ru/lingvo-api/internal/features/maintenance"
	"serotonyl.ru/lingvo-api/internal/features/questions"
	"serotonyl.ru/lingvo-api/internal/features/reminders"
	"serotonyl.ru/lingvo-api/internal/features/streak"
	"serotonyl.ru/lingvo-api/internal/features/xp"
	"serotonyl.ru/lingvo-api/internal/infra/memory"
	"serotonyl.ru/lingvo-api/internal/jobs"
	"serotonyl.ru/lingvo-api/internal/transport/httpapi"
	"serotonyl.ru/lingvo-api/internal/transport/httpapi/middleware"
)

const shutdownTimeout = 10 * time.Second

// App — собранное приложение.
type App struct {
	Config      *config.Config
	DB          *pgxpool.Pool // nil при STORAGE_DRIVER=memory
	Redis       *redis.Client // nil без REDIS_ADDR
	Server      *http.Server
	Scheduler   *jobs.Scheduler
	Maintenance *maintenance.Service
	Reminders   *reminders.Service // nil если напоминания выключены

	limiter *middleware.RateLimiter
}

// stores — реализации хранилищ для выбранного драйвера.
type stores struct {
	streaks     streak.Store
	xp          xp.Store
	questions   questions.Loader
	maintenance maintenance.Store
	reminders   reminders.Store
}

// New создаёт и связывает все компоненты приложения.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	// === 1. Хранилище ===
	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	// === 2. Кеш вопросов ===
	catalog, err := a.openCatalog(ctx, st.questions)
	if err != nil {
		a.Close()
		return nil, err
	}

	// === 3. Сервисы ===
	streakService := streak.NewService(st.streaks, cfg.GracePeriod())
	xpService := xp.NewService(st.xp, catalog, streakService, cfg.DefaultTimeLimitSeconds)
	a.Maintenance = maintenance.NewService(st.maintenance, streakService)
	adminService := admin.NewService(cfg.AdminPasswordHash)
	if !adminService.Enabled() {
		log.Warn("ADMIN_PASSWORD_HASH не задан, админ-эндпоинты выключены")
	}

	var reminderJobs jobs.Reminders
	if cfg.FeatureRemindersEnabled {
		a.Reminders = reminders.NewService(st.reminders, newMailer(cfg), cfg.ReminderMinStreak, cfg.ReminderInactiveHours)
		reminderJobs = a.Reminders
	}

	// === 4. HTTP ===
	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	handler := httpapi.NewHandler(xpService, streakService, a.Maintenance, adminService, a.ping)
	a.Server = &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(handler, httpapi.RouterOptions{
			RequestTimeout: cfg.HTTPRequestTimeout,
			Limiter:        a.limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// === 5. Планировщик ===
	a.Scheduler = jobs.NewScheduler(jobs.Schedule{
		Daily:     cfg.CronDaily,
		Weekly:    cfg.CronWeekly,
		Reminders: cfg.CronReminders,
		Timezone:  cfg.CronTimezone,
	}, a.Maintenance, reminderJobs)

	return a, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	if !a.Config.UsesPostgres() {
		log.Warn("STORAGE_DRIVER=memory: данные живут только в памяти процесса")
		mem := memory.NewStore(a.Config.XPLedgerEnabled)
		seedDemo(mem)
		return stores{streaks: mem, xp: mem, questions: mem, maintenance: mem, reminders: mem}, nil
	}

	pool, err := postgres.NewPool(ctx, a.Config)
	if err != nil {
		return stores{}, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	a.DB = pool

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("ошибка миграций: %w", err)
	}

	return stores{
		streaks:     streak.NewRepository(pool),
		xp:          xp.NewRepository(pool, a.Config.XPLedgerEnabled),
		questions:   questions.NewRepository(pool),
		maintenance: maintenance.NewRepository(pool),
		reminders:   reminders.NewRepository(pool),
	}, nil
}

func (a *App) openCatalog(ctx context.Context, loader questions.Loader) (xp.Catalog, error) {
	if a.Config.RedisAddr == "" {
		return questions.NewMemoryCatalog(loader, a.Config.QuestionCacheTTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}
	a.Redis = client
	log.WithField("addr", a.Config.RedisAddr).Info("Кеш вопросов в Redis")
	return questions.NewRedisCatalog(client, loader, a.Config.QuestionCacheTTL), nil
}

func newMailer(cfg *config.Config) reminders.Mailer {
	if !cfg.SMTPEnabled() {
		log.Info("SMTP не настроен, напоминания пишутся в лог")
		return reminders.LogMailer{}
	}
	return reminders.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
}

// seedDemo заполняет memory-хранилище парой записей для ручной проверки.
func seedDemo(mem *memory.Store) {
	mem.AddUser(memory.User{ID: "demo-user", Email: "demo@lingvo.local", DisplayName: "Demo"})
	mem.AddQuestion("demo-question", questions.GameMetadata{PointsValue: 10, TimeLimit: 30, DifficultyMultiplier: 1.0})
}

func (a *App) ping(ctx context.Context) error {
	if a.DB != nil {
		if err := a.DB.Ping(ctx); err != nil {
			return err
		}
	}
	if a.Redis != nil {
		return a.Redis.Ping(ctx).Err()
	}
	return nil
}

// Run запускает планировщик и HTTP-сервер и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if a.Config.FeatureSchedulerEnabled {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
		defer a.Scheduler.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", a.Server.Addr).Info("HTTP-сервер запущен")
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}
	return nil
}

// Close освобождает соединения.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
