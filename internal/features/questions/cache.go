package questions

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// loadTimeout ограничивает общую загрузку, которую ждут схлопнутые вызовы.
const loadTimeout = 3 * time.Second

// loadContext отвязывает загрузку от отмены первого вызывающего:
// его таймаут не должен ронять остальных ожидающих.
func loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
}

// RedisCatalog кеширует метаданные в Redis (hash на вопрос):
//
//	HSET question:{id}:meta points {n} time_limit {sec} difficulty {x}
//
// Промах идёт в Loader, параллельные промахи по одному id схлопываются.
type RedisCatalog struct {
	client *redis.Client
	loader Loader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewRedisCatalog(client *redis.Client, loader Loader, ttl time.Duration) *RedisCatalog {
	return &RedisCatalog{client: client, loader: loader, ttl: ttl}
}

// GameMetadata возвращает метаданные вопроса из кеша или из Loader.
func (c *RedisCatalog) GameMetadata(ctx context.Context, questionID string) (GameMetadata, error) {
	key := metaKey(questionID)

	if m, ok := c.fromCache(ctx, key); ok {
		return m, nil
	}

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		ctx, cancel := loadContext(ctx)
		defer cancel()

		// Повторная проверка: кеш мог заполнить соседний вызов.
		if m, ok := c.fromCache(ctx, key); ok {
			return m, nil
		}

		m, err := c.loader.LoadMetadata(ctx, questionID)
		if err != nil {
			return GameMetadata{}, err
		}

		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key,
			"points", m.PointsValue,
			"time_limit", m.TimeLimit,
			"difficulty", strconv.FormatFloat(m.DifficultyMultiplier, 'f', -1, 64),
		)
		if ttl := ttlWithJitter(c.ttl); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			log.WithError(err).WithField("question_id", questionID).Warn("Не удалось записать вопрос в Redis")
		}
		return m, nil
	})
	if err != nil {
		return GameMetadata{}, err
	}
	return result.(GameMetadata), nil
}

func (c *RedisCatalog) fromCache(ctx context.Context, key string) (GameMetadata, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return GameMetadata{}, false
	}
	points, err1 := strconv.Atoi(fields["points"])
	limit, err2 := strconv.Atoi(fields["time_limit"])
	difficulty, err3 := strconv.ParseFloat(fields["difficulty"], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return GameMetadata{}, false
	}
	return GameMetadata{PointsValue: points, TimeLimit: limit, DifficultyMultiplier: difficulty}, true
}

func metaKey(questionID string) string {
	return "question:" + questionID + ":meta"
}

// MemoryCatalog — тот же кеш в памяти процесса (когда REDIS_ADDR не задан).
type MemoryCatalog struct {
	loader Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedMetadata
}

type cachedMetadata struct {
	meta      GameMetadata
	expiresAt time.Time
}

func NewMemoryCatalog(loader Loader, ttl time.Duration) *MemoryCatalog {
	return &MemoryCatalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedMetadata),
	}
}

func (c *MemoryCatalog) GameMetadata(ctx context.Context, questionID string) (GameMetadata, error) {
	if m, ok := c.lookup(questionID); ok {
		return m, nil
	}

	result, err, _ := c.sf.Do(questionID, func() (interface{}, error) {
		if m, ok := c.lookup(questionID); ok {
			return m, nil
		}

		ctx, cancel := loadContext(ctx)
		defer cancel()

		m, err := c.loader.LoadMetadata(ctx, questionID)
		if err != nil {
			return GameMetadata{}, err
		}

		c.mu.Lock()
		c.cache[questionID] = cachedMetadata{
			meta:      m,
			expiresAt: c.clock().Add(ttlWithJitter(c.ttl)),
		}
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return GameMetadata{}, err
	}
	return result.(GameMetadata), nil
}

func (c *MemoryCatalog) lookup(questionID string) (GameMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[questionID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return GameMetadata{}, false
	}
	return entry.meta, true
}

// ttlWithJitter добавляет до 10% к TTL, чтобы ключи не истекали разом.
func ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rand.Int64N(jitterMax+1))
}
