package vocabulary

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Source отдаёт записи словаря: файл, база данных или что-то ещё.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// OptionCache хранит собранную таблицу с TTL. Создаётся один раз на приложение
// и передаётся явно; сбрасывается через Invalidate.
type OptionCache struct {
	mu        sync.RWMutex
	source    Source
	ttl       time.Duration
	table     *Table
	expiresAt time.Time
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewOptionCache создаёт кеш. source может быть nil - тогда используется только встроенная таблица.
func NewOptionCache(source Source, ttl time.Duration, log logrus.FieldLogger) *OptionCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OptionCache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// Table возвращает актуальную таблицу. При ошибке источника отдаёт встроенную
// таблицу и не кеширует её, чтобы следующий вызов повторил загрузку.
func (c *OptionCache) Table(ctx context.Context) *Table {
	c.mu.RLock()
	if c.table != nil && c.now().Before(c.expiresAt) {
		t := c.table
		c.mu.RUnlock()
		return t
	}
	c.mu.RUnlock()

	if c.source == nil {
		return c.store(Builtin())
	}

	entries, err := c.source.Entries(ctx)
	if err != nil {
		c.log.WithError(err).Warn("vocabulary: источник недоступен, используем встроенную таблицу")
		return Builtin()
	}
	return c.store(NewTable(entries))
}

func (c *OptionCache) store(t *Table) *Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = t
	c.expiresAt = c.now().Add(c.ttl)
	return t
}

// Invalidate сбрасывает таблицу; следующий вызов Table перечитает источник.
func (c *OptionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = nil
	c.expiresAt = time.Time{}
}
