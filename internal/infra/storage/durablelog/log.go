// Package durablelog хранит снимок очереди сохранений под одним ключом
// локального хранилища, чтобы очередь переживала перезапуск процесса.
package durablelog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

// Log журнал очереди: весь снимок одним JSON-массивом
type Log struct {
	store KVStore
	key   string
	log   Logger
}

// New создает журнал поверх хранилища
// Пустой key заменяется на domain.DefaultStorageKey
func New(store KVStore, key string, log Logger) *Log {
	if key == "" {
		key = domain.DefaultStorageKey
	}
	return &Log{store: store, key: key, log: log}
}

// Key ключ, под которым хранится снимок
func (l *Log) Key() string {
	return l.key
}

// Persist перезаписывает снимок целиком
// Пустой снимок удаляет ключ
func (l *Log) Persist(ops []*domain.Operation) error {
	if len(ops) == 0 {
		if err := l.store.RemoveItem(l.key); err != nil {
			return fmt.Errorf("%w: Persist - remove key: %v", ErrPersist, err)
		}
		return nil
	}

	data, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("%w: Persist - marshal %d records: %v", ErrEncode, len(ops), err)
	}

	if err := l.store.SetItem(l.key, string(data)); err != nil {
		return fmt.Errorf("%w: Persist - set item: %v", ErrPersist, err)
	}

	return nil
}

// Load читает снимок
// Никогда не возвращает ошибку: отсутствующий ключ, недоступное хранилище
// или битый JSON дают пустой список, битая запись отбрасывается одна
func (l *Log) Load() []*domain.Operation {
	raw, ok, err := l.store.GetItem(l.key)
	if err != nil {
		l.log.Warn("durablelog: Load - read %q: %v", l.key, err)
		return []*domain.Operation{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []*domain.Operation{}
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		l.log.Warn("durablelog: Load - malformed snapshot under %q, starting empty: %v", l.key, err)
		return []*domain.Operation{}
	}

	ops := make([]*domain.Operation, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		var op domain.Operation
		if err := json.Unmarshal(rec, &op); err != nil {
			l.log.Warn("durablelog: Load - drop record %d: %v", i, err)
			continue
		}
		if op.ID == "" {
			l.log.Warn("durablelog: Load - drop record %d: empty id", i)
			continue
		}
		if _, dup := seen[op.ID]; dup {
			l.log.Warn("durablelog: Load - drop duplicate record %s", op.ID)
			continue
		}
		seen[op.ID] = struct{}{}

		// потолок мог измениться между версиями
		if op.MaxRetries <= 0 {
			op.MaxRetries = domain.DefaultMaxRetries
		}
		if op.RetryCount > op.MaxRetries {
			op.RetryCount = op.MaxRetries
		}
		if op.RetryCount < 0 {
			op.RetryCount = 0
		}

		ops = append(ops, &op)
	}

	return ops
}

// Clear удаляет снимок
func (l *Log) Clear() error {
	if err := l.store.RemoveItem(l.key); err != nil {
		return fmt.Errorf("%w: Clear - remove key: %v", ErrClear, err)
	}
	return nil
}
