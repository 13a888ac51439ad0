// Package kvstore локальные key-value хранилища для журнала очереди сохранений
// Контракт повторяет localStorage: GetItem / SetItem / RemoveItem
package kvstore

import "sync"

// Memory хранилище в памяти процесса
// Переживает пересоздание менеджера, но не перезапуск процесса
type Memory struct {
	mu     sync.RWMutex
	items  map[string]string
	closed bool
}

// NewMemory создает пустое хранилище в памяти
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

// GetItem возвращает значение ключа и признак его наличия
func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrClosed
	}
	value, ok := m.items[key]
	return value, ok, nil
}

// SetItem записывает значение ключа
func (m *Memory) SetItem(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.items[key] = value
	return nil
}

// RemoveItem удаляет ключ (отсутствие ключа не ошибка)
func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Close закрывает хранилище
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
