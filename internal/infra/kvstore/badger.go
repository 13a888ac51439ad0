package kvstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig настройки хранилища BadgerDB
type BadgerConfig struct {
	// Path каталог файлов БД (игнорируется при InMemory)
	Path string

	// InMemory режим без диска (для тестов)
	InMemory bool

	// SyncWrites fsync на каждую запись
	SyncWrites bool

	// GCInterval период сборки мусора value log, 0 - выключена
	GCInterval time.Duration

	// Logger логгер badger, nil - внутреннее логирование badger выключено
	Logger *slog.Logger
}

// DefaultBadgerConfig настройки для production
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:       path,
		SyncWrites: true,
		GCInterval: 10 * time.Minute,
	}
}

// InMemoryBadgerConfig настройки для тестов
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// Badger хранилище поверх BadgerDB
type Badger struct {
	db     *badger.DB
	stopGC chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	closed atomic.Bool
}

// OpenBadger открывает (или создает) БД
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("%w: badger path is required", ErrOpen)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("%w: create dir %s: %v", ErrOpen, cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: badger: %v", ErrOpen, err)
	}

	b := &Badger{db: db, stopGC: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		b.wg.Add(1)
		go b.runGC(cfg.GCInterval)
	}

	return b, nil
}

// GetItem возвращает значение ключа и признак его наличия
func (b *Badger) GetItem(key string) (string, bool, error) {
	if b.closed.Load() {
		return "", false, ErrClosed
	}

	var value []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return "", false, ErrClosed
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: GetItem %q: %v", ErrRead, key, err)
	}

	return string(value), true, nil
}

// SetItem записывает значение ключа
func (b *Badger) SetItem(key string, value string) error {
	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("%w: SetItem %q: %v", ErrWrite, key, err)
	}
	return nil
}

// RemoveItem удаляет ключ
func (b *Badger) RemoveItem(key string) error {
	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("%w: RemoveItem %q: %v", ErrWrite, key, err)
	}
	return nil
}

// Close останавливает GC и закрывает БД
func (b *Badger) Close() error {
	var err error
	b.once.Do(func() {
		b.closed.Store(true)
		close(b.stopGC)
		b.wg.Wait()
		err = b.db.Close()
	})
	return err
}

func (b *Badger) runGC(interval time.Duration) {
	defer b.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite означает, что чистить нечего
			for b.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// badgerLogger адаптирует slog к интерфейсу badger.Logger
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
