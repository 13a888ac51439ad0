package kvstore

import (
	"fmt"
	"log/slog"

	"github.com/m04kA/SMC-SaveSync/internal/config"
)

// Store общий контракт драйверов
type Store interface {
	GetItem(key string) (string, bool, error)
	SetItem(key string, value string) error
	RemoveItem(key string) error
	Close() error
}

// Open создает хранилище по секции [storage] конфигурации
// Для sqlite Path - путь к файлу, для badger - каталог
func Open(cfg config.StorageConfig, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StorageDriverBadger:
		bcfg := DefaultBadgerConfig(cfg.Path)
		bcfg.Logger = log
		return OpenBadger(bcfg)
	case config.StorageDriverSQLite:
		return OpenSQLite(cfg.Path)
	case config.StorageDriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
