package durablelog

// KVStore локальное key-value хранилище (контракт localStorage)
type KVStore interface {
	GetItem(key string) (string, bool, error)
	SetItem(key string, value string) error
	RemoveItem(key string) error
}

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
