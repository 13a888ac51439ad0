package healthcheck

// StatusOK значение поля status у здорового бэкенда
const StatusOK = "ok"

// Health ответ health-check эндпоинта
type Health struct {
	Status string `json:"status"`
}

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
}
