package savequeue

import "errors"

var (
	// ErrInvalidPayload возвращается, когда payload не прошёл валидацию
	ErrInvalidPayload = errors.New("savequeue: invalid payload")

	// ErrAttemptTimeout попытка не уложилась в attempt timeout (временная ошибка)
	ErrAttemptTimeout = errors.New("savequeue: attempt timed out")

	// ErrUnsupportedPayload payload неизвестного варианта
	ErrUnsupportedPayload = errors.New("savequeue: unsupported payload")

	// ErrDiscarded операция удалена из очереди во время попытки
	ErrDiscarded = errors.New("savequeue: operation discarded")
)

// Исходы Save для метрик
const (
	OutcomeSaved        = "saved"
	OutcomeQueued       = "queued"
	OutcomeFailed       = "failed"
	OutcomeAuthRequired = "auth_required"
	OutcomeRejected     = "rejected"
)

// Результаты попыток для метрик
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultTimeout = "timeout"
	ResultAuth    = "auth"
)

// Причины прохода, которые запускает сам менеджер
const (
	ReasonManual  = "manual"
	ReasonStartup = "startup"
)
