package savequeue

import (
	"math/rand/v2"
	"time"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

// Backoff экспоненциальная задержка между повторами
// NextDelay(n) = Base * 2^n, не больше Max
type Backoff struct {
	Base time.Duration
	Max  time.Duration
	// Jitter доля случайной добавки в [0, 1); 0 - без разброса
	Jitter float64

	rand func() float64
}

// DefaultBackoff 1s, 2s, 4s ... не больше 5 минут
func DefaultBackoff() Backoff {
	return Backoff{Base: domain.DefaultBaseDelay, Max: domain.DefaultMaxDelay}
}

// NextDelay задержка перед повтором для записи с retryCount неудачных попыток
// до текущей. retryCount == 0 даёт Base: первый повтор никогда не мгновенный
//
// Добавка jitter меньше Base * 2^n, поэтому последовательность остаётся
// неубывающей: NextDelay(n) <= NextDelay(n+1)
func (b Backoff) NextDelay(retryCount int) time.Duration {
	delay := b.Base
	for i := 0; i < retryCount && delay < b.Max; i++ {
		delay *= 2
	}
	if delay > b.Max {
		delay = b.Max
	}

	if b.Jitter > 0 && delay < b.Max {
		r := rand.Float64
		if b.rand != nil {
			r = b.rand
		}
		delay += time.Duration(r() * b.Jitter * float64(delay))
		if delay > b.Max {
			delay = b.Max
		}
	}

	return delay
}

// ShouldRetry автоматический повтор разрешён, пока не достигнут потолок
func (b Backoff) ShouldRetry(op *domain.Operation) bool {
	return op.CanRetry()
}
