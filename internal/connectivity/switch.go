package connectivity

import "sync"

// subscriberBuffer размер буфера канала подписчика
// Если подписчик не успевает читать, события отбрасываются
const subscriberBuffer = 16

// Switch ручной источник связи: состояние выставляют события дашборда или Heartbeat
type Switch struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan Event
	nextID int
}

// NewSwitch создает источник с начальным состоянием
func NewSwitch(online bool) *Switch {
	return &Switch{
		online: online,
		subs:   make(map[int]chan Event),
	}
}

// IsOnline текущее состояние
func (s *Switch) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.online
}

// SetOnline выставляет состояние
// Событие рассылается только при смене состояния, возвращает true, если оно сменилось
func (s *Switch) SetOnline(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.online == online {
		return false
	}
	s.online = online

	if online {
		s.broadcast(EventOnline)
	} else {
		s.broadcast(EventOffline)
	}
	return true
}

// SignalVisible сообщает, что дашборд снова на переднем плане
func (s *Switch) SignalVisible() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcast(EventBecameVisible)
}

// Subscribe подписка на события
// Функция отписки идемпотентна и закрывает канал
func (s *Switch) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			delete(s.subs, id)
			close(ch)
		})
	}
}

// broadcast вызывается под s.mu
func (s *Switch) broadcast(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
