package domain

import (
	"math"
	"time"
)

// MaxRadiusKm: максимальный радиус поиска.
const MaxRadiusKm = 5.0

// DeadlineLayout: формат дедлайна мониторинга для пользователя.
const DeadlineLayout = "2006-01-02 3:04:05 PM"

// SessionState: составное состояние сессии.
type SessionState int

const (
	// StateUnconfigured: не задано местоположение или радиус.
	StateUnconfigured SessionState = iota
	// StateReady: всё настроено, мониторинг не активен.
	StateReady
	// StateMonitoring: мониторинг активен и дедлайн ещё не наступил.
	StateMonitoring
)

func (s SessionState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateMonitoring:
		return "monitoring"
	default:
		return "unconfigured"
	}
}

// StopOutcome: результат команды остановки мониторинга.
type StopOutcome int

const (
	StopNothing StopOutcome = iota
	StopStopped
	StopAlreadyExpired
)

// Session хранит настройки и состояние мониторинга одного чата.
// Все поля меняются только через методы-переходы.
type Session struct {
	ChatID    int64
	CreatedAt time.Time

	location     *Coordinate
	address      string
	radiusKm     *float64
	minQuality   *int
	deadline     *time.Time
	deadlineText string
	cursor       Cursor
	expired      bool
	pending      []EvaluatedSighting
	pendingRank  int
}

// SessionSnapshot: копия настроек для отображения.
type SessionSnapshot struct {
	Address      string
	Location     *Coordinate
	RadiusKm     *float64
	MinQuality   *int
	Deadline     *time.Time
	DeadlineText string
	State        SessionState
}

// NewSession создаёт пустую сессию.
func NewSession(chatID int64, now time.Time) *Session {
	return &Session{ChatID: chatID, CreatedAt: now}
}

// Location возвращает точку и адрес, если они заданы.
func (s *Session) Location() (Coordinate, string, bool) {
	if s.location == nil {
		return Coordinate{}, "", false
	}
	return *s.location, s.address, true
}

// Radius возвращает радиус в километрах.
func (s *Session) Radius() (float64, bool) {
	if s.radiusKm == nil {
		return 0, false
	}
	return *s.radiusKm, true
}

// MinQuality возвращает порог качества.
func (s *Session) MinQuality() (int, bool) {
	if s.minQuality == nil {
		return 0, false
	}
	return *s.minQuality, true
}

// Deadline возвращает дедлайн мониторинга и его текстовое представление.
func (s *Session) Deadline() (time.Time, string, bool) {
	if s.deadline == nil {
		return time.Time{}, "", false
	}
	return *s.deadline, s.deadlineText, true
}

// Cursor возвращает сохранённый курсор фида.
func (s *Session) Cursor() Cursor {
	return s.cursor
}

// Armed сообщает, что у сессии взведён дедлайн и планировщик должен её обрабатывать.
func (s *Session) Armed() bool {
	return s.deadline != nil
}

// State вычисляет составное состояние на момент now.
func (s *Session) State(now time.Time) SessionState {
	if s.location == nil || s.radiusKm == nil {
		return StateUnconfigured
	}
	if s.deadline != nil && now.Before(*s.deadline) {
		return StateMonitoring
	}
	return StateReady
}

// SetLocation сохраняет результат геокодирования.
func (s *Session) SetLocation(place Place) {
	coord := place.Coordinate
	s.location = &coord
	s.address = place.Address
}

// ValidateRadius проверяет радиус: (0, MaxRadiusKm].
func ValidateRadius(km float64) error {
	if math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
		return ErrInvalidRadius
	}
	if km > MaxRadiusKm {
		return ErrRadiusTooLarge
	}
	return nil
}

// SetRadius задаёт радиус. При ошибке сессия не меняется.
func (s *Session) SetRadius(km float64) error {
	if err := ValidateRadius(km); err != nil {
		return err
	}
	s.radiusKm = &km
	return nil
}

// SetMinQuality задаёт порог качества 0..100.
func (s *Session) SetMinQuality(threshold int) error {
	if threshold < 0 || threshold > 100 {
		return ErrInvalidThreshold
	}
	s.minQuality = &threshold
	return nil
}

// ClearMinQuality сбрасывает порог. Возвращает false, если порог не был задан.
func (s *Session) ClearMinQuality() bool {
	if s.minQuality == nil {
		return false
	}
	s.minQuality = nil
	return true
}

// Query собирает параметры оценки. Возвращает *NotReadyError, если сессия не настроена.
func (s *Session) Query() (Query, error) {
	if s.location == nil || s.radiusKm == nil {
		return Query{}, &NotReadyError{MissingLocation: s.location == nil, MissingRadius: s.radiusKm == nil}
	}
	q := Query{Reference: *s.location, RadiusKm: *s.radiusKm}
	if s.minQuality != nil {
		threshold := *s.minQuality
		q.MinQuality = &threshold
	}
	return q, nil
}

// StartMonitoring взводит окно мониторинга длиной window начиная с now.
// Повторный запуск продлевает окно, курсор при этом не откатывается.
func (s *Session) StartMonitoring(now time.Time, window time.Duration, cursor Cursor) (time.Time, error) {
	if _, err := s.Query(); err != nil {
		return time.Time{}, err
	}
	deadline := now.Add(window)
	if s.deadline != nil {
		s.cursor = s.cursor.Advance(cursor)
	} else {
		s.cursor = cursor
	}
	s.deadline = &deadline
	s.deadlineText = deadline.Format(DeadlineLayout)
	s.expired = false
	return deadline, nil
}

// Expire завершает мониторинг, если дедлайн наступил. Возвращает true ровно один раз на окно.
func (s *Session) Expire(now time.Time) bool {
	if s.deadline == nil || now.Before(*s.deadline) {
		return false
	}
	s.endMonitoring()
	s.expired = true
	return true
}

// AdvanceCursor сохраняет курсор после успешного опроса активного мониторинга.
func (s *Session) AdvanceCursor(next Cursor) {
	if s.deadline == nil {
		return
	}
	s.cursor = s.cursor.Advance(next)
}

// StopMonitoring обрабатывает явную остановку мониторинга.
func (s *Session) StopMonitoring(now time.Time) StopOutcome {
	if s.deadline != nil {
		passed := !now.Before(*s.deadline)
		s.endMonitoring()
		s.expired = false
		if passed {
			return StopAlreadyExpired
		}
		return StopStopped
	}
	if s.expired {
		s.expired = false
		return StopAlreadyExpired
	}
	return StopNothing
}

func (s *Session) endMonitoring() {
	s.deadline = nil
	s.deadlineText = ""
	s.cursor = Cursor{}
}

// SetPending запоминает результаты /list, не поместившиеся в первую страницу.
// firstRank: порядковый номер первого отложенного результата.
func (s *Session) SetPending(rest []EvaluatedSighting, firstRank int) {
	if len(rest) == 0 {
		s.pending = nil
		s.pendingRank = 0
		return
	}
	s.pending = append([]EvaluatedSighting(nil), rest...)
	s.pendingRank = firstRank
}

// NextRank возвращает порядковый номер следующего отложенного результата.
func (s *Session) NextRank() int {
	if s.pendingRank < 1 {
		return 1
	}
	return s.pendingRank
}

// TakePending отдаёт следующую страницу отложенных результатов.
func (s *Session) TakePending(limit int) ([]EvaluatedSighting, int) {
	if len(s.pending) == 0 {
		return nil, 0
	}
	if limit <= 0 || limit > len(s.pending) {
		limit = len(s.pending)
	}
	page := s.pending[:limit]
	rest := s.pending[limit:]
	s.pendingRank += limit
	if len(rest) == 0 {
		s.pending = nil
	} else {
		s.pending = rest
	}
	return page, len(rest)
}

// Snapshot возвращает копию настроек.
func (s *Session) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{Address: s.address, DeadlineText: s.deadlineText}
	if s.location != nil {
		loc := *s.location
		snap.Location = &loc
	}
	if s.radiusKm != nil {
		r := *s.radiusKm
		snap.RadiusKm = &r
	}
	if s.minQuality != nil {
		q := *s.minQuality
		snap.MinQuality = &q
	}
	if s.deadline != nil {
		d := *s.deadline
		snap.Deadline = &d
	}
	return snap
}
