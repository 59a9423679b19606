package sessions

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tg-sighting-bot/internal/domain"
)

// Store держит сессии всех чатов в памяти. Изменения одной сессии сериализуются
// её собственной блокировкой, разные чаты друг друга не блокируют.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
	now     func() time.Time
}

type entry struct {
	mu      sync.Mutex
	session *domain.Session
	armed   atomic.Bool
}

// syncArmed обновляет флаг для Armed. Вызывается под блокировкой записи.
func (e *entry) syncArmed() {
	e.armed.Store(e.session.Armed())
}

// NewStore создаёт хранилище.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{entries: make(map[int64]*entry), now: now}
}

func (s *Store) lookup(chatID int64, create bool) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[chatID]
	if ok || !create {
		return e, false
	}
	e = &entry{session: domain.NewSession(chatID, s.now())}
	s.entries[chatID] = e
	return e, true
}

// With выполняет fn под блокировкой сессии чата, создавая сессию при первом обращении.
// Возвращает признак того, что сессия была создана этим вызовом.
func (s *Store) With(chatID int64, fn func(*domain.Session) error) (bool, error) {
	e, created := s.lookup(chatID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.syncArmed()
	return created, fn(e.session)
}

// TryWith выполняет fn, только если сессия существует и не занята другой операцией.
func (s *Store) TryWith(chatID int64, fn func(*domain.Session) error) (bool, error) {
	e, _ := s.lookup(chatID, false)
	if e == nil || !e.mu.TryLock() {
		return false, nil
	}
	defer e.mu.Unlock()
	defer e.syncArmed()
	return true, fn(e.session)
}

// Armed возвращает чаты с взведённым мониторингом.
func (s *Store) Armed() []int64 {
	s.mu.Lock()
	ids := make([]int64, 0)
	for id, e := range s.entries {
		if e.armed.Load() {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len возвращает количество сессий.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
