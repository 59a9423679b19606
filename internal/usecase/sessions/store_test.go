package sessions

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tg-sighting-bot/internal/domain"
)

func TestWithCreatesOnce(t *testing.T) {
	store := NewStore(nil)
	created, err := store.With(7, func(*domain.Session) error { return nil })
	if err != nil || !created {
		t.Fatalf("ожидали создание сессии, получили %v %v", created, err)
	}
	created, _ = store.With(7, func(*domain.Session) error { return nil })
	if created {
		t.Fatal("повторное обращение не должно создавать сессию")
	}
	if store.Len() != 1 {
		t.Fatalf("ожидали 1 сессию, получили %d", store.Len())
	}
}

func TestWithPropagatesError(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("boom")
	if _, err := store.With(1, func(*domain.Session) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("ожидали ошибку fn, получили %v", err)
	}
}

func TestArmedTracksMonitoring(t *testing.T) {
	store := NewStore(nil)
	now := time.Now()
	for _, id := range []int64{3, 1, 2} {
		_, _ = store.With(id, func(s *domain.Session) error {
			s.SetLocation(domain.Place{Coordinate: domain.Coordinate{Lat: 1, Lon: 1}})
			return s.SetRadius(1)
		})
	}
	for _, id := range []int64{3, 1} {
		_, err := store.With(id, func(s *domain.Session) error {
			_, err := s.StartMonitoring(now, time.Hour, domain.NewCursor("1"))
			return err
		})
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	armed := store.Armed()
	if len(armed) != 2 || armed[0] != 1 || armed[1] != 3 {
		t.Fatalf("ожидали [1 3], получили %v", armed)
	}
	_, _ = store.With(1, func(s *domain.Session) error {
		s.StopMonitoring(now)
		return nil
	})
	if armed = store.Armed(); len(armed) != 1 || armed[0] != 3 {
		t.Fatalf("ожидали [3], получили %v", armed)
	}
}

func TestTryWithSkipsBusyAndMissing(t *testing.T) {
	store := NewStore(nil)
	ran, _ := store.TryWith(5, func(*domain.Session) error { return nil })
	if ran {
		t.Fatal("для отсутствующей сессии fn не должна выполняться")
	}
	_, _ = store.With(5, func(*domain.Session) error { return nil })

	hold := make(chan struct{})
	inside := make(chan struct{})
	go func() {
		_, _ = store.With(5, func(*domain.Session) error {
			close(inside)
			<-hold
			return nil
		})
	}()
	<-inside
	ran, _ = store.TryWith(5, func(*domain.Session) error { return nil })
	close(hold)
	if ran {
		t.Fatal("занятая сессия должна пропускаться")
	}
}

func TestWithSerializesPerChat(t *testing.T) {
	store := NewStore(nil)
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.With(9, func(*domain.Session) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("ожидали 50 инкрементов, получили %d", counter)
	}
}
