package domain

import (
	"errors"
	"testing"
	"time"
)

func readySession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(42, time.Unix(0, 0))
	s.SetLocation(Place{Coordinate: Coordinate{Lat: 1.3137, Lon: 103.8552}, Address: "681 Race Course Rd"})
	if err := s.SetRadius(2); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return s
}

func TestSetRadiusBounds(t *testing.T) {
	tests := []struct {
		name    string
		radius  float64
		wantErr error
	}{
		{name: "max accepted", radius: 5.0, wantErr: nil},
		{name: "small accepted", radius: 0.1, wantErr: nil},
		{name: "above max", radius: 5.1, wantErr: ErrRadiusTooLarge},
		{name: "zero", radius: 0, wantErr: ErrInvalidRadius},
		{name: "negative", radius: -1, wantErr: ErrInvalidRadius},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(1, time.Now())
			err := s.SetRadius(tt.radius)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetRadius(%v) = %v, want %v", tt.radius, err, tt.wantErr)
			}
			_, set := s.Radius()
			if set != (tt.wantErr == nil) {
				t.Fatalf("радиус установлен = %v, ожидали %v", set, tt.wantErr == nil)
			}
		})
	}
}

func TestRejectedRadiusKeepsPrevious(t *testing.T) {
	s := readySession(t)
	if err := s.SetRadius(5.1); err == nil {
		t.Fatal("ожидали ошибку для 5.1 км")
	}
	if r, _ := s.Radius(); r != 2 {
		t.Fatalf("ожидали прежний радиус 2, получили %v", r)
	}
}

func TestQualityThreshold(t *testing.T) {
	s := NewSession(1, time.Now())
	if err := s.SetMinQuality(101); !errors.Is(err, ErrInvalidThreshold) {
		t.Fatalf("ожидали ErrInvalidThreshold, получили %v", err)
	}
	if err := s.SetMinQuality(-1); !errors.Is(err, ErrInvalidThreshold) {
		t.Fatalf("ожидали ErrInvalidThreshold, получили %v", err)
	}
	if s.ClearMinQuality() {
		t.Fatal("сброс без установленного порога должен вернуть false")
	}
	if err := s.SetMinQuality(80); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if v, ok := s.MinQuality(); !ok || v != 80 {
		t.Fatalf("ожидали порог 80, получили %v %v", v, ok)
	}
	if !s.ClearMinQuality() {
		t.Fatal("ожидали успешный сброс")
	}
	if _, ok := s.MinQuality(); ok {
		t.Fatal("порог должен быть сброшен")
	}
}

func TestStartMonitoringRequiresReady(t *testing.T) {
	s := NewSession(1, time.Now())
	_, err := s.StartMonitoring(time.Now(), time.Hour, NewCursor("10"))
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("ожидали ErrNotReady, получили %v", err)
	}
	var notReady *NotReadyError
	if !errors.As(err, &notReady) || !notReady.MissingLocation || !notReady.MissingRadius {
		t.Fatalf("ожидали обе недостающие настройки, получили %+v", notReady)
	}
	if s.Armed() {
		t.Fatal("мониторинг не должен быть взведён")
	}

	s.SetLocation(Place{Coordinate: Coordinate{Lat: 1, Lon: 1}})
	_, err = s.StartMonitoring(time.Now(), time.Hour, Cursor{})
	if !errors.As(err, &notReady) || notReady.MissingLocation || !notReady.MissingRadius {
		t.Fatalf("ожидали только отсутствие радиуса, получили %v", err)
	}
}

func TestMonitoringLifecycle(t *testing.T) {
	s := readySession(t)
	start := time.Date(2024, 4, 16, 13, 45, 16, 0, time.UTC)
	if st := s.State(start); st != StateReady {
		t.Fatalf("ожидали ready, получили %v", st)
	}
	deadline, err := s.StartMonitoring(start, time.Hour, NewCursor("100"))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !deadline.Equal(start.Add(time.Hour)) {
		t.Fatalf("неожиданный дедлайн %v", deadline)
	}
	if _, text, _ := s.Deadline(); text != "2024-04-16 2:45:16 PM" {
		t.Fatalf("неожиданный текст дедлайна %q", text)
	}
	if st := s.State(start.Add(30 * time.Minute)); st != StateMonitoring {
		t.Fatalf("ожидали monitoring, получили %v", st)
	}

	if s.Expire(start.Add(59 * time.Minute)) {
		t.Fatal("до дедлайна мониторинг не должен истекать")
	}
	s.AdvanceCursor(NewCursor("150"))
	if v, _ := s.Cursor().Value(); v != "150" {
		t.Fatalf("ожидали курсор 150, получили %s", v)
	}

	if !s.Expire(deadline) {
		t.Fatal("ожидали истечение ровно в дедлайн")
	}
	if s.Expire(deadline.Add(time.Minute)) {
		t.Fatal("истечение должно срабатывать один раз")
	}
	if s.Cursor().IsSet() || s.Armed() {
		t.Fatal("курсор и дедлайн должны быть очищены")
	}
	if st := s.State(deadline); st != StateReady {
		t.Fatalf("ожидали ready после истечения, получили %v", st)
	}
	if out := s.StopMonitoring(deadline); out != StopAlreadyExpired {
		t.Fatalf("ожидали StopAlreadyExpired, получили %v", out)
	}
	if out := s.StopMonitoring(deadline); out != StopNothing {
		t.Fatalf("ожидали StopNothing, получили %v", out)
	}
}

func TestStopMonitoring(t *testing.T) {
	s := readySession(t)
	now := time.Now()
	if out := s.StopMonitoring(now); out != StopNothing {
		t.Fatalf("ожидали StopNothing, получили %v", out)
	}
	if _, err := s.StartMonitoring(now, time.Hour, NewCursor("5")); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if out := s.StopMonitoring(now.Add(time.Minute)); out != StopStopped {
		t.Fatalf("ожидали StopStopped, получили %v", out)
	}
	if s.Armed() || s.Cursor().IsSet() {
		t.Fatal("после остановки мониторинг должен быть очищен")
	}

	if _, err := s.StartMonitoring(now, time.Hour, NewCursor("5")); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if out := s.StopMonitoring(now.Add(2 * time.Hour)); out != StopAlreadyExpired {
		t.Fatalf("ожидали StopAlreadyExpired для просроченного окна, получили %v", out)
	}
}

func TestRestartMonitoringKeepsCursorMonotonic(t *testing.T) {
	s := readySession(t)
	now := time.Now()
	if _, err := s.StartMonitoring(now, time.Hour, NewCursor("200")); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := s.StartMonitoring(now.Add(time.Minute), time.Hour, NewCursor("150")); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if v, _ := s.Cursor().Value(); v != "200" {
		t.Fatalf("курсор откатился назад: %s", v)
	}
}

func TestAdvanceCursorIgnoredWhenIdle(t *testing.T) {
	s := readySession(t)
	s.AdvanceCursor(NewCursor("10"))
	if s.Cursor().IsSet() {
		t.Fatal("курсор без активного мониторинга не сохраняется")
	}
}

func TestTakePending(t *testing.T) {
	s := NewSession(1, time.Now())
	items := make([]EvaluatedSighting, 5)
	for i := range items {
		items[i].Name = string(rune('a' + i))
	}
	s.SetPending(items, 11)
	if s.NextRank() != 11 {
		t.Fatalf("ожидали номер 11, получили %d", s.NextRank())
	}
	page, rest := s.TakePending(2)
	if len(page) != 2 || rest != 3 || page[0].Name != "a" {
		t.Fatalf("неожиданная первая страница: %d %d", len(page), rest)
	}
	if s.NextRank() != 13 {
		t.Fatalf("ожидали номер 13, получили %d", s.NextRank())
	}
	page, rest = s.TakePending(10)
	if len(page) != 3 || rest != 0 || page[0].Name != "c" {
		t.Fatalf("неожиданная вторая страница: %d %d", len(page), rest)
	}
	if page, _ = s.TakePending(10); page != nil {
		t.Fatal("ожидали пустую страницу")
	}
}
