package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
	"tg-sighting-bot/internal/usecase/sessions"
)

const (
	defaultInterval    = 90 * time.Second
	defaultConcurrency = 4
)

// Scheduler периодически обрабатывает все сессии с активным мониторингом.
type Scheduler struct {
	service     *Service
	store       *sessions.Store
	messenger   domain.Messenger
	interval    time.Duration
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// NewScheduler создаёт планировщик. now позволяет подменить часы в тестах.
func NewScheduler(service *Service, store *sessions.Store, messenger domain.Messenger, interval time.Duration, concurrency int, now func() time.Time, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		service:     service,
		store:       store,
		messenger:   messenger,
		interval:    interval,
		concurrency: concurrency,
		now:         now,
		log:         log,
	}
}

// Run выполняет циклы до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", s.interval).Int("concurrency", s.concurrency).Msg("scheduler: запущен")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler: остановлен")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle обрабатывает все взведённые сессии один раз. Ошибка одной сессии
// не влияет на остальные.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := time.Now()
	chats := s.store.Armed()
	metrics.MonitorActiveSessions.Set(float64(len(chats)))
	if len(chats) == 0 {
		return
	}
	log := s.log.With().Str("cycle", uuid.NewString()).Logger()
	log.Debug().Int("sessions", len(chats)).Msg("scheduler: цикл начат")

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, chatID := range chats {
		chatID := chatID
		g.Go(func() error {
			s.tickChat(ctx, log, chatID)
			return nil
		})
	}
	_ = g.Wait()
	metrics.SchedulerCycleSeconds.Observe(time.Since(start).Seconds())
	log.Debug().Dur("took", time.Since(start)).Msg("scheduler: цикл завершён")
}

func (s *Scheduler) tickChat(ctx context.Context, log zerolog.Logger, chatID int64) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncMonitorTick("panic")
			log.Error().Int64("chat", chatID).Str("panic", fmt.Sprint(r)).Msg("scheduler: паника при обработке сессии")
		}
	}()

	res, err := s.service.Tick(ctx, chatID, s.now())
	if err != nil {
		metrics.IncMonitorTick("error")
		log.Error().Err(err).Int64("chat", chatID).Msg("scheduler: не удалось опросить фид")
		return
	}
	switch {
	case res.Skipped:
		metrics.IncMonitorTick("skipped")
	case res.Expired:
		metrics.IncMonitorTick("expired")
		if err := s.messenger.SendText(ctx, chatID, ExpiredText); err != nil {
			log.Error().Err(err).Int64("chat", chatID).Msg("scheduler: не удалось сообщить об истечении")
		}
	default:
		metrics.IncMonitorTick("polled")
		if err := Deliver(ctx, s.messenger, chatID, res.Sightings, 1); err != nil {
			log.Error().Err(err).Int64("chat", chatID).Msg("scheduler: не удалось отправить уведомления")
		}
	}
}
