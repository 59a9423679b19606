package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/usecase/sessions"
	"tg-sighting-bot/internal/usecase/sightings"
)

const (
	defaultWindow      = time.Hour
	defaultPageSize    = 10
	defaultCallTimeout = 20 * time.Second
)

// Options задаёт параметры сервиса мониторинга.
type Options struct {
	Window      time.Duration
	PageSize    int
	CallTimeout time.Duration
	// EntityIDs: статический список отслеживаемых сущностей. Пустой список означает все.
	EntityIDs []int
}

// Service реализует переходы сессий, требующие обращения к геокодеру и фиду.
type Service struct {
	store     *sessions.Store
	geocoder  domain.Geocoder
	feed      domain.SightingFeed
	evaluator *sightings.Evaluator
	events    domain.BusinessMetricRepo
	opts      Options
	log       zerolog.Logger
}

// Page: страница результатов для пользователя.
type Page struct {
	Sightings []domain.EvaluatedSighting
	// FirstRank: порядковый номер первого результата страницы.
	FirstRank int
	// Remaining: сколько результатов осталось для /more.
	Remaining int
}

// MonitorStart: результат запуска мониторинга.
type MonitorStart struct {
	Page
	Deadline     time.Time
	DeadlineText string
}

// TickResult: результат одного шага мониторинга.
type TickResult struct {
	Expired   bool
	Skipped   bool
	Sightings []domain.EvaluatedSighting
}

// NewService создаёт сервис.
func NewService(store *sessions.Store, geocoder domain.Geocoder, feed domain.SightingFeed, evaluator *sightings.Evaluator, events domain.BusinessMetricRepo, opts Options, log zerolog.Logger) *Service {
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if events == nil {
		events = domain.NopBusinessMetrics{}
	}
	return &Service{
		store:     store,
		geocoder:  geocoder,
		feed:      feed,
		evaluator: evaluator,
		events:    events,
		opts:      opts,
		log:       log,
	}
}

// Window возвращает длительность окна мониторинга.
func (s *Service) Window() time.Duration {
	return s.opts.Window
}

// Touch регистрирует чат. Возвращает true при первом обращении.
func (s *Service) Touch(ctx context.Context, chatID int64) bool {
	created, _ := s.store.With(chatID, func(*domain.Session) error { return nil })
	if created {
		s.record(ctx, domain.BusinessMetricEventSessionCreated, chatID, nil)
	}
	return created
}

// SetLocation геокодирует адрес и сохраняет точку. При ошибке сессия не меняется.
func (s *Service) SetLocation(ctx context.Context, chatID int64, address string) (domain.Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Place{}, domain.ErrInvalidAddress
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	place, err := s.geocoder.Resolve(callCtx, address)
	if err != nil {
		return domain.Place{}, classifyProviderErr(err)
	}
	_, _ = s.store.With(chatID, func(sess *domain.Session) error {
		sess.SetLocation(place)
		return nil
	})
	s.record(ctx, domain.BusinessMetricEventLocationSet, chatID, map[string]any{"address": place.Address})
	return place, nil
}

// SetRadius задаёт радиус поиска.
func (s *Service) SetRadius(chatID int64, km float64) error {
	_, err := s.store.With(chatID, func(sess *domain.Session) error {
		return sess.SetRadius(km)
	})
	return err
}

// SetQualityThreshold задаёт порог качества.
func (s *Service) SetQualityThreshold(chatID int64, threshold int) error {
	_, err := s.store.With(chatID, func(sess *domain.Session) error {
		return sess.SetMinQuality(threshold)
	})
	return err
}

// ClearQualityThreshold сбрасывает порог. Возвращает false, если порог не был задан.
func (s *Service) ClearQualityThreshold(chatID int64) bool {
	var cleared bool
	_, _ = s.store.With(chatID, func(sess *domain.Session) error {
		cleared = sess.ClearMinQuality()
		return nil
	})
	return cleared
}

// Settings возвращает текущие настройки чата и его состояние на момент now.
func (s *Service) Settings(chatID int64, now time.Time) domain.SessionSnapshot {
	var snap domain.SessionSnapshot
	_, _ = s.store.With(chatID, func(sess *domain.Session) error {
		snap = sess.Snapshot()
		snap.State = sess.State(now)
		return nil
	})
	return snap
}

// List выполняет разовый запрос с незаданным курсором и возвращает первую страницу.
func (s *Service) List(ctx context.Context, chatID int64, now time.Time) (Page, error) {
	q, err := s.query(chatID)
	if err != nil {
		return Page{}, err
	}
	eval, err := s.poll(ctx, domain.Cursor{}, q, now)
	if err != nil {
		return Page{}, err
	}
	page := s.paginate(chatID, eval.Sightings)
	s.record(ctx, domain.BusinessMetricEventListRequested, chatID, map[string]any{"found": len(eval.Sightings)})
	return page, nil
}

// More возвращает следующую страницу результатов последнего /list.
func (s *Service) More(chatID int64, now time.Time) Page {
	var page Page
	_, _ = s.store.With(chatID, func(sess *domain.Session) error {
		rank := sess.NextRank()
		items, rest := sess.TakePending(s.opts.PageSize)
		page = Page{Sightings: sightings.Refresh(items, now), FirstRank: rank, Remaining: rest}
		return nil
	})
	return page
}

// StartMonitoring выполняет немедленную оценку для получения курсора и взводит окно мониторинга.
func (s *Service) StartMonitoring(ctx context.Context, chatID int64, now time.Time) (MonitorStart, error) {
	q, err := s.query(chatID)
	if err != nil {
		return MonitorStart{}, err
	}
	eval, err := s.poll(ctx, domain.Cursor{}, q, now)
	if err != nil {
		return MonitorStart{}, err
	}
	if !eval.Cursor.IsSet() {
		return MonitorStart{}, fmt.Errorf("%w: фид не вернул курсор", domain.ErrProvider)
	}
	var start MonitorStart
	_, err = s.store.With(chatID, func(sess *domain.Session) error {
		deadline, err := sess.StartMonitoring(now, s.opts.Window, eval.Cursor)
		if err != nil {
			return err
		}
		_, text, _ := sess.Deadline()
		start.Deadline = deadline
		start.DeadlineText = text
		return nil
	})
	if err != nil {
		return MonitorStart{}, err
	}
	start.Page = s.paginate(chatID, eval.Sightings)
	s.record(ctx, domain.BusinessMetricEventMonitorStarted, chatID, map[string]any{
		"deadline": start.Deadline.UTC().Format(time.RFC3339),
		"found":    len(eval.Sightings),
	})
	return start, nil
}

// Tick продвигает мониторинг одной сессии: завершает окно по дедлайну либо
// запрашивает новые появления по сохранённому курсору. При ошибке провайдера
// курсор не меняется.
func (s *Service) Tick(ctx context.Context, chatID int64, now time.Time) (TickResult, error) {
	var (
		expired  bool
		armed    bool
		q        domain.Query
		cursor   domain.Cursor
		deadline time.Time
	)
	ran, err := s.store.TryWith(chatID, func(sess *domain.Session) error {
		if sess.Expire(now) {
			expired = true
			return nil
		}
		deadline, _, armed = sess.Deadline()
		if !armed {
			return nil
		}
		var err error
		q, err = sess.Query()
		cursor = sess.Cursor()
		return err
	})
	if !ran {
		return TickResult{Skipped: true}, nil
	}
	if err != nil {
		return TickResult{}, err
	}
	if expired {
		s.record(ctx, domain.BusinessMetricEventMonitorExpired, chatID, nil)
		return TickResult{Expired: true}, nil
	}
	if !armed {
		return TickResult{Skipped: true}, nil
	}

	eval, err := s.poll(ctx, cursor, q, now)
	if err != nil {
		return TickResult{}, err
	}

	stale := false
	_, _ = s.store.With(chatID, func(sess *domain.Session) error {
		current, _, ok := sess.Deadline()
		if !ok || !current.Equal(deadline) {
			stale = true
			return nil
		}
		sess.AdvanceCursor(eval.Cursor)
		return nil
	})
	if stale {
		s.log.Debug().Int64("chat", chatID).Msg("сессия изменилась во время опроса, результат отброшен")
		return TickResult{Skipped: true}, nil
	}
	if len(eval.Sightings) > 0 {
		s.record(ctx, domain.BusinessMetricEventSightingsNotified, chatID, map[string]any{"count": len(eval.Sightings)})
	}
	return TickResult{Sightings: eval.Sightings}, nil
}

// StopMonitoring обрабатывает команду остановки.
func (s *Service) StopMonitoring(ctx context.Context, chatID int64, now time.Time) domain.StopOutcome {
	var outcome domain.StopOutcome
	_, _ = s.store.With(chatID, func(sess *domain.Session) error {
		outcome = sess.StopMonitoring(now)
		return nil
	})
	if outcome == domain.StopStopped {
		s.record(ctx, domain.BusinessMetricEventMonitorStopped, chatID, nil)
	}
	return outcome
}

func (s *Service) query(chatID int64) (domain.Query, error) {
	var q domain.Query
	_, err := s.store.With(chatID, func(sess *domain.Session) error {
		var err error
		q, err = sess.Query()
		return err
	})
	return q, err
}

func (s *Service) poll(ctx context.Context, cursor domain.Cursor, q domain.Query, now time.Time) (domain.Evaluation, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	page, err := s.feed.Query(callCtx, cursor, s.opts.EntityIDs)
	if err != nil {
		return domain.Evaluation{}, classifyProviderErr(err)
	}
	eval := s.evaluator.Evaluate(page, q, now)
	s.log.Debug().
		Int("received", len(page.Sightings)).
		Int("kept", len(eval.Sightings)).
		Int("dropped", eval.Dropped).
		Msg("страница фида оценена")
	return eval, nil
}

func (s *Service) paginate(chatID int64, items []domain.EvaluatedSighting) Page {
	size := s.opts.PageSize
	first := items
	var rest []domain.EvaluatedSighting
	if len(items) > size {
		first = items[:size]
		rest = items[size:]
	}
	_, _ = s.store.With(chatID, func(sess *domain.Session) error {
		sess.SetPending(rest, len(first)+1)
		return nil
	})
	return Page{Sightings: first, FirstRank: 1, Remaining: len(rest)}
}

func (s *Service) record(ctx context.Context, event string, chatID int64, meta map[string]any) {
	id := chatID
	metric := domain.BusinessMetric{
		ID:         uuid.NewString(),
		Event:      event,
		ChatID:     &id,
		Metadata:   meta,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Warn().Err(err).Str("event", event).Int64("chat", chatID).Msg("не удалось сохранить бизнес-метрику")
	}
}

// classifyProviderErr приводит таймауты и сетевые сбои к ErrProvider.
func classifyProviderErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrProvider) || errors.Is(err, domain.ErrAddressNotFound) || errors.Is(err, domain.ErrInvalidAddress) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrProvider, err)
}
