package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
	"tg-sighting-bot/internal/usecase/monitor"
)

// Handler разбирает входящие сообщения и вызывает сервис мониторинга.
type Handler struct {
	service   *monitor.Service
	messenger domain.Messenger
	now       func() time.Time
	log       zerolog.Logger
}

// NewHandler создаёт обработчик. now задаёт часы и часовой пояс для дедлайнов.
func NewHandler(service *monitor.Service, messenger domain.Messenger, now func() time.Time, log zerolog.Logger) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{service: service, messenger: messenger, now: now, log: log}
}

// Handle обрабатывает одно сообщение. Сообщения одного чата должны подаваться
// последовательно.
func (h *Handler) Handle(ctx context.Context, msg domain.InboundMessage) {
	chatID := msg.ChatID
	log := h.log.With().Int64("chat", chatID).Int("update", msg.UpdateID).Logger()

	cmd, parseErr := ParseCommand(msg.Text)
	if h.service.Touch(ctx, chatID) {
		log.Info().Str("username", msg.Username).Msg("новый чат")
		h.reply(ctx, chatID, greetingText)
		if parseErr == nil && (cmd.Name == cmdStart || cmd.Name == cmdHelp) {
			metrics.IncCommand(cmd.Name)
			return
		}
	}

	if msg.Unsupported {
		metrics.IncCommand("unsupported")
		h.reply(ctx, chatID, unsupportedText)
		return
	}
	if parseErr != nil {
		metrics.IncCommand("unknown")
		log.Debug().Str("text", msg.Text).Msg("неизвестная команда")
		h.reply(ctx, chatID, unknownText)
		return
	}
	metrics.IncCommand(cmd.Name)
	log.Debug().Str("command", cmd.Name).Msg("команда")

	switch cmd.Name {
	case cmdStart, cmdHelp:
		h.reply(ctx, chatID, greetingText)
	case cmdSetLoc:
		h.handleSetLoc(ctx, log, chatID, cmd.Args)
	case cmdSetRadius:
		h.handleSetRadius(ctx, log, chatID, cmd.Args)
	case cmdFilterIV:
		h.handleFilterIV(ctx, log, chatID, cmd.Args)
	case cmdClearFilter:
		if h.service.ClearQualityThreshold(chatID) {
			h.reply(ctx, chatID, filterClearedText)
		} else {
			h.reply(ctx, chatID, noFilterText)
		}
	case cmdList:
		h.handleList(ctx, log, chatID)
	case cmdMore:
		h.handleMore(ctx, log, chatID)
	case cmdMonitor:
		h.handleMonitor(ctx, log, chatID)
	case cmdStop:
		h.handleStop(ctx, chatID)
	case cmdSettings:
		h.reply(ctx, chatID, formatSettings(h.service.Settings(chatID, h.now())))
	}
}

func (h *Handler) handleSetLoc(ctx context.Context, log zerolog.Logger, chatID int64, address string) {
	if strings.TrimSpace(address) == "" {
		h.reply(ctx, chatID, setLocHelp)
		return
	}
	place, err := h.service.SetLocation(ctx, chatID, address)
	switch {
	case err == nil:
		h.reply(ctx, chatID, fmt.Sprintf("Location set to: %s", place.Address))
	case errors.Is(err, domain.ErrAddressNotFound):
		h.reply(ctx, chatID, notFoundText)
	case errors.Is(err, domain.ErrInvalidAddress):
		h.reply(ctx, chatID, setLocHelp)
	default:
		log.Error().Err(err).Msg("не удалось определить местоположение")
		h.reply(ctx, chatID, providerErrorText)
	}
}

func (h *Handler) handleSetRadius(ctx context.Context, log zerolog.Logger, chatID int64, arg string) {
	km, err := ParseRadius(arg)
	if err == nil {
		err = h.service.SetRadius(chatID, km)
	}
	switch {
	case err == nil:
		h.reply(ctx, chatID, fmt.Sprintf("Radius set to   : %.2f km", km))
	case errors.Is(err, domain.ErrRadiusTooLarge):
		h.reply(ctx, chatID, radiusTooLarge)
	case domain.IsValidation(err):
		h.reply(ctx, chatID, radiusInvalid)
	default:
		log.Error().Err(err).Msg("не удалось сохранить радиус")
		h.reply(ctx, chatID, internalErrorText)
	}
}

func (h *Handler) handleFilterIV(ctx context.Context, log zerolog.Logger, chatID int64, arg string) {
	threshold, err := ParseThreshold(arg)
	if err == nil {
		err = h.service.SetQualityThreshold(chatID, threshold)
	}
	switch {
	case err == nil:
		h.reply(ctx, chatID, fmt.Sprintf("IV filter set to : %d%%", threshold))
	case domain.IsValidation(err):
		h.reply(ctx, chatID, thresholdInvalid)
	default:
		log.Error().Err(err).Msg("не удалось сохранить порог качества")
		h.reply(ctx, chatID, internalErrorText)
	}
}

func (h *Handler) handleList(ctx context.Context, log zerolog.Logger, chatID int64) {
	page, err := h.service.List(ctx, chatID, h.now())
	if err != nil {
		h.replyQueryError(ctx, log, chatID, "Unable to list nearby pokemons.", err)
		return
	}
	if len(page.Sightings) == 0 {
		h.reply(ctx, chatID, nothingFoundText)
		return
	}
	h.deliver(ctx, log, chatID, page)
}

func (h *Handler) handleMore(ctx context.Context, log zerolog.Logger, chatID int64) {
	page := h.service.More(chatID, h.now())
	if len(page.Sightings) == 0 {
		h.reply(ctx, chatID, noMoreText)
		return
	}
	h.deliver(ctx, log, chatID, page)
}

func (h *Handler) handleMonitor(ctx context.Context, log zerolog.Logger, chatID int64) {
	start, err := h.service.StartMonitoring(ctx, chatID, h.now())
	if err != nil {
		h.replyQueryError(ctx, log, chatID, "Unable to start monitoring.", err)
		return
	}
	if len(start.Sightings) == 0 {
		h.reply(ctx, chatID, nothingFoundText)
	} else {
		h.deliver(ctx, log, chatID, start.Page)
	}
	window := h.service.Window().Round(time.Minute)
	h.reply(ctx, chatID, fmt.Sprintf("Monitoring until %s (%s). I will notify you of new spawns. Send /stop to end early.", start.DeadlineText, formatWindow(window)))
}

func (h *Handler) handleStop(ctx context.Context, chatID int64) {
	switch h.service.StopMonitoring(ctx, chatID, h.now()) {
	case domain.StopStopped:
		h.reply(ctx, chatID, stoppedText)
	case domain.StopAlreadyExpired:
		h.reply(ctx, chatID, alreadyExpired)
	default:
		h.reply(ctx, chatID, noMonitorText)
	}
}

func (h *Handler) deliver(ctx context.Context, log zerolog.Logger, chatID int64, page monitor.Page) {
	if err := monitor.Deliver(ctx, h.messenger, chatID, page.Sightings, page.FirstRank); err != nil {
		log.Error().Err(err).Msg("не удалось отправить список")
		return
	}
	if page.Remaining > 0 {
		h.reply(ctx, chatID, fmt.Sprintf("%d more found. Send /more to see them.", page.Remaining))
	}
}

func (h *Handler) replyQueryError(ctx context.Context, log zerolog.Logger, chatID int64, lead string, err error) {
	var notReady *domain.NotReadyError
	if errors.As(err, &notReady) {
		h.reply(ctx, chatID, notReadyText(lead, notReady))
		return
	}
	log.Error().Err(err).Msg("запрос к фиду не выполнен")
	h.reply(ctx, chatID, providerErrorText)
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.messenger.SendText(ctx, chatID, text); err != nil {
		h.log.Debug().Err(err).Int64("chat", chatID).Msg("ответ не доставлен")
	}
}

// notReadyText называет недостающие настройки и подсказывает команды.
func notReadyText(lead string, e *domain.NotReadyError) string {
	switch {
	case e.MissingLocation && e.MissingRadius:
		return lead + " You have not set your location and radius.\n\n" + setLocHelp + "\n\n" + setRadiusHelp
	case e.MissingLocation:
		return lead + " You have not set your location.\n\n" + setLocHelp
	default:
		return lead + " You have not set your radius.\n\n" + setRadiusHelp
	}
}

func formatSettings(s domain.SessionSnapshot) string {
	location := notSetText
	if s.Location != nil {
		location = s.Address
		if location == "" {
			location = fmt.Sprintf("%.5f, %.5f", s.Location.Lat, s.Location.Lon)
		}
	}
	radius := notSetText
	if s.RadiusKm != nil {
		radius = strconv.FormatFloat(*s.RadiusKm, 'f', -1, 64) + " km"
	}
	filter := notSetText
	if s.MinQuality != nil {
		filter = fmt.Sprintf("%d%%", *s.MinQuality)
	}
	monitoring := notSetText
	if s.State == domain.StateMonitoring && s.DeadlineText != "" {
		monitoring = s.DeadlineText
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Location   : %s\n", location)
	fmt.Fprintf(&b, "Radius     : %s\n", radius)
	fmt.Fprintf(&b, "IV filter  : %s\n", filter)
	fmt.Fprintf(&b, "Monitoring : %s", monitoring)
	return b.String()
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d mins", int(d/time.Minute))
}
