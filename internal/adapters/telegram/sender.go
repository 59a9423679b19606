package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
)

// maxRetryAfter ограничивает ожидание, которое может запросить Telegram при 429.
const maxRetryAfter = 30 * time.Second

// sendAPI: часть tgbotapi.BotAPI, нужная для отправки.
type sendAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender реализует domain.Messenger поверх Bot API.
type Sender struct {
	api sendAPI
	log zerolog.Logger
}

var _ domain.Messenger = (*Sender)(nil)

// NewSender создаёт отправителя.
func NewSender(api sendAPI, log zerolog.Logger) *Sender {
	return &Sender{api: api, log: log}
}

// SendText отправляет текст, при необходимости несколькими сообщениями.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string) error {
	for _, part := range SplitMessage(text, messageLimit) {
		if err := s.send(ctx, "send_message", tgbotapi.NewMessage(chatID, part)); err != nil {
			s.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение")
			return err
		}
	}
	return nil
}

// SendLocation отправляет точку на карте.
func (s *Sender) SendLocation(ctx context.Context, chatID int64, at domain.Coordinate) error {
	if err := s.send(ctx, "send_location", tgbotapi.NewLocation(chatID, at.Lat, at.Lon)); err != nil {
		s.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить точку")
		return err
	}
	return nil
}

// send выполняет запрос и один раз повторяет его, если Telegram попросил подождать.
func (s *Sender) send(ctx context.Context, operation string, c tgbotapi.Chattable) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		_, err := s.api.Send(c)
		metrics.ObserveNetworkRequest("telegram_bot", operation, start, err)
		if err == nil {
			return nil
		}
		wait := retryAfter(err)
		if attempt > 0 || wait <= 0 {
			metrics.BotSendErrors.Inc()
			return fmt.Errorf("telegram: %s: %w", operation, err)
		}
		s.log.Warn().Dur("retry_after", wait).Str("operation", operation).Msg("telegram ограничил частоту, ждём")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			metrics.BotSendErrors.Inc()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func retryAfter(err error) time.Duration {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 {
		return 0
	}
	wait := time.Duration(apiErr.RetryAfter) * time.Second
	if wait > maxRetryAfter {
		wait = maxRetryAfter
	}
	return wait
}
