package bot

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/adapters/telegram"
	"tg-sighting-bot/internal/domain"
	infrahttp "tg-sighting-bot/internal/infra/http"
)

// Receiver возвращает новые сообщения начиная с offset и следующий offset.
type Receiver interface {
	Receive(ctx context.Context, offset int) ([]domain.InboundMessage, int, error)
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Consume читает сообщения через long-poll и передаёт их диспетчеру, пока жив ctx.
// Ошибки транспорта логируются, опрос повторяется с растущей паузой.
func Consume(ctx context.Context, receiver Receiver, dispatcher *Dispatcher, log zerolog.Logger) {
	offset := 0
	backoff := minBackoff
	log.Info().Msg("long-poll: запущен")
	for {
		if ctx.Err() != nil {
			log.Info().Msg("long-poll: остановлен")
			return
		}
		msgs, next, err := receiver.Receive(ctx, offset)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Error().Err(err).Dur("backoff", backoff).Msg("long-poll: ошибка получения апдейтов")
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = minBackoff
		offset = next
		for _, msg := range msgs {
			dispatcher.Dispatch(msg)
		}
	}
}

// WebhookHandler принимает апдейты от Telegram и ставит их в очередь диспетчера.
// Ответ отдаётся сразу, обработка идёт асинхронно.
func WebhookHandler(dispatcher *Dispatcher, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upd, err := telegram.DecodeUpdate(r.Body)
		if err != nil {
			log.Warn().Err(err).Str("request_id", infrahttp.RequestID(r)).Msg("webhook: некорректный апдейт")
			infrahttp.WriteError(w, http.StatusBadRequest, "некорректный апдейт")
			return
		}
		if msg, ok := telegram.ToInbound(upd); ok {
			dispatcher.Dispatch(msg)
		}
		w.WriteHeader(http.StatusOK)
	}
}
