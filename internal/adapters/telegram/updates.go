package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
)

// updatesAPI: часть tgbotapi.BotAPI, нужная для long-poll.
type updatesAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Poller получает входящие сообщения через getUpdates.
type Poller struct {
	api     updatesAPI
	timeout int
	log     zerolog.Logger
}

// NewPoller создаёт long-poll клиента. timeout задаётся в секундах.
func NewPoller(api updatesAPI, timeoutSeconds int, log zerolog.Logger) *Poller {
	if timeoutSeconds < 0 {
		timeoutSeconds = 0
	}
	return &Poller{api: api, timeout: timeoutSeconds, log: log}
}

type pollResult struct {
	updates []tgbotapi.Update
	err     error
}

// Receive ждёт новые апдейты начиная с offset. Возвращает сообщения и offset
// для следующего вызова.
func (p *Poller) Receive(ctx context.Context, offset int) ([]domain.InboundMessage, int, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = p.timeout
	cfg.AllowedUpdates = []string{"message"}

	done := make(chan pollResult, 1)
	start := time.Now()
	go func() {
		updates, err := p.api.GetUpdates(cfg)
		done <- pollResult{updates: updates, err: err}
	}()

	var res pollResult
	select {
	case <-ctx.Done():
		return nil, offset, ctx.Err()
	case res = <-done:
	}
	metrics.ObserveNetworkRequest("telegram_bot", "get_updates", start, res.err)
	if res.err != nil {
		return nil, offset, fmt.Errorf("telegram: get updates: %w", res.err)
	}

	next := offset
	messages := make([]domain.InboundMessage, 0, len(res.updates))
	for _, upd := range res.updates {
		if upd.UpdateID >= next {
			next = upd.UpdateID + 1
		}
		msg, ok := ToInbound(upd)
		if !ok {
			p.log.Debug().Int("update", upd.UpdateID).Msg("апдейт без сообщения пропущен")
			continue
		}
		messages = append(messages, msg)
	}
	return messages, next, nil
}

// ToInbound переводит апдейт в domain.InboundMessage. Апдейты без сообщения
// (редактирования, колбэки) пропускаются.
func ToInbound(upd tgbotapi.Update) (domain.InboundMessage, bool) {
	m := upd.Message
	if m == nil || m.Chat == nil {
		return domain.InboundMessage{}, false
	}
	msg := domain.InboundMessage{
		UpdateID:    upd.UpdateID,
		ChatID:      m.Chat.ID,
		Text:        m.Text,
		Unsupported: m.Text == "",
	}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.Username = m.From.UserName
		msg.FirstName = m.From.FirstName
	}
	return msg, true
}

// DecodeUpdate разбирает тело запроса вебхука.
func DecodeUpdate(r io.Reader) (tgbotapi.Update, error) {
	var upd tgbotapi.Update
	if err := json.NewDecoder(r).Decode(&upd); err != nil {
		return tgbotapi.Update{}, fmt.Errorf("telegram: decode update: %w", err)
	}
	return upd, nil
}
