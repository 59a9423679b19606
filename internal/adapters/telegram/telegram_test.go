package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	sendErrs []error
	updates  []tgbotapi.Update
	lastCfg  tgbotapi.UpdateConfig
	block    chan struct{}
	params   tgbotapi.Params
	endpoint string
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.mu.Lock()
	f.lastCfg = cfg
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.updates, nil
}

func (f *fakeAPI) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.endpoint = endpoint
	f.params = params
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestSenderSendTextAndLocation(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, zerolog.Nop())
	long := strings.Repeat("x", 3000) + "\n" + strings.Repeat("y", 3000)
	if err := s.SendText(context.Background(), 7, long); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := s.SendLocation(context.Background(), 7, domain.Coordinate{Lat: 1.5, Lon: 103.5}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(api.sent) != 3 {
		t.Fatalf("ожидали 2 части текста и точку, получили %d", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok || msg.ChatID != 7 || msg.Text != strings.Repeat("x", 3000) {
		t.Fatalf("неожиданное первое сообщение: %#v", api.sent[0])
	}
	loc, ok := api.sent[2].(tgbotapi.LocationConfig)
	if !ok || loc.Latitude != 1.5 || loc.Longitude != 103.5 {
		t.Fatalf("неожиданная точка: %#v", api.sent[2])
	}
}

func TestSenderRetriesOnceOnRateLimit(t *testing.T) {
	limited := &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 1}}
	api := &fakeAPI{sendErrs: []error{limited}}
	if err := NewSender(api, zerolog.Nop()).SendText(context.Background(), 1, "hi"); err != nil {
		t.Fatalf("после повтора ошибки быть не должно: %v", err)
	}
	if len(api.sent) != 2 {
		t.Fatalf("ожидали повтор, получили %d вызовов", len(api.sent))
	}
}

func TestSenderReturnsPlainErrors(t *testing.T) {
	api := &fakeAPI{sendErrs: []error{errors.New("chat not found")}}
	err := NewSender(api, zerolog.Nop()).SendText(context.Background(), 1, "hi")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("ожидали ошибку отправки, получили %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("обычные ошибки не повторяются, получили %d вызовов", len(api.sent))
	}
}

func TestPollerReceive(t *testing.T) {
	api := &fakeAPI{updates: []tgbotapi.Update{
		{UpdateID: 10, Message: &tgbotapi.Message{Text: "/list", Chat: &tgbotapi.Chat{ID: 5}, From: &tgbotapi.User{ID: 9, UserName: "ash", FirstName: "Ash"}}},
		{UpdateID: 11},
		{UpdateID: 12, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 6}}},
	}}
	p := NewPoller(api, 25, zerolog.Nop())
	msgs, next, err := p.Receive(context.Background(), 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if next != 13 {
		t.Fatalf("ожидали offset 13, получили %d", next)
	}
	if api.lastCfg.Offset != 10 || api.lastCfg.Timeout != 25 {
		t.Fatalf("неожиданные параметры запроса: %+v", api.lastCfg)
	}
	if len(msgs) != 2 {
		t.Fatalf("ожидали 2 сообщения, получили %d", len(msgs))
	}
	if msgs[0].ChatID != 5 || msgs[0].UserID != 9 || msgs[0].Username != "ash" || msgs[0].Unsupported {
		t.Fatalf("неожиданное первое сообщение: %+v", msgs[0])
	}
	if !msgs[1].Unsupported {
		t.Fatal("сообщение без текста должно помечаться как неподдерживаемое")
	}
}

func TestPollerReceiveCancel(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{})}
	defer close(api.block)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, next, err := NewPoller(api, 30, zerolog.Nop()).Receive(ctx, 4)
	if !errors.Is(err, context.DeadlineExceeded) || next != 4 {
		t.Fatalf("ожидали отмену без сдвига offset, получили %v %d", err, next)
	}
}

func TestDecodeUpdate(t *testing.T) {
	upd, err := DecodeUpdate(strings.NewReader(`{"update_id":3,"message":{"message_id":1,"text":"/stop","chat":{"id":42,"type":"private"}}}`))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	msg, ok := ToInbound(upd)
	if !ok || msg.ChatID != 42 || msg.Text != "/stop" || msg.UpdateID != 3 {
		t.Fatalf("неожиданное сообщение: %+v", msg)
	}
	if _, err := DecodeUpdate(strings.NewReader("{")); err == nil {
		t.Fatal("ожидали ошибку разбора")
	}
}

func TestWebhookRegistration(t *testing.T) {
	api := &fakeAPI{}
	if err := SetWebhook(api, "https://example.org/bot/webhook", "s3cret"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if api.endpoint != "setWebhook" || api.params["url"] != "https://example.org/bot/webhook" || api.params["secret_token"] != "s3cret" {
		t.Fatalf("неожиданный запрос: %s %v", api.endpoint, api.params)
	}
	if err := DeleteWebhook(api); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, ok := api.requests[0].(tgbotapi.DeleteWebhookConfig); !ok {
		t.Fatalf("ожидали DeleteWebhookConfig, получили %#v", api.requests[0])
	}
}
