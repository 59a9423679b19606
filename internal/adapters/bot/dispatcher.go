package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
)

const defaultQueueSize = 32

// MessageHandler обрабатывает одно входящее сообщение.
type MessageHandler interface {
	Handle(ctx context.Context, msg domain.InboundMessage)
}

// Dispatcher обрабатывает сообщения разных чатов параллельно, а сообщения
// одного чата строго по очереди. На каждый активный чат запускается горутина,
// которая завершается, когда очередь пуста.
type Dispatcher struct {
	ctx     context.Context
	handler MessageHandler
	size    int
	log     zerolog.Logger

	mu     sync.Mutex
	queues map[int64]chan domain.InboundMessage
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher создаёт диспетчер. ctx передаётся обработчику и живёт дольше
// отдельного HTTP-запроса вебхука.
func NewDispatcher(ctx context.Context, handler MessageHandler, queueSize int, log zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		ctx:     ctx,
		handler: handler,
		size:    queueSize,
		log:     log,
		queues:  make(map[int64]chan domain.InboundMessage),
	}
}

// Dispatch ставит сообщение в очередь чата. Возвращает false, если очередь
// переполнена или диспетчер остановлен.
func (d *Dispatcher) Dispatch(msg domain.InboundMessage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	q, ok := d.queues[msg.ChatID]
	if !ok {
		q = make(chan domain.InboundMessage, d.size)
		d.queues[msg.ChatID] = q
		d.wg.Add(1)
		go d.worker(msg.ChatID, q)
	}
	select {
	case q <- msg:
		return true
	default:
		d.log.Warn().Int64("chat", msg.ChatID).Int("update", msg.UpdateID).Msg("очередь чата переполнена, сообщение отброшено")
		return false
	}
}

// Close перестаёт принимать сообщения и ждёт обработки уже принятых.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(chatID int64, q chan domain.InboundMessage) {
	defer d.wg.Done()
	for {
		select {
		case msg := <-q:
			d.process(msg)
		default:
			d.mu.Lock()
			if len(q) == 0 {
				delete(d.queues, chatID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
		}
	}
}

func (d *Dispatcher) process(msg domain.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Int64("chat", msg.ChatID).Str("panic", fmt.Sprint(r)).Msg("паника при обработке сообщения")
		}
	}()
	d.handler.Handle(d.ctx, msg)
}
