package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
)

// FormatSighting формирует текст карточки появления.
func FormatSighting(rank int, s domain.EvaluatedSighting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s\n", rank, strings.ToUpper(s.Name))
	fmt.Fprintf(&b, "Distance   : %.2f km\n", s.DistanceKm)
	fmt.Fprintf(&b, "IV         : %d%%\n", s.Quality)
	fmt.Fprintf(&b, "Despawn in : %s", FormatTimeLeft(s.TimeLeft))
	return b.String()
}

// FormatTimeLeft выводит оставшееся время в виде "M mins S sec".
func FormatTimeLeft(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d mins %02d sec", total/60, total%60)
}

// ExpiredText: уведомление об истечении окна мониторинга.
const ExpiredText = "Monitoring has expired. Send /monitor to watch for another hour."

// Deliver отправляет карточку и точку на карте для каждого появления.
// Нумерация начинается с firstRank. Возвращает первую ошибку отправки.
func Deliver(ctx context.Context, messenger domain.Messenger, chatID int64, items []domain.EvaluatedSighting, firstRank int) error {
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := messenger.SendText(ctx, chatID, FormatSighting(firstRank+i, item)); err != nil {
			return fmt.Errorf("отправка карточки: %w", err)
		}
		if err := messenger.SendLocation(ctx, chatID, item.Position); err != nil {
			return fmt.Errorf("отправка точки: %w", err)
		}
		metrics.AddSightingsNotified(1)
	}
	return nil
}
