package sightings

import (
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
	"tg-sighting-bot/internal/usecase/geo"
)

// Evaluator фильтрует и ранжирует появления относительно точки пользователя.
type Evaluator struct {
	index domain.EntityIndex
	log   zerolog.Logger
}

// NewEvaluator создаёт оценщик.
func NewEvaluator(index domain.EntityIndex, log zerolog.Logger) *Evaluator {
	return &Evaluator{index: index, log: log}
}

// Evaluate оценивает страницу фида: отбрасывает неизвестные сущности, появления
// вне радиуса (граница не включается) и ниже порога качества, сортирует по расстоянию.
// Курсор страницы возвращается всегда, даже если ничего не прошло фильтр.
func (e *Evaluator) Evaluate(page domain.FeedPage, q domain.Query, now time.Time) domain.Evaluation {
	out := domain.Evaluation{Cursor: page.Cursor}
	kept := make([]domain.EvaluatedSighting, 0, len(page.Sightings))
	for _, raw := range page.Sightings {
		name, err := e.index.Name(raw.EntityID)
		if err != nil {
			reason := "unknown_entity"
			if errors.Is(err, domain.ErrUnknownEntity) {
				e.log.Debug().Int("entity", raw.EntityID).Msg("неизвестная сущность пропущена")
			} else {
				reason = "index_error"
				e.log.Warn().Err(err).Int("entity", raw.EntityID).Msg("ошибка справочника")
			}
			out.Dropped++
			metrics.IncSightingDropped(reason)
			continue
		}
		// NaN-расстояние не проходит сравнение и отбрасывается.
		distance := geo.Distance(q.Reference, raw.Position)
		if !(distance < q.RadiusKm) {
			out.Dropped++
			metrics.IncSightingDropped("radius")
			continue
		}
		quality := domain.QualityScore(raw.Attack, raw.Defence, raw.Stamina)
		if q.MinQuality != nil && quality < *q.MinQuality {
			out.Dropped++
			metrics.IncSightingDropped("quality")
			continue
		}
		kept = append(kept, domain.EvaluatedSighting{
			RawSighting: raw,
			Name:        name,
			DistanceKm:  distance,
			Quality:     quality,
			TimeLeft:    TimeLeft(raw.DespawnAt, now),
		})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].DistanceKm < kept[j].DistanceKm })
	metrics.AddSightingsEvaluated(len(page.Sightings))
	out.Sightings = kept
	return out
}

// TimeLeft возвращает время до исчезновения, не меньше нуля.
func TimeLeft(despawnAt, now time.Time) time.Duration {
	left := despawnAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Refresh пересчитывает оставшееся время для ранее оценённых появлений.
func Refresh(items []domain.EvaluatedSighting, now time.Time) []domain.EvaluatedSighting {
	out := make([]domain.EvaluatedSighting, len(items))
	for i, item := range items {
		item.TimeLeft = TimeLeft(item.DespawnAt, now)
		out[i] = item
	}
	return out
}
