package sightings

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/usecase/geo"
)

type stubIndex map[int]string

func (s stubIndex) Name(id int) (string, error) {
	name, ok := s[id]
	if !ok {
		return "", domain.ErrUnknownEntity
	}
	return name, nil
}

var reference = domain.Coordinate{Lat: 1.3137481, Lon: 103.8552258}

func north(km float64) domain.Coordinate {
	return domain.Coordinate{Lat: reference.Lat + km/(geo.EarthRadiusKm*math.Pi/180), Lon: reference.Lon}
}

func sighting(id int, km float64, a, d, s int, despawn time.Time) domain.RawSighting {
	return domain.RawSighting{EntityID: id, Position: north(km), Attack: a, Defence: d, Stamina: s, DespawnAt: despawn}
}

func newEvaluator() *Evaluator {
	return NewEvaluator(stubIndex{1: "Bulbasaur", 25: "Pikachu", 147: "Dratini"}, zerolog.Nop())
}

func threshold(v int) *int { return &v }

func TestEvaluateScenarioQuality(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	page := domain.FeedPage{
		Sightings: []domain.RawSighting{
			sighting(25, 1.5, 15, 15, 15, now.Add(10*time.Minute)),
			sighting(147, 1.0, 9, 9, 9, now.Add(5*time.Minute)),
		},
		Cursor: domain.NewCursor("1492322711"),
	}
	q := domain.Query{Reference: reference, RadiusKm: 2}

	res := newEvaluator().Evaluate(page, q, now)
	if len(res.Sightings) != 2 {
		t.Fatalf("ожидали 2 появления, получили %d", len(res.Sightings))
	}
	first := res.Sightings[0]
	if first.Name != "Dratini" || first.Quality != 60 {
		t.Fatalf("первым ожидали Dratini с качеством 60, получили %s %d", first.Name, first.Quality)
	}
	if math.Abs(first.DistanceKm-1.0) > 1e-6 {
		t.Fatalf("ожидали расстояние 1 км, получили %v", first.DistanceKm)
	}
	if first.TimeLeft != 5*time.Minute {
		t.Fatalf("ожидали 5 минут до исчезновения, получили %v", first.TimeLeft)
	}
	if v, _ := res.Cursor.Value(); v != "1492322711" {
		t.Fatalf("ожидали курсор страницы, получили %s", v)
	}

	q.MinQuality = threshold(70)
	res = newEvaluator().Evaluate(page, q, now)
	if len(res.Sightings) != 1 || res.Sightings[0].Name != "Pikachu" {
		t.Fatalf("порог 70 должен исключить Dratini, получили %+v", res.Sightings)
	}
}

func TestEvaluateBoundaryExcluded(t *testing.T) {
	now := time.Now()
	raw := sighting(1, 1.2, 1, 1, 1, now)
	radius := geo.Distance(reference, raw.Position)
	res := newEvaluator().Evaluate(domain.FeedPage{Sightings: []domain.RawSighting{raw}}, domain.Query{Reference: reference, RadiusKm: radius}, now)
	if len(res.Sightings) != 0 {
		t.Fatal("появление ровно на границе радиуса не должно попадать в результат")
	}
}

func TestEvaluateDropsUnknownEntity(t *testing.T) {
	now := time.Now()
	page := domain.FeedPage{Sightings: []domain.RawSighting{
		sighting(999, 0.1, 1, 1, 1, now.Add(time.Minute)),
		sighting(1, 0.2, 1, 1, 1, now.Add(time.Minute)),
	}}
	res := newEvaluator().Evaluate(page, domain.Query{Reference: reference, RadiusKm: 1}, now)
	if res.Dropped != 1 {
		t.Fatalf("ожидали 1 отброшенную запись, получили %d", res.Dropped)
	}
	if len(res.Sightings) != 1 || res.Sightings[0].Name != "Bulbasaur" {
		t.Fatalf("остальная часть пачки должна обрабатываться, получили %+v", res.Sightings)
	}
}

func TestEvaluateDropsNonFiniteDistance(t *testing.T) {
	now := time.Now()
	broken := sighting(25, 0.1, 15, 15, 15, now.Add(time.Minute))
	broken.Position.Lat = math.NaN()
	page := domain.FeedPage{Sightings: []domain.RawSighting{
		broken,
		sighting(1, 0.2, 1, 1, 1, now.Add(time.Minute)),
	}}
	res := newEvaluator().Evaluate(page, domain.Query{Reference: reference, RadiusKm: 1}, now)
	if len(res.Sightings) != 1 || res.Sightings[0].Name != "Bulbasaur" {
		t.Fatalf("появление с NaN-координатой должно отбрасываться, получили %+v", res.Sightings)
	}
	if res.Dropped != 1 {
		t.Fatalf("ожидали 1 отброшенную запись, получили %d", res.Dropped)
	}
}

type failingIndex struct{}

func (failingIndex) Name(int) (string, error) { return "", errors.New("справочник недоступен") }

func TestEvaluateIndexErrorDropsAll(t *testing.T) {
	now := time.Now()
	page := domain.FeedPage{Sightings: []domain.RawSighting{sighting(1, 0.1, 1, 1, 1, now)}}
	res := NewEvaluator(failingIndex{}, zerolog.Nop()).Evaluate(page, domain.Query{Reference: reference, RadiusKm: 1}, now)
	if len(res.Sightings) != 0 || res.Dropped != 1 {
		t.Fatalf("ошибка справочника должна отбрасывать запись, получили %+v", res)
	}
}

func TestEvaluateCountsFilteredRecords(t *testing.T) {
	now := time.Now()
	page := domain.FeedPage{Sightings: []domain.RawSighting{
		sighting(1, 0.1, 15, 15, 15, now),
		sighting(25, 3, 15, 15, 15, now),
		sighting(147, 0.2, 0, 0, 0, now),
		sighting(999, 0.1, 15, 15, 15, now),
	}}
	res := newEvaluator().Evaluate(page, domain.Query{Reference: reference, RadiusKm: 1, MinQuality: threshold(50)}, now)
	if len(res.Sightings) != 1 || res.Dropped != 3 {
		t.Fatalf("ожидали 1 результат и 3 отброшенных, получили %d и %d", len(res.Sightings), res.Dropped)
	}
}

func TestEvaluateStaleSightingClamped(t *testing.T) {
	now := time.Now()
	page := domain.FeedPage{Sightings: []domain.RawSighting{sighting(1, 0.1, 1, 1, 1, now.Add(-time.Minute))}}
	res := newEvaluator().Evaluate(page, domain.Query{Reference: reference, RadiusKm: 1}, now)
	if len(res.Sightings) != 1 {
		t.Fatal("просроченное появление всё равно включается")
	}
	if res.Sightings[0].TimeLeft != 0 {
		t.Fatalf("оставшееся время должно быть 0, получили %v", res.Sightings[0].TimeLeft)
	}
}

func TestEvaluateSortedAndStable(t *testing.T) {
	now := time.Now()
	page := domain.FeedPage{Sightings: []domain.RawSighting{
		sighting(1, 3, 1, 1, 1, now),
		sighting(25, 0.5, 1, 1, 1, now),
		sighting(147, 2, 1, 1, 1, now),
		sighting(1, 0.5, 2, 2, 2, now),
		sighting(25, 4.5, 1, 1, 1, now),
	}}
	res := newEvaluator().Evaluate(page, domain.Query{Reference: reference, RadiusKm: 5}, now)
	if len(res.Sightings) != 5 {
		t.Fatalf("ожидали 5 появлений, получили %d", len(res.Sightings))
	}
	for i := 1; i < len(res.Sightings); i++ {
		if res.Sightings[i-1].DistanceKm > res.Sightings[i].DistanceKm {
			t.Fatalf("результат не отсортирован по расстоянию на позиции %d", i)
		}
	}
	if res.Sightings[0].EntityID != 25 || res.Sightings[1].EntityID != 1 {
		t.Fatal("при равном расстоянии должен сохраняться входной порядок")
	}
}

func TestEvaluateMonotonicFilters(t *testing.T) {
	now := time.Now()
	var raws []domain.RawSighting
	for i := 0; i < 40; i++ {
		km := float64(i%10)*0.55 + 0.05
		raws = append(raws, sighting([]int{1, 25, 147}[i%3], km, i%16, (i*7)%16, (i*11)%16, now))
	}
	page := domain.FeedPage{Sightings: raws}
	e := newEvaluator()

	key := func(s domain.EvaluatedSighting) domain.RawSighting { return s.RawSighting }
	set := func(items []domain.EvaluatedSighting) map[domain.RawSighting]int {
		m := make(map[domain.RawSighting]int)
		for _, it := range items {
			m[key(it)]++
		}
		return m
	}
	subset := func(a, b map[domain.RawSighting]int) bool {
		for k, n := range a {
			if b[k] < n {
				return false
			}
		}
		return true
	}

	radii := []float64{0.5, 1, 2, 3.3, 5}
	for i := 1; i < len(radii); i++ {
		small := e.Evaluate(page, domain.Query{Reference: reference, RadiusKm: radii[i-1]}, now)
		large := e.Evaluate(page, domain.Query{Reference: reference, RadiusKm: radii[i]}, now)
		if !subset(set(small.Sightings), set(large.Sightings)) {
			t.Fatalf("результат для радиуса %v не входит в результат для %v", radii[i-1], radii[i])
		}
	}

	thresholds := []int{0, 20, 50, 70, 100}
	for i := 1; i < len(thresholds); i++ {
		low := e.Evaluate(page, domain.Query{Reference: reference, RadiusKm: 5, MinQuality: threshold(thresholds[i-1])}, now)
		high := e.Evaluate(page, domain.Query{Reference: reference, RadiusKm: 5, MinQuality: threshold(thresholds[i])}, now)
		if !subset(set(high.Sightings), set(low.Sightings)) {
			t.Fatalf("результат для порога %d не входит в результат для %d", thresholds[i], thresholds[i-1])
		}
	}
}

func TestRefreshRecomputesTimeLeft(t *testing.T) {
	now := time.Now()
	items := []domain.EvaluatedSighting{{RawSighting: domain.RawSighting{DespawnAt: now.Add(3 * time.Minute)}, TimeLeft: time.Hour}}
	out := Refresh(items, now.Add(time.Minute))
	if out[0].TimeLeft != 2*time.Minute {
		t.Fatalf("ожидали 2 минуты, получили %v", out[0].TimeLeft)
	}
	if items[0].TimeLeft != time.Hour {
		t.Fatal("исходный срез не должен меняться")
	}
}
