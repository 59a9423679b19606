package geo

import (
	"math"

	"tg-sighting-bot/internal/domain"
)

// EarthRadiusKm: средний радиус Земли, используемый для расчёта расстояний.
// Точность ниже 100 м не гарантируется.
const EarthRadiusKm = 6367.0

// Distance вычисляет расстояние по большому кругу между двумя точками в километрах (формула гаверсинусов).
func Distance(a, b domain.Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
