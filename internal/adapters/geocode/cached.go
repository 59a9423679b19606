package geocode

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/domain"
)

// Cached кэширует успешные ответы геокодера. Ошибки кэша не влияют на результат.
type Cached struct {
	next  domain.Geocoder
	cache domain.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCached оборачивает геокодер кэшем.
func NewCached(next domain.Geocoder, cache domain.Cache, ttl time.Duration, log zerolog.Logger) *Cached {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{next: next, cache: cache, ttl: ttl, log: log}
}

type cachedPlace struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
}

// Resolve возвращает адрес из кэша или обращается к геокодеру.
func (c *Cached) Resolve(ctx context.Context, address string) (domain.Place, error) {
	key := cacheKey(address)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var cp cachedPlace
		if err := json.Unmarshal(raw, &cp); err == nil {
			return domain.Place{Coordinate: domain.Coordinate{Lat: cp.Lat, Lon: cp.Lon}, Address: cp.Address}, nil
		}
		c.log.Warn().Str("key", key).Msg("geocode: битая запись в кэше")
	}

	place, err := c.next.Resolve(ctx, address)
	if err != nil {
		return domain.Place{}, err
	}
	raw, err := json.Marshal(cachedPlace{Lat: place.Coordinate.Lat, Lon: place.Coordinate.Lon, Address: place.Address})
	if err == nil {
		err = c.cache.Set(ctx, key, raw, c.ttl)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("geocode: не удалось сохранить в кэш")
	}
	return place, nil
}

func cacheKey(address string) string {
	return "geocode:" + strings.ToLower(NormalizeAddress(address))
}
