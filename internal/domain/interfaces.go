package domain

import (
	"context"
	"time"
)

// Geocoder переводит адрес или plus code в координаты.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (Place, error)
}

// SightingFeed запрашивает появления, вставленные после курсора.
type SightingFeed interface {
	Query(ctx context.Context, cursor Cursor, entityIDs []int) (FeedPage, error)
}

// EntityIndex: статический справочник имён сущностей.
type EntityIndex interface {
	Name(entityID int) (string, error)
}

// Messenger отправляет ответы в чат.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendLocation(ctx context.Context, chatID int64, at Coordinate) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
