package domain

import "time"

// Coordinate задаёт точку в десятичных градусах.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Place описывает результат геокодирования.
type Place struct {
	Coordinate Coordinate
	Address    string
}

// RawSighting описывает появление сущности в том виде, как его отдаёт фид.
type RawSighting struct {
	EntityID  int
	Position  Coordinate
	Attack    int
	Defence   int
	Stamina   int
	DespawnAt time.Time
}

// EvaluatedSighting: появление после фильтрации и оценки относительно точки пользователя.
type EvaluatedSighting struct {
	RawSighting
	Name       string
	DistanceKm float64
	Quality    int
	TimeLeft   time.Duration
}

// FeedPage: один ответ фида: появления и курсор для следующего запроса.
type FeedPage struct {
	Sightings []RawSighting
	Cursor    Cursor
}

// Query задаёт параметры оценки появлений.
type Query struct {
	Reference  Coordinate
	RadiusKm   float64
	MinQuality *int
}

// Evaluation: результат оценки одной страницы фида.
type Evaluation struct {
	Sightings []EvaluatedSighting
	Cursor    Cursor
	// Dropped: сколько записей страницы не прошло фильтры.
	Dropped   int
}

// InboundMessage: входящее сообщение транспорта.
type InboundMessage struct {
	UpdateID    int
	ChatID      int64
	UserID      int64
	Username    string
	FirstName   string
	Text        string
	Unsupported bool
}

// MaxSubstatSum: максимальная сумма трёх характеристик (по 15 на каждую).
const MaxSubstatSum = 45

// QualityScore возвращает оценку качества 0..100 по трём характеристикам.
func QualityScore(attack, defence, stamina int) int {
	sum := attack + defence + stamina
	if sum <= 0 {
		return 0
	}
	score := sum * 100 / MaxSubstatSum
	if score > 100 {
		return 100
	}
	return score
}
