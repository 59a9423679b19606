package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://sgpokemap.com/query2.php"

// Client запрашивает появления у карты-агрегатора по курсору "since".
type Client struct {
	http    *http.Client
	baseURL string
	referer string
}

// NewClient создаёт клиента фида.
func NewClient(baseURL, referer string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if referer == "" {
		if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
			referer = u.Scheme + "://" + u.Host + "/"
		}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}, baseURL: baseURL, referer: referer}
}

type queryResponse struct {
	Pokemons []rawRecord `json:"pokemons"`
	Meta     struct {
		Inserted flexString `json:"inserted"`
	} `json:"meta"`
}

type rawRecord struct {
	PokemonID flexString `json:"pokemon_id"`
	Lat       flexString `json:"lat"`
	Lng       flexString `json:"lng"`
	Despawn   flexString `json:"despawn"`
	Attack    flexString `json:"attack"`
	Defence   flexString `json:"defence"`
	Stamina   flexString `json:"stamina"`
}

// flexString принимает как строки, так и числа JSON.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(data)
	return nil
}

// Query запрашивает появления, вставленные после курсора. Незаданный курсор
// передаётся как since=0 и возвращает все активные появления.
func (c *Client) Query(ctx context.Context, cursor domain.Cursor, entityIDs []int) (domain.FeedPage, error) {
	since, ok := cursor.Value()
	if !ok {
		since = "0"
	}
	params := url.Values{}
	params.Set("since", since)
	if len(entityIDs) > 0 {
		ids := make([]string, len(entityIDs))
		for i, id := range entityIDs {
			ids[i] = strconv.Itoa(id)
		}
		params.Set("mons", strings.Join(ids, ","))
	}
	endpoint := c.baseURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + params.Encode()
	} else {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.FeedPage{}, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("feed", "query", start, err)
		return domain.FeedPage{}, fmt.Errorf("%w: feed: do request: %w", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("feed", "query", start, err)
		return domain.FeedPage{}, fmt.Errorf("%w: feed: read response: %w", domain.ErrProvider, err)
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("%w: feed: unexpected status %d", domain.ErrProvider, resp.StatusCode)
		metrics.ObserveNetworkRequest("feed", "query", start, err)
		return domain.FeedPage{}, err
	}
	var parsed queryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.ObserveNetworkRequest("feed", "query", start, err)
		return domain.FeedPage{}, fmt.Errorf("%w: feed: decode response: %w", domain.ErrProvider, err)
	}
	metrics.ObserveNetworkRequest("feed", "query", start, nil)

	page := domain.FeedPage{
		Cursor:    domain.NewCursor(string(parsed.Meta.Inserted)),
		Sightings: make([]domain.RawSighting, 0, len(parsed.Pokemons)),
	}
	for _, rec := range parsed.Pokemons {
		s, err := rec.toDomain()
		if err != nil {
			metrics.IncSightingDropped("malformed")
			continue
		}
		page.Sightings = append(page.Sightings, s)
	}
	return page, nil
}

func (r rawRecord) toDomain() (domain.RawSighting, error) {
	id, err := strconv.Atoi(string(r.PokemonID))
	if err != nil {
		return domain.RawSighting{}, fmt.Errorf("pokemon_id: %w", err)
	}
	lat, err := strconv.ParseFloat(string(r.Lat), 64)
	if err != nil {
		return domain.RawSighting{}, fmt.Errorf("lat: %w", err)
	}
	lng, err := strconv.ParseFloat(string(r.Lng), 64)
	if err != nil {
		return domain.RawSighting{}, fmt.Errorf("lng: %w", err)
	}
	if !validCoordinate(lat, 90) || !validCoordinate(lng, 180) {
		return domain.RawSighting{}, fmt.Errorf("coordinates out of range: %v, %v", lat, lng)
	}
	despawn, err := strconv.ParseInt(string(r.Despawn), 10, 64)
	if err != nil {
		return domain.RawSighting{}, fmt.Errorf("despawn: %w", err)
	}
	return domain.RawSighting{
		EntityID:  id,
		Position:  domain.Coordinate{Lat: lat, Lon: lng},
		Attack:    substat(r.Attack),
		Defence:   substat(r.Defence),
		Stamina:   substat(r.Stamina),
		DespawnAt: time.Unix(despawn, 0),
	}, nil
}

// validCoordinate отсекает NaN, бесконечности и значения за пределами [-limit, limit].
func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= limit
}

// substat разбирает характеристику; отсутствующая или некорректная считается нулём.
func substat(v flexString) int {
	n, err := strconv.Atoi(string(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
