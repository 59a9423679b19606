package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Google: клиент Google Geocoding API.
type Google struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewGoogle создаёт клиента геокодера.
func NewGoogle(apiKey, baseURL string, timeout time.Duration) *Google {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Google{http: &http.Client{Timeout: timeout}, baseURL: baseURL, apiKey: apiKey}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve переводит адрес или plus code в координаты. Берётся первый результат.
func (g *Google) Resolve(ctx context.Context, address string) (domain.Place, error) {
	address = NormalizeAddress(address)
	if address == "" {
		return domain.Place{}, domain.ErrInvalidAddress
	}
	params := url.Values{}
	params.Set("address", address)
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("geocode: build request: %w", err)
	}

	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("geocode", "resolve", start, err)
		return domain.Place{}, fmt.Errorf("%w: geocode: do request: %w", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("geocode", "resolve", start, err)
		return domain.Place{}, fmt.Errorf("%w: geocode: read response: %w", domain.ErrProvider, err)
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("%w: geocode: unexpected status %d", domain.ErrProvider, resp.StatusCode)
		metrics.ObserveNetworkRequest("geocode", "resolve", start, err)
		return domain.Place{}, err
	}
	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.ObserveNetworkRequest("geocode", "resolve", start, err)
		return domain.Place{}, fmt.Errorf("%w: geocode: decode response: %w", domain.ErrProvider, err)
	}
	metrics.ObserveNetworkRequest("geocode", "resolve", start, nil)

	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS":
		return domain.Place{}, domain.ErrAddressNotFound
	case "INVALID_REQUEST":
		return domain.Place{}, domain.ErrInvalidAddress
	default:
		return domain.Place{}, fmt.Errorf("%w: geocode: status %s %s", domain.ErrProvider, parsed.Status, parsed.ErrorMessage)
	}
	if len(parsed.Results) == 0 {
		return domain.Place{}, domain.ErrAddressNotFound
	}
	first := parsed.Results[0]
	formatted := first.FormattedAddress
	if formatted == "" {
		formatted = address
	}
	return domain.Place{
		Coordinate: domain.Coordinate{Lat: first.Geometry.Location.Lat, Lon: first.Geometry.Location.Lng},
		Address:    formatted,
	}, nil
}

// IsPlusCode сообщает, похож ли ввод на полный plus code вида 6PH58V74+G3.
func IsPlusCode(s string) bool {
	if len(s) != 11 || s[8] != '+' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if i == 8 {
			continue
		}
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

// NormalizeAddress убирает лишние пробелы и приводит plus code к верхнему регистру.
func NormalizeAddress(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if IsPlusCode(s) {
		return strings.ToUpper(s)
	}
	return s
}
