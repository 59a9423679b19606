package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Asia/Singapore"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL    string `envconfig:"TG_WEBHOOK_URL"`
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
		PollTimeout   int    `envconfig:"TG_POLL_TIMEOUT" default:"30"`
	} `envconfig:""`

	Geocode struct {
		APIKey   string        `envconfig:"GOOGLE_GEOCODE_API"`
		BaseURL  string        `envconfig:"GEOCODE_BASE_URL"`
		Timeout  time.Duration `envconfig:"GEOCODE_TIMEOUT" default:"10s"`
		CacheTTL time.Duration `envconfig:"GEOCODE_CACHE_TTL" default:"24h"`
	} `envconfig:""`

	Feed struct {
		URL     string        `envconfig:"FEED_URL" default:"https://sgpokemap.com/query2.php"`
		Referer string        `envconfig:"FEED_REFERER"`
		Timeout time.Duration `envconfig:"FEED_TIMEOUT" default:"15s"`
	} `envconfig:""`

	Data struct {
		PokedexFile string `envconfig:"POKEDEX_FILE" default:"pokemon.json"`
		WantFile    string `envconfig:"WANT_FILE" default:"want.txt"`
	} `envconfig:""`

	Monitor struct {
		Interval    time.Duration `envconfig:"MONITOR_INTERVAL" default:"90s"`
		Window      time.Duration `envconfig:"MONITOR_WINDOW" default:"1h"`
		Concurrency int           `envconfig:"MONITOR_CONCURRENCY" default:"4"`
		CallTimeout time.Duration `envconfig:"MONITOR_CALL_TIMEOUT" default:"20s"`
		PageSize    int           `envconfig:"LIST_PAGE_SIZE" default:"10"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`
}

// Location возвращает часовой пояс для вывода дедлайнов. При ошибке используется UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse разбирает окружение без завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
