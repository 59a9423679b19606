package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"tg-sighting-bot/internal/adapters/bot"
	"tg-sighting-bot/internal/adapters/feed"
	"tg-sighting-bot/internal/adapters/geocode"
	"tg-sighting-bot/internal/adapters/pokedex"
	"tg-sighting-bot/internal/adapters/repo"
	"tg-sighting-bot/internal/adapters/telegram"
	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/cache"
	"tg-sighting-bot/internal/infra/config"
	"tg-sighting-bot/internal/infra/db"
	infrahttp "tg-sighting-bot/internal/infra/http"
	"tg-sighting-bot/internal/infra/log"
	"tg-sighting-bot/internal/infra/metrics"
	"tg-sighting-bot/internal/usecase/monitor"
	"tg-sighting-bot/internal/usecase/sessions"
	"tg-sighting-bot/internal/usecase/sightings"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	component := func(name string) zerolog.Logger {
		return logger.With().Str("component", name).Logger()
	}
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }

	index, err := pokedex.Load(cfg.Data.PokedexFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.Data.PokedexFile).Msg("не удалось загрузить справочник")
	}
	watch, err := index.LoadWatchList(cfg.Data.WantFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.Data.WantFile).Msg("не удалось загрузить список отслеживаемых")
	}
	logger.Info().Int("entities", index.Len()).Int("watch", len(watch)).Msg("справочник загружен")

	var geocoder domain.Geocoder = geocode.NewGoogle(cfg.Geocode.APIKey, cfg.Geocode.BaseURL, cfg.Geocode.Timeout)
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn().Err(err).Msg("redis недоступен, геокодер работает без кэша")
		} else {
			defer client.Close()
			geocoder = geocode.NewCached(geocoder, cache.NewRedis(client, "sighting-bot:"), cfg.Geocode.CacheTTL, component("geocode"))
		}
	}

	var events domain.BusinessMetricRepo = domain.NopBusinessMetrics{}
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("не удалось подготовить таблицу событий")
		}
		events = pg
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("бот авторизован")
	sender := telegram.NewSender(botAPI, component("telegram"))

	store := sessions.NewStore(now)
	service := monitor.NewService(
		store,
		geocoder,
		feed.NewClient(cfg.Feed.URL, cfg.Feed.Referer, cfg.Feed.Timeout),
		sightings.NewEvaluator(index, component("evaluator")),
		events,
		monitor.Options{
			Window:      cfg.Monitor.Window,
			PageSize:    cfg.Monitor.PageSize,
			CallTimeout: cfg.Monitor.CallTimeout,
			EntityIDs:   watch,
		},
		component("monitor"),
	)
	scheduler := monitor.NewScheduler(service, store, sender, cfg.Monitor.Interval, cfg.Monitor.Concurrency, now, component("scheduler"))
	botLog := component("bot")
	handler := bot.NewHandler(service, sender, now, botLog)
	dispatcher := bot.NewDispatcher(ctx, handler, 0, botLog)

	srv := infrahttp.NewServer(component("http"), prometheus.DefaultGatherer)
	if cfg.Telegram.WebhookURL != "" {
		if err := telegram.SetWebhook(botAPI, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Fatal().Err(err).Msg("не удалось зарегистрировать вебхук")
		}
		srv.Router.With(infrahttp.WebhookSecretMiddleware(cfg.Telegram.WebhookSecret)).
			Post("/bot/webhook", bot.WebhookHandler(dispatcher, botLog))
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("режим вебхука")
	} else {
		if err := telegram.DeleteWebhook(botAPI); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять вебхук")
		}
		go bot.Consume(ctx, telegram.NewPoller(botAPI, cfg.Telegram.PollTimeout, botLog), dispatcher, botLog)
	}

	go scheduler.Run(ctx)
	go func() {
		if err := srv.Start(cfg.Port); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	dispatcher.Close()
	logger.Info().Int("sessions", store.Len()).Msg("бот остановлен")
}

