package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-sighting-bot/internal/infra/metrics"
)

// webhookAPI: часть tgbotapi.BotAPI для управления вебхуком.
type webhookAPI interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// SetWebhook регистрирует вебхук. secret передаётся в secret_token, и Telegram
// возвращает его в заголовке каждого запроса.
func SetWebhook(api webhookAPI, link, secret string) error {
	params := tgbotapi.Params{"url": link}
	params.AddNonEmpty("secret_token", secret)
	params["allowed_updates"] = `["message"]`
	start := time.Now()
	_, err := api.MakeRequest("setWebhook", params)
	metrics.ObserveNetworkRequest("telegram_bot", "set_webhook", start, err)
	if err != nil {
		return fmt.Errorf("telegram: set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook снимает вебхук, чтобы работал getUpdates.
func DeleteWebhook(api webhookAPI) error {
	start := time.Now()
	_, err := api.Request(tgbotapi.DeleteWebhookConfig{})
	metrics.ObserveNetworkRequest("telegram_bot", "delete_webhook", start, err)
	if err != nil {
		return fmt.Errorf("telegram: delete webhook: %w", err)
	}
	return nil
}
