package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"security-hub/internal/config"
	"security-hub/internal/logging"
	"security-hub/internal/models"
	"security-hub/internal/utils"
)

// Telegram sends alarm notifications to one chat.
type Telegram struct {
	token   string
	chatID  int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewTelegram returns nil when no bot token is configured.
func NewTelegram(cfg config.Config, logger *logging.Logger) (*Telegram, error) {
	if cfg.Telegram.BotToken == "" {
		return nil, nil
	}
	if cfg.Telegram.ChatID == 0 {
		return nil, fmt.Errorf("missing TELEGRAM_CHAT_ID for configured bot")
	}
	perSecond := cfg.Telegram.RateLimit
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Telegram{
		token:   cfg.Telegram.BotToken,
		chatID:  cfg.Telegram.ChatID,
		limiter: rate.NewLimiter(rate.Limit(float64(perSecond)), perSecond),
		logger:  logger,
	}, nil
}

// Send delivers notif, retrying transient failures.
func (t *Telegram) Send(ctx context.Context, notif models.Notification) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := FormatTelegram(notif)
	return utils.Retry(t.logger, 3, time.Second, func() error {
		b, err := bot.New(t.token)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}

// FormatTelegram renders the Markdown message body.
func FormatTelegram(notif models.Notification) string {
	a := notif.Alert
	return fmt.Sprintf(
		"*%s*\n%s\n\n"+
			"*Device:* %s (%s)\n"+
			"*Sensor:* %s\n"+
			"*State:* %s\n"+
			"*Alert ID:* %d",
		notif.Subject,
		notif.Body,
		a.DeviceName, a.DeviceID,
		a.Channel,
		a.Value,
		a.ID,
	)
}
