package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/metrics"
)

// Sender — часть tgbotapi.BotAPI, которой достаточно для отправки сообщений.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram отправляет уведомления в чат через Bot API.
type Telegram struct {
	bot    Sender
	chatID int64
}

var _ domain.Notifier = (*Telegram)(nil)

// NewTelegram создаёт клиента Bot API по токену.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

func NewTelegramWithSender(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Notify(ctx context.Context, event domain.FeedbackEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatEvent(event))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	start := time.Now()
	_, err := t.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(t.chatID, 10), start, err)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Log пишет уведомления в лог. Используется, когда токен бота не задан.
type Log struct {
	log zerolog.Logger
}

var _ domain.Notifier = (*Log)(nil)

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, event domain.FeedbackEvent) error {
	l.log.Info().
		Int64("feedback_id", event.FeedbackID).
		Str("freelancer", event.FreelancerName).
		Int("overall", event.OverallRating).
		Msg(FormatEvent(event))
	return nil
}
