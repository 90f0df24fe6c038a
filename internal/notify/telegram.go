// Package notify delivers due-card reminders to a profile's linked Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/database"
)

// Sender is the part of the bot API the notifier needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends reminders through a bot
type Telegram struct {
	api    Sender
	logger *slog.Logger
}

// NewTelegram connects to the bot API with token
func NewTelegram(token string, logger *slog.Logger) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to telegram")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("telegram bot authorized", "account", api.Self.UserName)
	return NewTelegramWithSender(api, logger), nil
}

// NewTelegramWithSender wraps an existing sender
func NewTelegramWithSender(api Sender, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{api: api, logger: logger}
}

// SendReminder tells a profile how many cards are waiting
func (t *Telegram) SendReminder(ctx context.Context, r database.DueReminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(r.ChatID, ReminderText(r.Name, r.DueCount))
	if _, err := t.api.Send(msg); err != nil {
		return errors.Wrapf(err, "failed to send reminder to profile %d", r.ProfileID)
	}
	t.logger.Info("reminder sent", "profile_id", r.ProfileID, "due_count", r.DueCount)
	return nil
}

// ReminderText renders the reminder message
func ReminderText(name string, count int) string {
	noun := "cards"
	if count == 1 {
		noun = "card"
	}
	greeting := "Hi!"
	if name != "" {
		greeting = fmt.Sprintf("Hi, %s!", name)
	}
	return fmt.Sprintf("%s You have %d %s waiting for review. A short session keeps your streak alive.", greeting, count, noun)
}
