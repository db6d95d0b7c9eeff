package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramDeliverer sends reminders as bot messages to one chat.
type TelegramDeliverer struct {
	sender messageSender
	chatID int64
}

// NewTelegramDeliverer connects to the bot API with token. chatID is the
// numeric chat that receives reminders.
func NewTelegramDeliverer(token, chatID string) (*TelegramDeliverer, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return &TelegramDeliverer{sender: bot, chatID: id}, nil
}

func (t *TelegramDeliverer) Deliver(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, telegramText(req))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

func telegramText(req Request) string {
	return fmt.Sprintf("*%s*\n\n%s", escapeMarkdown(req.Title), escapeMarkdown(req.Body))
}

// escapeMarkdown escapes the characters legacy Markdown mode treats as markup.
func escapeMarkdown(text string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(text)
}
