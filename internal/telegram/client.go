// Package telegram delivers notifications to users who linked a Telegram chat
// and handles the bot commands that create that link.
package telegram

import (
	"context"
	"fmt"
	"html"

	"grievancedesk/backend/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// BotAPI is the part of *tgbotapi.BotAPI used here.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// NewBotAPI authorises against Telegram with token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = false
	logger.Log.WithField("account", bot.Self.UserName).Info("telegram bot authorized")
	return bot, nil
}

// PushSender sends notification text to a chat.
type PushSender struct {
	bot BotAPI
	log logrus.FieldLogger
}

func NewPushSender(bot BotAPI, log logrus.FieldLogger) *PushSender {
	return &PushSender{bot: bot, log: logger.Or(log).WithField("component", "telegram_push")}
}

// FormatPush renders a notification as Telegram HTML.
func FormatPush(title, message string) string {
	return "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(message)
}

func (p *PushSender) SendPush(ctx context.Context, chatID int64, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, FormatPush(title, message))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := p.bot.Send(msg); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	p.log.WithField("chat_id", chatID).Debug("push delivered")
	return nil
}
