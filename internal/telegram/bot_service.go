package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// LinkStore defines the storage methods required by the link commands.
type LinkStore interface {
	ConsumeTelegramLinkCode(ctx context.Context, code string, now time.Time) (uint, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByTelegramChat(ctx context.Context, chatID int64) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

const (
	replyLinked        = "This chat will now receive your grievance notifications."
	replyUnlinked      = "Notifications to this chat are switched off."
	replyUsage         = "Request a link code in your notification settings, then send /start <code> here."
	replyBadCode       = "That code is unknown or has expired. Request a new one in your notification settings."
	replyAlreadyLinked = "Your account already sends notifications to another chat. Send /stop there first."
	replyNotLinked     = "This chat is not linked to any account."
	replyFailure       = "An error occurred while processing your request. Please try again later."
)

// BotService receives Telegram updates and links chats to accounts.
type BotService struct {
	bot   BotAPI
	store LinkStore
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewBotService(bot BotAPI, store LinkStore, log logrus.FieldLogger) *BotService {
	return &BotService{
		bot:   bot,
		store: store,
		log:   logger.Or(log).WithField("component", "telegram_bot"),
		now:   time.Now,
	}
}

// Run polls for updates until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		s.bot.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		s.HandleCommand(ctx, update.Message)
	}
}

// HandleCommand processes /start <code> and /stop.
func (s *BotService) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var reply string
	switch msg.Command() {
	case "start":
		reply = s.link(ctx, msg.Chat.ID, strings.TrimSpace(msg.CommandArguments()))
	case "stop":
		reply = s.unlink(ctx, msg.Chat.ID)
	default:
		reply = replyUsage
	}

	if _, err := s.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		s.log.WithError(err).WithField("chat_id", msg.Chat.ID).Warn("failed to send bot reply")
	}
}

func (s *BotService) link(ctx context.Context, chatID int64, code string) string {
	if code == "" {
		return replyUsage
	}
	userID, err := s.store.ConsumeTelegramLinkCode(ctx, code, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return replyBadCode
	}
	if err != nil {
		s.log.WithError(err).Error("failed to redeem telegram link code")
		return replyFailure
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("failed to load user for telegram link")
		return replyFailure
	}
	if user.TelegramChatID != nil && *user.TelegramChatID != chatID {
		return replyAlreadyLinked
	}

	user.TelegramChatID = &chatID
	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to link telegram chat")
		return replyFailure
	}
	s.log.WithField("user_id", user.ID).Info("telegram chat linked")
	return replyLinked
}

func (s *BotService) unlink(ctx context.Context, chatID int64) string {
	user, err := s.store.GetUserByTelegramChat(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return replyNotLinked
	}
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("failed to load user for telegram unlink")
		return replyFailure
	}
	user.TelegramChatID = nil
	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to unlink telegram chat")
		return replyFailure
	}
	return replyUnlinked
}
