package services

import (
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// NotifyService posts operational alerts to a Telegram chat. Outbound only;
// a nil *NotifyService is a valid no-op.
type NotifyService struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewNotifyService(botToken string, chatID int64) (*NotifyService, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &NotifyService{bot: bot, chatID: chatID}, nil
}

// SignInAlert reports an elevated-role sign-in to the ops chat. Failures are
// logged and swallowed; alerting must never affect the login flow.
func (n *NotifyService) SignInAlert(email string, roleID int, at time.Time) {
	if n == nil || n.bot == nil || n.chatID == 0 {
		return
	}
	text := fmt.Sprintf("Elevated sign-in: %s (role %d) at %s", email, roleID, at.Format(time.RFC3339))
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("[notify][signin] telegram send failed: %v", err)
	}
}
