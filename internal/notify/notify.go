// Package notify is the notification-presenter collaborator: when a staff
// message arrives while the app is backgrounded, the connection manager asks
// a Notifier to surface it. The Telegram implementation mirrors how support
// alerts are delivered during development; the mobile shell swaps in the
// platform push presenter.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier presents a single chat notification to the user.
type Notifier interface {
	SendChatNotification(senderName, message, roomID string)
}

// Nop discards notifications. Used when no presenter is configured.
type Nop struct{}

func (Nop) SendChatNotification(senderName, message, roomID string) {}

// TelegramNotifier forwards chat notifications to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("Notifier authorized on account %s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) SendChatNotification(senderName, message, roomID string) {
	if senderName == "" {
		senderName = "Support"
	}
	text := fmt.Sprintf("💬 %s: %s", senderName, message)
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("ERROR: notify: failed to send notification for room %s: %v", roomID, err)
	}
}
