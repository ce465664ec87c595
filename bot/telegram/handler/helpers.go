package handler

import (
	"strings"

	"github.com/hanaxu/OrderSong-Go/bot/session"
	"github.com/mymmrac/telego"
)

func commandArguments(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func commandName(text, botName string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	parts := strings.SplitN(text, " ", 2)
	command := strings.TrimPrefix(parts[0], "/")
	if command == "" {
		return ""
	}
	if strings.Contains(command, "@") {
		seg := strings.SplitN(command, "@", 2)
		command = seg[0]
		if botName != "" && len(seg) > 1 && seg[1] != "" && !strings.EqualFold(seg[1], botName) {
			return ""
		}
	}
	return command
}

func isCommandMessage(message *telego.Message) bool {
	if message == nil || message.Text == "" {
		return false
	}
	if !strings.HasPrefix(message.Text, "/") {
		return false
	}
	for _, entity := range message.Entities {
		if entity.Type == telego.EntityTypeBotCommand && entity.Offset == 0 {
			return true
		}
	}
	return false
}

func isPrivateChat(message *telego.Message) bool {
	return message != nil && message.Chat.Type == telego.ChatTypePrivate
}

// selectionKey maps a message to its conversation key. With group-wide
// selection every member of a chat shares one pending menu; otherwise
// each user gets their own.
func selectionKey(message *telego.Message, groupWide bool) session.Key {
	key := session.Key{ChatID: message.Chat.ID}
	if groupWide && !isPrivateChat(message) {
		return key
	}
	if message.From != nil {
		key.UserID = message.From.ID
	}
	return key
}

func replyParams(message *telego.Message) *telego.ReplyParameters {
	if message == nil {
		return nil
	}
	return &telego.ReplyParameters{MessageID: message.MessageID}
}
