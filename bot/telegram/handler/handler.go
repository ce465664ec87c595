package handler

import (
	"context"

	"github.com/hanaxu/OrderSong-Go/bot/telegram"
	"github.com/mymmrac/telego"
)

// MessageHandler handles one inbound message.
type MessageHandler interface {
	Handle(ctx context.Context, message *telego.Message)
}

// sendText sends a plain text reply through the rate limiter and returns
// the sent message ID (0 on failure).
func sendText(ctx context.Context, rl *telegram.RateLimiter, b *telego.Bot, chatID int64, text string, reply *telego.ReplyParameters) int {
	params := &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: chatID},
		Text:            text,
		ReplyParameters: reply,
	}
	msg, err := telegram.SendMessageWithRetry(ctx, rl, b, params)
	if err != nil || msg == nil {
		return 0
	}
	return msg.MessageID
}
