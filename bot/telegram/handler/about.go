package handler

import (
	"context"
	"fmt"

	"github.com/hanaxu/OrderSong-Go/bot/telegram"
	"github.com/mymmrac/telego"
)

// AboutHandler handles /about.
type AboutHandler struct {
	Bot        *telegram.Bot
	Limiter    *telegram.RateLimiter
	BinVersion string
	BuildTime  string
	RuntimeVer string
}

func (h *AboutHandler) Handle(ctx context.Context, message *telego.Message) {
	msg := fmt.Sprintf(aboutText, h.BinVersion, h.BuildTime, h.RuntimeVer)
	sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, msg, replyParams(message))
}
