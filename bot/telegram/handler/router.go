package handler

import (
	"context"

	botpkg "github.com/hanaxu/OrderSong-Go/bot"
	"github.com/hanaxu/OrderSong-Go/bot/telegram"
	"github.com/mymmrac/telego"
)

// Router dispatches inbound updates to feature handlers. Reply handling
// runs before keyword search so a pending selection consumes its input
// first.
type Router struct {
	Logger  botpkg.Logger
	Bot     *telegram.Bot
	Limiter *telegram.RateLimiter

	Search  *SearchHandler
	Reply   *ReplyHandler
	About   MessageHandler
	RmCache MessageHandler

	BotName string
}

// Handle processes one update.
func (r *Router) Handle(ctx context.Context, update telego.Update) {
	message := update.Message
	if message == nil || message.Text == "" {
		return
	}

	if isCommandMessage(message) {
		r.handleCommand(ctx, message)
		return
	}

	if r.Reply != nil && r.Reply.Handle(ctx, message) {
		return
	}

	// Bare text in a private chat starts a new search. In groups it is
	// ignored unless a selection was pending.
	if isPrivateChat(message) && r.Search != nil {
		r.Search.Handle(ctx, message)
	}
}

func (r *Router) handleCommand(ctx context.Context, message *telego.Message) {
	switch commandName(message.Text, r.BotName) {
	case "start", "help":
		sendText(ctx, r.Limiter, r.Bot.Client(), message.Chat.ID, helpText, replyParams(message))
	case "song", "search":
		if r.Search != nil {
			r.Search.Handle(ctx, message)
		}
	case "about":
		if r.About != nil {
			r.About.Handle(ctx, message)
		}
	case "rmcache":
		if r.RmCache != nil {
			r.RmCache.Handle(ctx, message)
		}
	}
}
