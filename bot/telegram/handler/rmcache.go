package handler

import (
	"context"
	"fmt"
	"strings"

	botpkg "github.com/hanaxu/OrderSong-Go/bot"
	"github.com/hanaxu/OrderSong-Go/bot/telegram"
	"github.com/mymmrac/telego"
)

// RmCacheHandler handles /rmcache. Admin only.
type RmCacheHandler struct {
	Logger   botpkg.Logger
	Bot      *telegram.Bot
	Limiter  *telegram.RateLimiter
	Cache    botpkg.VoiceCache
	Source   string
	AdminIDs map[int64]struct{}
}

func isBotAdmin(adminIDs map[int64]struct{}, userID int64) bool {
	if len(adminIDs) == 0 {
		return false
	}
	_, ok := adminIDs[userID]
	return ok
}

func (h *RmCacheHandler) Handle(ctx context.Context, message *telego.Message) {
	if h.Cache == nil {
		return
	}
	if message.From == nil || !isBotAdmin(h.AdminIDs, message.From.ID) {
		sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, adminOnly, replyParams(message))
		return
	}

	args := strings.TrimSpace(commandArguments(message.Text))
	if args == "" {
		sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, rmcacheUsage, replyParams(message))
		return
	}

	if strings.EqualFold(args, "all") {
		removed, err := h.Cache.DeleteAll(ctx)
		if err != nil {
			if h.Logger != nil {
				h.Logger.Error("cache clear failed", "error", err)
			}
			sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, rmcacheFailed, replyParams(message))
			return
		}
		sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, fmt.Sprintf(rmcacheAllDone, removed), replyParams(message))
		return
	}

	source, trackID := h.Source, args
	if fields := strings.Fields(args); len(fields) == 2 {
		source, trackID = fields[0], fields[1]
	}

	if err := h.Cache.DeleteByTrack(ctx, source, trackID); err != nil {
		if h.Logger != nil {
			h.Logger.Error("cache delete failed", "track_id", trackID, "error", err)
		}
		sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, rmcacheFailed, replyParams(message))
		return
	}
	sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, fmt.Sprintf(rmcacheTrackDone, trackID), replyParams(message))
}
