package handler

import (
	"bytes"
	"context"
	"errors"
	"strings"

	botpkg "github.com/hanaxu/OrderSong-Go/bot"
	"github.com/hanaxu/OrderSong-Go/bot/menu"
	"github.com/hanaxu/OrderSong-Go/bot/retract"
	"github.com/hanaxu/OrderSong-Go/bot/session"
	"github.com/hanaxu/OrderSong-Go/bot/telegram"
	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"
)

// SearchHandler starts a selection: it runs the first-page search and
// posts the numbered menu.
type SearchHandler struct {
	Logger        botpkg.Logger
	Bot           *telegram.Bot
	Limiter       *telegram.RateLimiter
	Machine       *session.Machine
	ImageMenu     *menu.ImageMenu
	MenuOptions   menu.Options
	Retract       *retract.Scheduler
	RetractPolicy retract.Policy
	GroupWide     bool
}

func (h *SearchHandler) Handle(ctx context.Context, message *telego.Message) {
	keyword := message.Text
	if isCommandMessage(message) {
		keyword = commandArguments(message.Text)
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, inputKeyword, replyParams(message))
		return
	}

	key := selectionKey(message, h.GroupWide)
	release := h.Machine.Store().Acquire(key)
	defer release()

	tipID := sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, searching, replyParams(message))

	sel, err := h.Machine.Begin(ctx, key, keyword)
	if err != nil {
		text := searchFailed
		if errors.Is(err, session.ErrNoMoreResults) {
			text = noResults
		} else if h.Logger != nil {
			h.Logger.Warn("search failed", "keyword", keyword, "error", err)
		}
		sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, text, replyParams(message))
		h.retractTip(message.Chat.ID, tipID, false)
		return
	}

	menuID := h.sendMenu(ctx, message.Chat.ID, sel)
	if menuID == 0 {
		// The menu never reached the chat; a selection nobody can see is
		// only noise.
		h.Machine.Store().Delete(key)
		h.retractTip(message.Chat.ID, tipID, false)
		return
	}

	h.Machine.Store().AppendMenuMessages(key, menuID)
	h.retractTip(message.Chat.ID, tipID, true)
}

// sendMenu posts a result page and returns the sent message ID. The image
// menu, when configured, gets first try; the text menu is the fallback.
func (h *SearchHandler) sendMenu(ctx context.Context, chatID int64, sel *session.Selection) int {
	text := menu.Render(sel.Keyword, sel.Page, sel.Songs, h.MenuOptions)

	if h.ImageMenu != nil && h.ImageMenu.Available() {
		img, err := h.ImageMenu.Render(ctx, sel.Keyword, sel.Page, sel.Songs)
		if err == nil {
			params := &telego.SendPhotoParams{
				ChatID:  telego.ChatID{ID: chatID},
				Photo:   telegoutil.File(telegoutil.NameReader(bytes.NewReader(img), "menu.jpg")),
				Caption: text,
			}
			msg, sendErr := telegram.SendPhotoWithRetry(ctx, h.Limiter, h.Bot.UploadClient(), params)
			if sendErr == nil && msg != nil {
				return msg.MessageID
			}
		} else if h.Logger != nil {
			h.Logger.Warn("image menu render failed", "error", err)
		}
	}

	return sendText(ctx, h.Limiter, h.Bot.Client(), chatID, text, nil)
}

func (h *SearchHandler) retractTip(chatID int64, tipID int, success bool) {
	if h.Retract == nil || tipID == 0 {
		return
	}
	if !h.RetractPolicy.ShouldRetract(retract.CategoryTip, success) {
		return
	}
	h.Retract.Schedule(chatID, []int{tipID}, h.RetractPolicy.Delay)
}
