package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	botpkg "github.com/hanaxu/OrderSong-Go/bot"
	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
	"github.com/hanaxu/OrderSong-Go/bot/delivery"
	"github.com/hanaxu/OrderSong-Go/bot/retract"
	"github.com/hanaxu/OrderSong-Go/bot/session"
	"github.com/hanaxu/OrderSong-Go/bot/telegram"
	"github.com/mymmrac/telego"
)

const deliverTimeout = 10 * time.Minute

// ReplyHandler intercepts text while a selection is pending: exit words,
// page words and numeric picks. Anything else is left for the regular
// handlers.
type ReplyHandler struct {
	Logger        botpkg.Logger
	Bot           *telegram.Bot
	Limiter       *telegram.RateLimiter
	Sender        *telegram.VoiceSender
	Machine       *session.Machine
	Tokens        session.Tokens
	Aggregator    *aggregator.Client
	Pipeline      *delivery.Pipeline
	Retract       *retract.Scheduler
	RetractPolicy retract.Policy
	Cache         botpkg.VoiceCache
	Pool          botpkg.WorkerPool
	Quality       int
	SkipFragile   bool
	GroupWide     bool

	// Search posts refreshed menus after page turns.
	Search *SearchHandler
}

// Handle returns true when the message was consumed as selection input.
func (h *ReplyHandler) Handle(ctx context.Context, message *telego.Message) bool {
	key := selectionKey(message, h.GroupWide)

	release := h.Machine.Store().Acquire(key)

	if _, ok := h.Machine.Store().Get(key); !ok {
		release()
		return false
	}

	cmd := session.Classify(message.Text, h.Tokens)
	if cmd.Action == session.ActionNone {
		release()
		return false
	}

	switch cmd.Action {
	case session.ActionExit:
		h.handleExit(ctx, message, key)
		release()

	case session.ActionNextPage:
		h.handleTurn(ctx, message, key, +1)
		release()

	case session.ActionPrevPage:
		h.handleTurn(ctx, message, key, -1)
		release()

	case session.ActionSelect:
		song, snapshot, err := h.Machine.Pick(key, cmd.Index)
		release()
		if err != nil {
			h.handlePickError(ctx, message, snapshot, err)
			return true
		}
		h.deliver(ctx, message, song, snapshot)
	}

	return true
}

func (h *ReplyHandler) handleExit(ctx context.Context, message *telego.Message, key session.Key) {
	menuIDs, ok := h.Machine.Exit(key)
	if !ok {
		return
	}
	sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, exitDone, replyParams(message))
	h.retractMenu(message.Chat.ID, menuIDs, true)
}

func (h *ReplyHandler) handleTurn(ctx context.Context, message *telego.Message, key session.Key, delta int) {
	sel, err := h.Machine.TurnPage(ctx, key, delta)
	if err != nil {
		text := searchFailed
		switch {
		case errors.Is(err, session.ErrFirstPage):
			text = alreadyFirstPage
		case errors.Is(err, session.ErrNoMoreResults):
			text = noMorePages
		case errors.Is(err, session.ErrNoSelection):
			text = selectionExpired
		default:
			if h.Logger != nil {
				h.Logger.Warn("page turn failed", "error", err)
			}
		}
		sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, text, replyParams(message))
		return
	}

	menuID := h.Search.sendMenu(ctx, message.Chat.ID, sel)
	if menuID != 0 {
		h.Machine.Store().AppendMenuMessages(key, menuID)
	}
}

func (h *ReplyHandler) handlePickError(ctx context.Context, message *telego.Message, snapshot session.Selection, err error) {
	text := selectionExpired
	if errors.Is(err, session.ErrInvalidIndex) {
		text = indexOutOfRange
		h.retractMenu(message.Chat.ID, snapshot.MenuMessageIDs, false)
	}
	sendText(ctx, h.Limiter, h.Bot.Client(), message.Chat.ID, text, replyParams(message))
}

// deliver runs the full resolve-and-send path on the worker pool. The
// pending selection is already removed; on failure it is reinstalled when
// the keep-on-failure policy says so.
func (h *ReplyHandler) deliver(parent context.Context, message *telego.Message, song aggregator.Song, snapshot session.Selection) {
	chatID := message.Chat.ID
	tipID := sendText(parent, h.Limiter, h.Bot.Client(), chatID, fetchingSong, replyParams(message))

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()

		err := h.deliverOnce(ctx, chatID, song)
		if err == nil {
			h.retractTip(chatID, tipID, true)
			h.retractMenu(chatID, snapshot.MenuMessageIDs, true)
			return
		}

		if h.Logger != nil {
			h.Logger.Warn("delivery failed",
				"chat_id", chatID,
				"track_id", song.ID,
				"title", song.Title,
				"error", err,
			)
		}
		sendText(ctx, h.Limiter, h.Bot.Client(), chatID, deliverErrorText(err), nil)
		h.retractTip(chatID, tipID, false)
		if h.RetractPolicy.KeepMenuOnFailure {
			h.Machine.Restore(snapshot)
		} else {
			h.retractMenu(chatID, snapshot.MenuMessageIDs, false)
		}
	}

	if h.Pool != nil {
		if err := h.Pool.Submit(run); err == nil {
			return
		}
	}
	run()
}

func (h *ReplyHandler) deliverOnce(ctx context.Context, chatID int64, song aggregator.Song) error {
	caption := song.Title
	if song.Artist != "" {
		caption += " - " + song.Artist
	}

	if h.sendFromCache(ctx, chatID, song, caption) {
		return nil
	}

	policy := h.Pipeline.Policy()
	audio, err := h.Aggregator.Resolve(ctx, song, h.Quality, aggregator.ResolveOptions{
		RequireDirect: policy.Mode == delivery.ModeDirectLink && !policy.ForceTranscode,
		SkipFragile:   h.SkipFragile,
	})
	if err != nil {
		return err
	}

	result, err := h.Pipeline.Deliver(ctx, delivery.Request{
		ChatID:      chatID,
		Audio:       audio,
		DurationSec: song.DurationSec,
		Caption:     caption,
	})
	if err != nil {
		return err
	}

	h.saveCache(ctx, song, result.MessageID)
	return nil
}

func (h *ReplyHandler) sendFromCache(ctx context.Context, chatID int64, song aggregator.Song, caption string) bool {
	if h.Cache == nil || h.Sender == nil {
		return false
	}
	entry, err := h.Cache.Find(ctx, song.Source, song.ID, h.Quality)
	if err != nil || entry == nil || entry.FileID == "" {
		return false
	}
	if _, err := h.Sender.SendVoiceFileID(ctx, chatID, entry.FileID, caption); err != nil {
		// A stale file ID is dropped so the next attempt re-uploads.
		_ = h.Cache.DeleteByTrack(ctx, song.Source, song.ID)
		return false
	}
	return true
}

// saveCache keys the entry on the requested quality so the next lookup
// for the same request hits it, whatever tier resolution actually landed
// on.
func (h *ReplyHandler) saveCache(ctx context.Context, song aggregator.Song, messageID int) {
	if h.Cache == nil || h.Sender == nil {
		return
	}
	fileID := h.Sender.UploadedFileID(messageID)
	if fileID == "" {
		return
	}
	entry := &botpkg.VoiceEntry{
		Source:   song.Source,
		TrackID:  song.ID,
		Bitrate:  h.Quality,
		FileID:   fileID,
		Title:    song.Title,
		Artist:   song.Artist,
		Duration: song.DurationSec,
	}
	if err := h.Cache.Save(ctx, entry); err != nil && h.Logger != nil {
		h.Logger.Warn("voice cache save failed", "track_id", song.ID, "error", err)
	}
}

func (h *ReplyHandler) retractTip(chatID int64, tipID int, success bool) {
	if h.Retract == nil || tipID == 0 {
		return
	}
	if !h.RetractPolicy.ShouldRetract(retract.CategoryTip, success) {
		return
	}
	h.Retract.Schedule(chatID, []int{tipID}, h.RetractPolicy.Delay)
}

func (h *ReplyHandler) retractMenu(chatID int64, menuIDs []int, success bool) {
	if h.Retract == nil || len(menuIDs) == 0 {
		return
	}
	if !h.RetractPolicy.ShouldRetract(retract.CategoryMenu, success) {
		return
	}
	h.Retract.Schedule(chatID, menuIDs, h.RetractPolicy.Delay)
}

func deliverErrorText(err error) string {
	var durErr *delivery.DurationExceededError
	switch {
	case errors.As(err, &durErr):
		return fmt.Sprintf(durationTooLong, durErr.DurationSec, durErr.LimitSec)
	case errors.Is(err, delivery.ErrCapabilityUnavailable):
		return noTranscoder
	case errors.Is(err, aggregator.ErrNoUsableURL):
		return resolveFailed
	case errors.Is(err, aggregator.ErrUpstream):
		return upstreamFailed
	case errors.Is(err, delivery.ErrSendFailed):
		return sendFailed
	default:
		return fmt.Sprintf(deliverFailed, err)
	}
}
