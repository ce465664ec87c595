package telegram

import (
	"bytes"
	"context"
	"sync"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"
)

const maxRememberedUploads = 4096

// VoiceSender sends voice messages through the upload client and deletes
// messages through the polling client, both behind the rate limiter. It
// records the file ID of each upload so successful sends can be cached.
type VoiceSender struct {
	bot     *Bot
	limiter *RateLimiter

	mu      sync.Mutex
	fileIDs map[int]string
}

func NewVoiceSender(bot *Bot, limiter *RateLimiter) *VoiceSender {
	return &VoiceSender{bot: bot, limiter: limiter, fileIDs: make(map[int]string)}
}

// SendVoiceURL lets Telegram fetch the audio itself.
func (s *VoiceSender) SendVoiceURL(ctx context.Context, chatID int64, url string, durationSec int, caption string) (int, error) {
	params := &telego.SendVoiceParams{
		ChatID:   telego.ChatID{ID: chatID},
		Voice:    telegoutil.FileFromURL(url),
		Caption:  caption,
		Duration: durationSec,
	}
	msg, err := SendVoiceWithRetry(ctx, s.limiter, s.bot.UploadClient(), params)
	if err != nil {
		return 0, err
	}
	s.remember(msg)
	return msg.MessageID, nil
}

// SendVoiceBytes uploads an encoded voice payload.
func (s *VoiceSender) SendVoiceBytes(ctx context.Context, chatID int64, name string, data []byte, durationSec int, caption string) (int, error) {
	params := &telego.SendVoiceParams{
		ChatID:   telego.ChatID{ID: chatID},
		Voice:    telegoutil.File(telegoutil.NameReader(bytes.NewReader(data), name)),
		Caption:  caption,
		Duration: durationSec,
	}
	msg, err := SendVoiceWithRetry(ctx, s.limiter, s.bot.UploadClient(), params)
	if err != nil {
		return 0, err
	}
	s.remember(msg)
	return msg.MessageID, nil
}

// SendVoiceFileID resends a previously uploaded voice by its file ID.
func (s *VoiceSender) SendVoiceFileID(ctx context.Context, chatID int64, fileID string, caption string) (int, error) {
	params := &telego.SendVoiceParams{
		ChatID:  telego.ChatID{ID: chatID},
		Voice:   telegoutil.FileFromID(fileID),
		Caption: caption,
	}
	msg, err := SendVoiceWithRetry(ctx, s.limiter, s.bot.UploadClient(), params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// VoiceFileID extracts the uploaded file ID from a sent message so the
// upload can be reused later.
func VoiceFileID(msg *telego.Message) string {
	if msg == nil || msg.Voice == nil {
		return ""
	}
	return msg.Voice.FileID
}

// UploadedFileID returns the voice file ID recorded for a sent message,
// or empty when unknown.
func (s *VoiceSender) UploadedFileID(messageID int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileIDs[messageID]
}

func (s *VoiceSender) remember(msg *telego.Message) {
	fileID := VoiceFileID(msg)
	if fileID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fileIDs) >= maxRememberedUploads {
		s.fileIDs = make(map[int]string)
	}
	s.fileIDs[msg.MessageID] = fileID
}

// DeleteMessage removes one message.
func (s *VoiceSender) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return DeleteMessageWithRetry(ctx, s.limiter, s.bot.Client(), &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		MessageID: messageID,
	})
}
