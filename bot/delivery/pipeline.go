package delivery

import (
	"context"
	"fmt"

	"github.com/hanaxu/OrderSong-Go/bot"
	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
)

// Mode selects how resolved audio is delivered.
type Mode int

const (
	// ModeDirectLink streams the resolved URL as-is whenever possible.
	ModeDirectLink Mode = iota

	// ModeBuffer always downloads and re-encodes before sending.
	ModeBuffer
)

// ParseMode maps a config string to a Mode; anything but "buffer" is
// direct-link.
func ParseMode(s string) Mode {
	if s == "buffer" {
		return ModeBuffer
	}
	return ModeDirectLink
}

// Policy is the static delivery configuration.
type Policy struct {
	Mode Mode

	// ForceTranscode sends every payload through the transcode path even
	// in direct-link mode.
	ForceTranscode bool

	// MaxDurationSec rejects songs longer than this before any network
	// transfer; 0 disables the cap.
	MaxDurationSec int
}

// Request is one delivery order.
type Request struct {
	ChatID      int64
	Audio       *aggregator.ResolvedAudio
	DurationSec int
	Caption     string
}

// Result reports what was sent.
type Result struct {
	MessageID int

	// Transcoded is true when the payload went through the
	// download-transcode-encode path.
	Transcoded bool
}

// Pipeline turns resolved audio into a sent voice message.
type Pipeline struct {
	policy     Policy
	downloader Downloader
	transcoder Transcoder
	encoder    VoiceEncoder
	sender     Sender
	logger     bot.Logger
}

// NewPipeline wires a Pipeline. transcoder and encoder may be nil when
// the respective collaborator is not configured.
func NewPipeline(policy Policy, downloader Downloader, transcoder Transcoder, encoder VoiceEncoder, sender Sender, logger bot.Logger) *Pipeline {
	return &Pipeline{
		policy:     policy,
		downloader: downloader,
		transcoder: transcoder,
		encoder:    encoder,
		sender:     sender,
		logger:     logger,
	}
}

// Policy returns the static configuration.
func (p *Pipeline) Policy() Policy { return p.policy }

// Deliver executes the delivery decision tree. All failures come back as
// errors; nothing panics across this boundary.
func (p *Pipeline) Deliver(ctx context.Context, req Request) (*Result, error) {
	if req.Audio == nil || req.Audio.URL == "" {
		return nil, fmt.Errorf("%w: no resolved audio", ErrSendFailed)
	}

	// The duration cap is checked before any transfer, never after.
	if p.policy.MaxDurationSec > 0 && req.DurationSec > p.policy.MaxDurationSec {
		return nil, &DurationExceededError{DurationSec: req.DurationSec, LimitSec: p.policy.MaxDurationSec}
	}

	if p.policy.Mode == ModeDirectLink && !p.policy.ForceTranscode && !req.Audio.FragileFormat {
		messageID, err := p.sender.SendVoiceURL(ctx, req.ChatID, req.Audio.URL, req.DurationSec, req.Caption)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		return &Result{MessageID: messageID}, nil
	}

	return p.deliverBuffered(ctx, req)
}

func (p *Pipeline) deliverBuffered(ctx context.Context, req Request) (*Result, error) {
	if p.transcoder == nil || p.encoder == nil {
		return nil, ErrCapabilityUnavailable
	}

	payload, err := p.downloader.GetBinary(ctx, req.Audio.URL)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	if p.logger != nil {
		p.logger.Debug("audio downloaded", "bytes", len(payload), "bitrate", req.Audio.Bitrate)
	}

	pcm, err := p.transcoder.Transcode(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("transcode audio: %w", err)
	}

	encoded, err := p.encoder.Encode(ctx, pcm)
	if err != nil {
		return nil, fmt.Errorf("encode voice: %w", err)
	}

	messageID, err := p.sender.SendVoiceBytes(ctx, req.ChatID, "voice.ogg", encoded, req.DurationSec, req.Caption)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return &Result{MessageID: messageID, Transcoded: true}, nil
}
