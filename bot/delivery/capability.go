package delivery

import "context"

// Transcoder converts an arbitrary downloaded audio payload into the
// normalized intermediate form (mono PCM at a fixed sample rate).
type Transcoder interface {
	Transcode(ctx context.Context, input []byte) ([]byte, error)
}

// VoiceEncoder converts normalized audio into the wire voice format.
type VoiceEncoder interface {
	Encode(ctx context.Context, pcm []byte) ([]byte, error)
}

// Downloader fetches the full binary payload of a resolved URL.
type Downloader interface {
	GetBinary(ctx context.Context, url string) ([]byte, error)
}

// Sender delivers the final voice message and returns the sent message ID.
type Sender interface {
	SendVoiceURL(ctx context.Context, chatID int64, url string, durationSec int, caption string) (int, error)
	SendVoiceBytes(ctx context.Context, chatID int64, name string, data []byte, durationSec int, caption string) (int, error)
}
