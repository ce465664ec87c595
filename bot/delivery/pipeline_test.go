package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
)

type fakeDownloader struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeDownloader) GetBinary(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeTranscoder struct {
	out   []byte
	err   error
	calls int
}

func (f *fakeTranscoder) Transcode(ctx context.Context, input []byte) ([]byte, error) {
	f.calls++
	return f.out, f.err
}

type fakeEncoder struct {
	out   []byte
	err   error
	calls int
}

func (f *fakeEncoder) Encode(ctx context.Context, pcm []byte) ([]byte, error) {
	f.calls++
	return f.out, f.err
}

type fakeSender struct {
	urlCalls   int
	bytesCalls int
	lastURL    string
	lastBytes  []byte
	err        error
}

func (f *fakeSender) SendVoiceURL(ctx context.Context, chatID int64, url string, durationSec int, caption string) (int, error) {
	f.urlCalls++
	f.lastURL = url
	if f.err != nil {
		return 0, f.err
	}
	return 41, nil
}

func (f *fakeSender) SendVoiceBytes(ctx context.Context, chatID int64, name string, data []byte, durationSec int, caption string) (int, error) {
	f.bytesCalls++
	f.lastBytes = data
	if f.err != nil {
		return 0, f.err
	}
	return 42, nil
}

func resolved(url string) *aggregator.ResolvedAudio {
	return &aggregator.ResolvedAudio{URL: url, Bitrate: 320}
}

func TestDeliverDurationCapBeforeTransfer(t *testing.T) {
	dl := &fakeDownloader{}
	sender := &fakeSender{}
	p := NewPipeline(Policy{Mode: ModeBuffer, MaxDurationSec: 600},
		dl, &fakeTranscoder{out: []byte("pcm")}, &fakeEncoder{out: []byte("ogg")}, sender, nil)

	_, err := p.Deliver(context.Background(), Request{
		ChatID:      1,
		Audio:       resolved("http://x/a.mp3"),
		DurationSec: 700,
	})

	var exceeded *DurationExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected DurationExceededError, got %v", err)
	}
	if exceeded.LimitSec != 600 {
		t.Errorf("limit = %d, want 600", exceeded.LimitSec)
	}
	if dl.calls != 0 {
		t.Errorf("download must not happen after duration rejection, calls=%d", dl.calls)
	}
	if sender.urlCalls+sender.bytesCalls != 0 {
		t.Error("nothing may be sent after duration rejection")
	}
}

func TestDeliverDirectLink(t *testing.T) {
	dl := &fakeDownloader{}
	sender := &fakeSender{}
	p := NewPipeline(Policy{Mode: ModeDirectLink}, dl, nil, nil, sender, nil)

	res, err := p.Deliver(context.Background(), Request{ChatID: 1, Audio: resolved("http://x/a.mp3"), DurationSec: 100})
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if res.Transcoded {
		t.Error("direct link must not transcode")
	}
	if sender.urlCalls != 1 || dl.calls != 0 {
		t.Errorf("urlCalls=%d dlCalls=%d, want 1/0", sender.urlCalls, dl.calls)
	}
}

func TestDeliverFragileFormatForcesBuffer(t *testing.T) {
	dl := &fakeDownloader{data: []byte("wma")}
	tc := &fakeTranscoder{out: []byte("pcm")}
	enc := &fakeEncoder{out: []byte("silk")}
	sender := &fakeSender{}
	p := NewPipeline(Policy{Mode: ModeDirectLink}, dl, tc, enc, sender, nil)

	audio := &aggregator.ResolvedAudio{URL: "http://x/a.wma", Bitrate: 320, FragileFormat: true}
	res, err := p.Deliver(context.Background(), Request{ChatID: 1, Audio: audio})
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if !res.Transcoded || sender.bytesCalls != 1 {
		t.Errorf("fragile format should take the buffer path: %+v", res)
	}
}

func TestDeliverForcedTranscode(t *testing.T) {
	dl := &fakeDownloader{data: []byte("mp3")}
	tc := &fakeTranscoder{out: []byte("pcm")}
	enc := &fakeEncoder{out: []byte("silk")}
	sender := &fakeSender{}
	p := NewPipeline(Policy{Mode: ModeDirectLink, ForceTranscode: true}, dl, tc, enc, sender, nil)

	res, err := p.Deliver(context.Background(), Request{ChatID: 1, Audio: resolved("http://x/a.mp3")})
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if !res.Transcoded || tc.calls != 1 || enc.calls != 1 {
		t.Errorf("forced transcode skipped pipeline: %+v", res)
	}
	if string(sender.lastBytes) != "silk" {
		t.Errorf("sent %q, want encoder output", sender.lastBytes)
	}
}

func TestDeliverCapabilityUnavailable(t *testing.T) {
	tests := []struct {
		name       string
		transcoder Transcoder
		encoder    VoiceEncoder
	}{
		{name: "no transcoder", transcoder: nil, encoder: &fakeEncoder{}},
		{name: "no encoder", transcoder: &fakeTranscoder{}, encoder: nil},
		{name: "neither", transcoder: nil, encoder: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl := &fakeDownloader{}
			sender := &fakeSender{}
			p := NewPipeline(Policy{Mode: ModeBuffer}, dl, tt.transcoder, tt.encoder, sender, nil)

			_, err := p.Deliver(context.Background(), Request{ChatID: 1, Audio: resolved("http://x/a.mp3")})
			if !errors.Is(err, ErrCapabilityUnavailable) {
				t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
			}
			// No silent fallback to direct link, and no wasted download.
			if sender.urlCalls != 0 || dl.calls != 0 {
				t.Error("capability failure must abort before download/send")
			}
		})
	}
}

func TestDeliverDownloadFailure(t *testing.T) {
	dl := &fakeDownloader{err: errors.New("connection reset")}
	sender := &fakeSender{}
	p := NewPipeline(Policy{Mode: ModeBuffer}, dl, &fakeTranscoder{out: []byte("pcm")}, &fakeEncoder{out: []byte("x")}, sender, nil)

	_, err := p.Deliver(context.Background(), Request{ChatID: 1, Audio: resolved("http://x/a.mp3")})
	if err == nil {
		t.Fatal("expected download error")
	}
	if sender.bytesCalls != 0 {
		t.Error("nothing may be sent after download failure")
	}
}

func TestDeliverSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("403")}
	p := NewPipeline(Policy{Mode: ModeDirectLink}, &fakeDownloader{}, nil, nil, sender, nil)

	_, err := p.Deliver(context.Background(), Request{ChatID: 1, Audio: resolved("http://x/a.mp3")})
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("buffer") != ModeBuffer {
		t.Error("buffer not parsed")
	}
	if ParseMode("direct") != ModeDirectLink || ParseMode("") != ModeDirectLink {
		t.Error("default mode should be direct link")
	}
}

func TestNewFFmpegTranscoderUnconfigured(t *testing.T) {
	if NewFFmpegTranscoder("", 24000) != nil {
		t.Fatal("empty path must yield nil transcoder")
	}
	tc := NewFFmpegTranscoder("/usr/bin/ffmpeg", 0)
	if tc == nil || tc.SampleRate != 24000 {
		t.Fatalf("default sample rate not applied: %+v", tc)
	}
}
