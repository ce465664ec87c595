package delivery

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const defaultTranscodeTimeout = 90 * time.Second

// FFmpegTranscoder implements Transcoder by piping the payload through an
// external ffmpeg binary, producing mono 16-bit PCM at a fixed rate.
type FFmpegTranscoder struct {
	Path       string
	SampleRate int
	Timeout    time.Duration
}

// NewFFmpegTranscoder returns a Transcoder, or nil when no binary path is
// configured (capability absent).
func NewFFmpegTranscoder(path string, sampleRate int) *FFmpegTranscoder {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	return &FFmpegTranscoder{Path: path, SampleRate: sampleRate, Timeout: defaultTranscodeTimeout}
}

// Transcode runs ffmpeg over stdin/stdout.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, input []byte) ([]byte, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = defaultTranscodeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", strconv.Itoa(t.SampleRate),
		"-f", "s16le",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, t.Path, args...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("transcode: timeout after %s", timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("transcode: ffmpeg: %s", detail)
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("transcode: ffmpeg produced no output")
	}
	return stdout.Bytes(), nil
}

// FFmpegVoiceEncoder implements VoiceEncoder by encoding the normalized
// PCM stream into an OGG/Opus voice payload, again through ffmpeg.
type FFmpegVoiceEncoder struct {
	Path       string
	SampleRate int
	Timeout    time.Duration
}

// NewFFmpegVoiceEncoder returns a VoiceEncoder, or nil when no binary
// path is configured.
func NewFFmpegVoiceEncoder(path string, sampleRate int) *FFmpegVoiceEncoder {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	return &FFmpegVoiceEncoder{Path: path, SampleRate: sampleRate, Timeout: defaultTranscodeTimeout}
}

// Encode wraps mono s16le PCM into OGG/Opus.
func (e *FFmpegVoiceEncoder) Encode(ctx context.Context, pcm []byte) ([]byte, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTranscodeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(e.SampleRate),
		"-i", "pipe:0",
		"-c:a", "libopus",
		"-b:a", "48k",
		"-f", "ogg",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, e.Path, args...)
	cmd.Stdin = bytes.NewReader(pcm)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("encode: timeout after %s", timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("encode: ffmpeg: %s", detail)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("encode: ffmpeg produced no output")
	}
	return stdout.Bytes(), nil
}
