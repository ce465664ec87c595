package aggregator

import (
	"context"
	"errors"
	"fmt"
)

// ResolveOptions controls how the quality ladder is walked.
type ResolveOptions struct {
	// RequireDirect is true when the resolved URL will be streamed as-is
	// instead of downloaded and re-encoded.
	RequireDirect bool

	// SkipFragile treats a fragile-format hit as a miss and continues
	// down the ladder. Only meaningful together with RequireDirect.
	SkipFragile bool
}

// Resolve walks the quality ladder starting at the requested bitrate and
// returns the first usable URL. Per-tier upstream failures are treated as
// misses; ErrNoUsableURL is returned once the ladder is exhausted.
func (c *Client) Resolve(ctx context.Context, song Song, requestedBitrate int, opts ResolveOptions) (*ResolvedAudio, error) {
	var lastErr error

	for _, bitrate := range Ladder(requestedBitrate) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rawURL, err := c.ResolveURL(ctx, song, bitrate)
		if err != nil {
			lastErr = err
			if c.logger != nil {
				c.logger.Warn("resolve tier failed", "track", song.LinkID(), "bitrate", bitrate, "error", err)
			}
			continue
		}
		if rawURL == "" {
			continue
		}

		fragile := isFragileFormat(rawURL)
		if fragile && opts.RequireDirect && opts.SkipFragile {
			if c.logger != nil {
				c.logger.Debug("skipping fragile format", "track", song.LinkID(), "bitrate", bitrate)
			}
			continue
		}

		return &ResolvedAudio{URL: rawURL, Bitrate: bitrate, FragileFormat: fragile}, nil
	}

	if lastErr != nil && errors.Is(lastErr, ErrUpstream) {
		return nil, fmt.Errorf("%w: %v", ErrNoUsableURL, lastErr)
	}
	return nil, ErrNoUsableURL
}
