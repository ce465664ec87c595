package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hanaxu/OrderSong-Go/bot"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

const defaultPageSize = 10

// maxAudioBytes caps binary downloads; voice payloads far beyond this are
// rejected rather than buffered.
const maxAudioBytes = 100 << 20

// Client talks to the song aggregator API with retry and a circuit breaker.
type Client struct {
	base    string
	source  string
	retry   *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
	resolve singleflight.Group
	logger  bot.Logger
}

// Options configures a Client.
type Options struct {
	// BaseURL is the aggregator endpoint, e.g. "https://music-api.example.com/api.php".
	BaseURL string

	// Source is the default upstream source passed as the "source" query
	// parameter (e.g. "netease").
	Source string

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration
}

// New creates an aggregator client.
func New(opts Options, logger bot.Logger) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 2
	retry.RetryWaitMin = 200 * time.Millisecond
	retry.RetryWaitMax = 2 * time.Second
	retry.Logger = nil

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retry.HTTPClient.Timeout = timeout

	settings := gobreaker.Settings{
		Name:        "aggregator-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	source := strings.TrimSpace(opts.Source)
	if source == "" {
		source = "netease"
	}

	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		source:  source,
		retry:   retry,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Source returns the default upstream source name.
func (c *Client) Source() string { return c.source }

// Search queries the aggregator for songs matching the keyword. An empty
// result list is not an error.
func (c *Client) Search(ctx context.Context, keyword string, page, pageSize int) ([]Song, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	query := url.Values{}
	query.Set("types", "search")
	query.Set("source", c.source)
	query.Set("name", keyword)
	query.Set("count", strconv.Itoa(pageSize))
	query.Set("pages", strconv.Itoa(page))

	raw, err := c.getJSON(ctx, query)
	if err != nil {
		return nil, newUpstreamError("search", c.source, err)
	}

	items, ok := extractItems(raw)
	if !ok {
		return nil, fmt.Errorf("%w: search", ErrBadResponse)
	}

	songs := normalizeItems(items, c.source)
	if c.logger != nil {
		c.logger.Debug("search done", "keyword", keyword, "page", page, "results", len(songs))
	}
	return songs, nil
}

// ResolveURL asks the aggregator for a playable URL for one track at the
// given bitrate. An empty URL with nil error means the tier has nothing.
// Concurrent identical calls are collapsed.
func (c *Client) ResolveURL(ctx context.Context, song Song, bitrate int) (string, error) {
	key := fmt.Sprintf("%s|%s|%d", song.Source, song.LinkID(), bitrate)
	result, err, _ := c.resolve.Do(key, func() (interface{}, error) {
		return c.resolveURLOnce(ctx, song, bitrate)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) resolveURLOnce(ctx context.Context, song Song, bitrate int) (string, error) {
	source := song.Source
	if source == "" {
		source = c.source
	}

	query := url.Values{}
	query.Set("types", "url")
	query.Set("source", source)
	query.Set("id", song.LinkID())
	query.Set("br", strconv.Itoa(bitrate))

	raw, err := c.getJSON(ctx, query)
	if err != nil {
		return "", newUpstreamError("resolve", source, err)
	}

	return extractURL(raw), nil
}

// extractURL tolerates both {"url":"..."} objects and bare string bodies.
func extractURL(raw json.RawMessage) string {
	var envelope struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.URL != "" {
		return strings.TrimSpace(envelope.URL)
	}
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		return strings.TrimSpace(bare)
	}
	return ""
}

// GetBinary downloads the full payload at the given URL.
func (c *Client) GetBinary(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newUpstreamError("download", c.source, err)
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, newUpstreamError("download", c.source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newUpstreamError("download", c.source, fmt.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, newUpstreamError("download", c.source, err)
	}
	if len(data) > maxAudioBytes {
		return nil, newUpstreamError("download", c.source, fmt.Errorf("payload exceeds %d bytes", maxAudioBytes))
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, query url.Values) (json.RawMessage, error) {
	endpoint := c.base + "?" + query.Encode()

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.retry.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body.([]byte)), nil
}
