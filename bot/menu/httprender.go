package menu

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxRenderedImageBytes caps what we accept from the render service.
const maxRenderedImageBytes = 10 << 20

// HTTPRenderer renders HTML through an external html-to-image service
// that accepts the document as the POST body and answers with the image.
type HTTPRenderer struct {
	endpoint string
	client   *retryablehttp.Client
}

// NewHTTPRenderer creates a renderer for the given endpoint; empty means
// not configured and yields nil.
func NewHTTPRenderer(endpoint string, timeout time.Duration) *HTTPRenderer {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &HTTPRenderer{endpoint: endpoint, client: client}
}

func (r *HTTPRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", r.endpoint, strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("menu: render service status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRenderedImageBytes))
}
