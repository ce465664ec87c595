package menu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/hanaxu/OrderSong-Go/bot"
	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
	"github.com/nfnt/resize"
)

// ErrRendererUnavailable is returned when no image renderer is configured
// or the renderer reports itself unavailable.
var ErrRendererUnavailable = errors.New("menu: image renderer unavailable")

// HTMLRenderer turns an HTML document into an image. Implementations
// typically wrap a browser-automation service; a nil result with nil
// error means the service is temporarily unavailable.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// maxMenuImageWidth bounds the rendered image before sending.
const maxMenuImageWidth = 720

// ImageMenu renders the song menu through an HTMLRenderer. Callers fall
// back to the text menu on any error.
type ImageMenu struct {
	renderer HTMLRenderer
	logger   bot.Logger
}

// NewImageMenu creates an ImageMenu; renderer may be nil (not configured).
func NewImageMenu(renderer HTMLRenderer, logger bot.Logger) *ImageMenu {
	return &ImageMenu{renderer: renderer, logger: logger}
}

// Available reports whether an image renderer is configured.
func (m *ImageMenu) Available() bool {
	return m != nil && m.renderer != nil
}

// Render produces a JPEG menu image, downscaled to a sane width.
func (m *ImageMenu) Render(ctx context.Context, keyword string, page int, songs []aggregator.Song) ([]byte, error) {
	if !m.Available() {
		return nil, ErrRendererUnavailable
	}

	raw, err := m.renderer.RenderHTML(ctx, buildMenuHTML(keyword, page, songs))
	if err != nil {
		return nil, fmt.Errorf("menu: render html: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrRendererUnavailable
	}

	shrunk, err := shrinkImage(raw)
	if err != nil {
		// A decode failure still leaves the raw image usable.
		if m.logger != nil {
			m.logger.Warn("menu image resize failed", "error", err)
		}
		return raw, nil
	}
	return shrunk, nil
}

func buildMenuHTML(keyword string, page int, songs []aggregator.Song) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body><div class=\"menu\">")
	fmt.Fprintf(&b, "<h3>「%s」 第%d页</h3><ol>", html.EscapeString(keyword), page)
	for _, song := range songs {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(song.Title))
		if song.Artist != "" {
			b.WriteString(" - ")
			b.WriteString(html.EscapeString(song.Artist))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ol></div></body></html>")
	return b.String()
}

func shrinkImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dx() > maxMenuImageWidth {
		img = resize.Resize(maxMenuImageWidth, 0, img, resize.Lanczos3)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
