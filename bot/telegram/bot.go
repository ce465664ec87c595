package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	botpkg "github.com/hanaxu/OrderSong-Go/bot"
	"github.com/hanaxu/OrderSong-Go/bot/config"
	"github.com/mymmrac/telego"
)

// Bot wraps telego with application configuration. A separate client with
// a long timeout handles voice uploads so slow transfers never stall the
// polling loop.
type Bot struct {
	client *telego.Bot
	upload *telego.Bot
	config *config.Config
	logger botpkg.Logger
}

// New creates a new Telegram bot client.
func New(cfg *config.Config, logger botpkg.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	transport := func() *http.Transport {
		return &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			MaxConnsPerHost:       50,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	pollClient := &http.Client{
		Timeout:   2 * time.Minute,
		Transport: transport(),
	}
	uploadClient := &http.Client{
		Timeout:   15 * time.Minute,
		Transport: transport(),
	}

	newClient := func(httpClient *http.Client) (*telego.Bot, error) {
		options := []telego.BotOption{
			telego.WithHTTPClient(httpClient),
			telego.WithLogger(telegoLogger{logger: logger}),
		}
		if cfg.GetString("BotAPI") != "" {
			options = append(options, telego.WithAPIServer(cfg.GetString("BotAPI")))
		}
		if cfg.GetBool("BotDebug") {
			options = append(options, telego.WithDebugMode())
		}
		return telego.NewBot(cfg.GetString("BOT_TOKEN"), options...)
	}

	client, err := newClient(pollClient)
	if err != nil {
		return nil, err
	}
	upload, err := newClient(uploadClient)
	if err != nil {
		return nil, err
	}

	return &Bot{client: client, upload: upload, config: cfg, logger: logger}, nil
}

// Start begins long polling and dispatches every update to handle on its
// own goroutine. It blocks until the context is canceled or polling fails.
func (b *Bot) Start(ctx context.Context, handle func(context.Context, telego.Update)) error {
	updates, err := b.client.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: 30,
		AllowedUpdates: []string{
			telego.MessageUpdates,
		},
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go handle(ctx, update)
		}
	}
}

// Client exposes the underlying bot client.
func (b *Bot) Client() *telego.Bot {
	return b.client
}

// UploadClient exposes a dedicated client for voice uploads.
func (b *Bot) UploadClient() *telego.Bot {
	if b.upload != nil {
		return b.upload
	}
	return b.client
}

// GetMe retrieves bot info.
func (b *Bot) GetMe(ctx context.Context) (*telego.User, error) {
	return b.client.GetMe(ctx)
}

// SendMessage is a convenience wrapper for sending a text message.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) (*telego.Message, error) {
	params := &telego.SendMessageParams{ChatID: telego.ChatID{ID: chatID}, Text: text}
	return b.client.SendMessage(ctx, params)
}

// SendChatAction sends a chat action.
func (b *Bot) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return b.client.SendChatAction(ctx, &telego.SendChatActionParams{ChatID: telego.ChatID{ID: chatID}, Action: action})
}

type telegoLogger struct {
	logger botpkg.Logger
}

func (l telegoLogger) Debugf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l telegoLogger) Errorf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Error(fmt.Sprintf(format, args...))
}

// WithTimeout returns a context with timeout for Telegram requests.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
