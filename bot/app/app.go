package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
	"github.com/hanaxu/OrderSong-Go/bot/config"
	"github.com/hanaxu/OrderSong-Go/bot/db"
	"github.com/hanaxu/OrderSong-Go/bot/delivery"
	logpkg "github.com/hanaxu/OrderSong-Go/bot/logger"
	"github.com/hanaxu/OrderSong-Go/bot/menu"
	"github.com/hanaxu/OrderSong-Go/bot/retract"
	"github.com/hanaxu/OrderSong-Go/bot/session"
	"github.com/hanaxu/OrderSong-Go/bot/telegram"
	"github.com/hanaxu/OrderSong-Go/bot/telegram/handler"
	"github.com/hanaxu/OrderSong-Go/bot/worker"
	"github.com/mymmrac/telego"
	gormlogger "gorm.io/gorm/logger"
)

// App wires all application dependencies.
type App struct {
	Config     *config.Config
	Logger     *logpkg.Logger
	DB         *db.Repository
	Pool       *worker.Pool
	Aggregator *aggregator.Client
	Store      *session.Store
	Machine    *session.Machine
	Telegram   *telegram.Bot
	Build      BuildInfo
}

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	RuntimeVer string
	BinVersion string
	BuildTime  string
}

// New builds the application container.
func New(ctx context.Context, configPath string, build BuildInfo) (*App, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logpkg.New(logpkg.Options{
		Level:     conf.GetString("LogLevel"),
		Format:    conf.GetString("LogFormat"),
		AddSource: conf.GetBool("LogSource"),
		Dir:       conf.GetString("LogDir"),
	})
	if err != nil {
		return nil, err
	}

	gormLogger := logpkg.NewGormLogger(log.Slog(), mapGormLogLevel(conf.GetString("GormLogLevel")))
	databasePath := strings.TrimSpace(conf.GetString("Database"))
	if databasePath == "" {
		databasePath = "cache.db"
	}
	repo, err := db.NewSQLiteRepository(databasePath, gormLogger)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	pool := worker.New(conf.GetInt("WorkerPoolSize"))

	apiBase := strings.TrimSpace(conf.GetString("APIBase"))
	if apiBase == "" {
		return nil, fmt.Errorf("APIBase is required")
	}
	agg := aggregator.New(aggregator.Options{
		BaseURL: apiBase,
		Source:  conf.GetString("APISource"),
		Timeout: time.Duration(conf.GetInt("APITimeoutSeconds")) * time.Second,
	}, log)

	timeout := time.Duration(conf.GetInt("SelectTimeoutSeconds")) * time.Second
	store := session.NewStore(timeout)

	pageSize := conf.GetInt("PageSize")
	machine := session.NewMachine(store, func(ctx context.Context, keyword string, page int) ([]aggregator.Song, error) {
		return agg.Search(ctx, keyword, page, pageSize)
	})

	tele, err := telegram.New(conf, log)
	if err != nil {
		return nil, fmt.Errorf("init telegram: %w", err)
	}

	return &App{
		Config:     conf,
		Logger:     log,
		DB:         repo,
		Pool:       pool,
		Aggregator: agg,
		Store:      store,
		Machine:    machine,
		Telegram:   tele,
		Build:      build,
	}, nil
}

// Start wires the handlers and begins polling. It returns after the
// polling loop is launched; cancel the context to stop.
func (a *App) Start(ctx context.Context) error {
	meCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	me, err := a.Telegram.GetMe(meCtx)
	if err != nil {
		a.Logger.Error("getMe failed", "error", err)
	}
	botName := ""
	if me != nil {
		botName = me.Username
	}

	rateLimitPerSecond := a.Config.GetFloat64("RateLimitPerSecond")
	if rateLimitPerSecond <= 0 {
		rateLimitPerSecond = 1.0
	}
	rateLimitBurst := a.Config.GetInt("RateLimitBurst")
	if rateLimitBurst <= 0 {
		rateLimitBurst = 3
	}
	rateLimiter := telegram.NewRateLimiter(rateLimitPerSecond, rateLimitBurst)
	rateLimiter.SetLogger(a.Logger)

	sender := telegram.NewVoiceSender(a.Telegram, rateLimiter)

	policy := delivery.Policy{
		Mode:           delivery.ParseMode(a.Config.GetString("DeliveryMode")),
		ForceTranscode: a.Config.GetBool("ForceTranscode"),
		MaxDurationSec: a.Config.GetInt("MaxDurationSeconds"),
	}

	// The typed-nil constructors must not leak into the interfaces, or
	// the pipeline's capability check stops working.
	var transcoder delivery.Transcoder
	var encoder delivery.VoiceEncoder
	sampleRate := a.Config.GetInt("VoiceSampleRate")
	if t := delivery.NewFFmpegTranscoder(a.Config.GetString("FFmpegPath"), sampleRate); t != nil {
		transcoder = t
	}
	if e := delivery.NewFFmpegVoiceEncoder(a.Config.GetString("FFmpegPath"), sampleRate); e != nil {
		encoder = e
	}

	pipeline := delivery.NewPipeline(policy, a.Aggregator, transcoder, encoder, sender, a.Logger)

	retractPolicy := retract.Policy{
		RetractTip:        a.Config.GetBool("RetractTip"),
		RetractMenu:       a.Config.GetBool("RetractMenu"),
		OnlyAfterSuccess:  a.Config.GetBool("RetractOnlyAfterSuccess"),
		KeepMenuOnFailure: a.Config.GetBool("KeepMenuOnFailure"),
		Delay:             time.Duration(a.Config.GetInt("RetractDelaySeconds")) * time.Second,
	}
	retractor := retract.NewScheduler(sender, a.Logger)

	var imageMenu *menu.ImageMenu
	if a.Config.GetBool("ImageMenu") {
		renderer := menu.NewHTTPRenderer(a.Config.GetString("ImageRenderURL"), 30*time.Second)
		if renderer != nil {
			imageMenu = menu.NewImageMenu(renderer, a.Logger)
		} else {
			a.Logger.Warn("ImageMenu enabled but ImageRenderURL is empty; using text menus")
		}
	}

	tokens := session.Tokens{
		Exit: session.ParseTokens(a.Config.GetString("ExitTokens"), session.DefaultTokens().Exit),
		Next: session.ParseTokens(a.Config.GetString("NextPageTokens"), session.DefaultTokens().Next),
		Prev: session.ParseTokens(a.Config.GetString("PrevPageTokens"), session.DefaultTokens().Prev),
	}
	menuOptions := menu.Options{
		NextHint: firstToken(tokens.Next),
		PrevHint: firstToken(tokens.Prev),
		ExitHint: firstToken(tokens.Exit),
	}

	groupWide := a.Config.GetBool("GroupWideSelection")

	searchHandler := &handler.SearchHandler{
		Logger:        a.Logger,
		Bot:           a.Telegram,
		Limiter:       rateLimiter,
		Machine:       a.Machine,
		ImageMenu:     imageMenu,
		MenuOptions:   menuOptions,
		Retract:       retractor,
		RetractPolicy: retractPolicy,
		GroupWide:     groupWide,
	}

	replyHandler := &handler.ReplyHandler{
		Logger:        a.Logger,
		Bot:           a.Telegram,
		Limiter:       rateLimiter,
		Sender:        sender,
		Machine:       a.Machine,
		Tokens:        tokens,
		Aggregator:    a.Aggregator,
		Pipeline:      pipeline,
		Retract:       retractor,
		RetractPolicy: retractPolicy,
		Cache:         a.DB,
		Pool:          a.Pool,
		Quality:       a.Config.GetInt("Quality"),
		SkipFragile:   a.Config.GetBool("FallbackOnFragile"),
		GroupWide:     groupWide,
		Search:        searchHandler,
	}

	adminIDs := make(map[int64]struct{})
	for _, id := range a.Config.GetIntSlice("BotAdmin") {
		adminIDs[int64(id)] = struct{}{}
	}

	router := &handler.Router{
		Logger:  a.Logger,
		Bot:     a.Telegram,
		Limiter: rateLimiter,
		Search:  searchHandler,
		Reply:   replyHandler,
		About: &handler.AboutHandler{
			Bot:        a.Telegram,
			Limiter:    rateLimiter,
			BinVersion: a.Build.BinVersion,
			BuildTime:  a.Build.BuildTime,
			RuntimeVer: a.Build.RuntimeVer,
		},
		RmCache: &handler.RmCacheHandler{
			Logger:   a.Logger,
			Bot:      a.Telegram,
			Limiter:  rateLimiter,
			Cache:    a.DB,
			Source:   a.Aggregator.Source(),
			AdminIDs: adminIDs,
		},
		BotName: botName,
	}

	commands := []telego.BotCommand{
		{Command: "song", Description: "搜索并点歌"},
		{Command: "start", Description: "开始使用"},
		{Command: "about", Description: "关于本 Bot"},
	}
	_ = a.Telegram.Client().SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands})

	go func() {
		if err := a.Telegram.Start(ctx, router.Handle); err != nil && ctx.Err() == nil {
			a.Logger.Error("polling stopped", "error", err)
		}
	}()

	a.Logger.Info("bot started", "name", botName)
	return nil
}

// Shutdown releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if a.Pool != nil {
		if err := a.Pool.Shutdown(ctx); err != nil {
			a.Pool.StopNow()
			if firstErr == nil {
				firstErr = fmt.Errorf("shutdown worker pool: %w", err)
			}
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			if a.Logger != nil {
				a.Logger.Error("failed to close database", "error", err)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("close database: %w", err)
			}
		}
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close logger: %w", err)
		}
	}

	return firstErr
}

func firstToken(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

func mapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "info", "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
