// Package bot routes inbound Telegram updates to command handlers.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"unihelper/internal/stats"
	"unihelper/internal/tasks"
	"unihelper/internal/telegram"
	"unihelper/internal/weather"
)

const taskPageCallbackPrefix = "tasks_page_"

// API is the slice of the Telegram client the router needs.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error)
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error
	FileBytes(ctx context.Context, fileID string) ([]byte, error)
}

type WeatherService interface {
	Current(ctx context.Context, city string) (weather.Report, error)
}

type RateService interface {
	Latest(ctx context.Context, base string) (map[string]float64, error)
}

type Config struct {
	API      API
	Tasks    *tasks.Store
	Weather  WeatherService
	Exchange RateService
	Stats    *stats.Collector
	Logger   *slog.Logger

	// WeatherEnabled is false when no OpenWeather key is configured; the
	// weather command then answers with a static unavailable message and
	// never touches the network.
	WeatherEnabled bool
	PollTimeout    time.Duration
}

type Router struct {
	api            API
	tasks          *tasks.Store
	weather        WeatherService
	exchange       RateService
	stats          *stats.Collector
	logger         *slog.Logger
	weatherEnabled bool
	pollTimeout    time.Duration
}

func New(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	st := cfg.Stats
	if st == nil {
		st = stats.NewCollector()
	}
	return &Router{
		api:            cfg.API,
		tasks:          cfg.Tasks,
		weather:        cfg.Weather,
		exchange:       cfg.Exchange,
		stats:          st,
		logger:         logger,
		weatherEnabled: cfg.WeatherEnabled,
		pollTimeout:    pollTimeout,
	}
}

// Run long-polls for updates until ctx is done. Poll failures are logged and
// retried after a short pause; a failing handler never stops the loop.
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("bot_start",
		"poll_timeout", r.pollTimeout.String(),
		"weather_enabled", r.weatherEnabled,
	)

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		updates, nextOffset, err := r.api.GetUpdates(ctx, offset, r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Warn("telegram_get_updates_error", "error", err.Error())
			time.Sleep(1 * time.Second)
			continue
		}
		offset = nextOffset

		for _, u := range updates {
			u := u
			go r.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate dispatches one update. It never panics outward: handler
// failures degrade to a reply (or a log line), not a dead process.
func (r *Router) HandleUpdate(ctx context.Context, u telegram.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler_panic", "recovered", rec)
		}
	}()

	if u.CallbackQuery != nil {
		r.handleCallback(ctx, u.CallbackQuery)
		return
	}
	if u.Message != nil {
		r.handleMessage(ctx, u.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	// Attachments route to the file inspector even without a command.
	if r.handleAttachment(ctx, msg) {
		return
	}

	command, args := parseCommand(msg.Text)
	if command == "" {
		return
	}

	switch command {
	case "start":
		r.observe(msg, "start")
		r.handleStart(ctx, chatID)
	case "help":
		r.observe(msg, "help")
		r.handleHelp(ctx, chatID)
	case "todo":
		r.observe(msg, "todo")
		r.handleTodo(ctx, msg, args)
	case "weather":
		r.observe(msg, "weather")
		r.handleWeather(ctx, chatID, args)
	case "rate":
		r.observe(msg, "rate")
		r.handleRate(ctx, chatID, args)
	case "fileinfo":
		r.observe(msg, "fileinfo")
		r.reply(ctx, chatID, "❌ Send a file to get its info")
	case "stats":
		r.observe(msg, "stats")
		r.handleStats(ctx, chatID)
	default:
		r.logger.Debug("unknown_command", "command", command, "chat_id", chatID)
	}
}

// observe records the command invocation and its sender. It runs at dispatch
// time, before any argument validation, so failed commands count too.
func (r *Router) observe(msg *telegram.Message, command string) {
	r.stats.CountCommand(command)
	if msg.From != nil {
		r.stats.SeeUser(msg.From.ID)
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if err := r.api.SendMessage(ctx, chatID, text, nil); err != nil {
		r.logger.Warn("telegram_send_error", "chat_id", chatID, "error", err.Error())
	}
}

// parseCommand tokenizes "/cmd arg1 arg2" into the lowercase command name and
// its whitespace-separated arguments. "/cmd@BotName" variants are accepted.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	head := fields[0]
	if !strings.HasPrefix(head, "/") {
		return "", nil
	}
	head = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	head = strings.ToLower(head)
	if head == "" {
		return "", nil
	}
	return head, fields[1:]
}
