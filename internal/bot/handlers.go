package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"unihelper/internal/fileinfo"
	"unihelper/internal/tasks"
	"unihelper/internal/telegram"
	"unihelper/internal/weather"
)

const startText = "👋 Hi! I am UniHelper, your personal assistant.\n\n" +
	"Available commands:\n" +
	"📝 /todo - manage tasks\n" +
	"🌤️ /weather <city> - weather\n" +
	"💱 /rate <base> <targets> - exchange rates\n" +
	"📁 /fileinfo - file info\n" +
	"📊 /stats - bot statistics\n" +
	"❓ /help - help"

const helpText = "📖 Command help:\n\n" +
	"📝 /todo add <text> - add a task\n" +
	"📝 /todo list - show tasks\n" +
	"📝 /todo done <id> - mark a task done\n\n" +
	"🌤️ /weather Moscow - weather for a city\n\n" +
	"💱 /rate USD EUR,RUB - exchange rates\n\n" +
	"📁 Send a file and use /fileinfo to inspect it\n\n" +
	"📊 /stats - bot usage statistics"

const todoUsageText = "📝 Task commands:\n" +
	"• /todo add <text> - add a task\n" +
	"• /todo list - show tasks\n" +
	"• /todo done <id> - mark a task done"

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	r.reply(ctx, chatID, startText)
}

func (r *Router) handleHelp(ctx context.Context, chatID int64) {
	r.reply(ctx, chatID, helpText)
}

func (r *Router) handleTodo(ctx context.Context, msg *telegram.Message, args []string) {
	chatID := msg.Chat.ID
	if len(args) == 0 {
		r.reply(ctx, chatID, todoUsageText)
		return
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 2 {
			r.reply(ctx, chatID, "❌ Provide the task text: /todo add <text>")
			return
		}
		text := strings.Join(args[1:], " ")
		task, err := r.tasks.Add(text)
		if err != nil {
			r.logger.Error("task_add_failed", "error", err.Error())
			r.reply(ctx, chatID, fmt.Sprintf("❌ Failed to save the task: %v", err))
			return
		}
		r.reply(ctx, chatID, fmt.Sprintf("✅ Task added (ID: %d): %s", task.ID, text))

	case "list":
		text, keyboard := r.renderTaskPage(senderID(msg), 0)
		if err := r.api.SendMessage(ctx, chatID, text, keyboard); err != nil {
			r.logger.Warn("telegram_send_error", "chat_id", chatID, "error", err.Error())
		}

	case "done":
		if len(args) < 2 {
			r.reply(ctx, chatID, "❌ Provide the task id: /todo done <id>")
			return
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			r.reply(ctx, chatID, "❌ The task id must be a number")
			return
		}
		ok, err := r.tasks.MarkDone(id)
		if err != nil {
			r.logger.Error("task_done_failed", "id", id, "error", err.Error())
			r.reply(ctx, chatID, fmt.Sprintf("❌ Failed to save the task: %v", err))
			return
		}
		if !ok {
			r.reply(ctx, chatID, fmt.Sprintf("❌ Task with ID %d not found", id))
			return
		}
		r.reply(ctx, chatID, fmt.Sprintf("✅ Task %d marked as done", id))

	default:
		r.reply(ctx, chatID, todoUsageText)
	}
}

// renderTaskPage builds the text and navigation keyboard for one page of the
// pending task list.
func (r *Router) renderTaskPage(userID int64, page int) (string, *telegram.InlineKeyboardMarkup) {
	pending := r.tasks.Pending(userID)
	if len(pending) == 0 {
		return "📝 You have no active tasks", nil
	}

	window, hasPrev, hasNext := tasks.Page(pending, page, tasks.PageSize)

	var b strings.Builder
	fmt.Fprintf(&b, "📝 Your tasks (page %d):\n\n", page+1)
	for _, task := range window {
		fmt.Fprintf(&b, "• %d. %s\n", task.ID, task.Text)
	}

	var rows [][]telegram.InlineKeyboardButton
	if hasPrev {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         "⬅️ Prev",
			CallbackData: fmt.Sprintf("%s%d", taskPageCallbackPrefix, page-1),
		}})
	}
	if hasNext {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         "Next ➡️",
			CallbackData: fmt.Sprintf("%s%d", taskPageCallbackPrefix, page+1),
		}})
	}
	if len(rows) == 0 {
		return b.String(), nil
	}
	return b.String(), &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (r *Router) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	defer func() {
		if err := r.api.AnswerCallbackQuery(ctx, cb.ID); err != nil {
			r.logger.Warn("telegram_answer_callback_error", "error", err.Error())
		}
	}()

	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	if !strings.HasPrefix(cb.Data, taskPageCallbackPrefix) {
		return
	}
	page, err := strconv.Atoi(strings.TrimPrefix(cb.Data, taskPageCallbackPrefix))
	if err != nil || page < 0 {
		return
	}

	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
	}
	text, keyboard := r.renderTaskPage(userID, page)
	if err := r.api.EditMessageText(ctx, cb.Message.Chat.ID, cb.Message.MessageID, text, keyboard); err != nil {
		r.logger.Warn("telegram_edit_error", "chat_id", cb.Message.Chat.ID, "error", err.Error())
	}
}

func (r *Router) handleWeather(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		r.reply(ctx, chatID, "❌ Provide a city: /weather <city>")
		return
	}
	if !r.weatherEnabled {
		r.reply(ctx, chatID, "❌ The weather service is unavailable (missing API key)")
		return
	}
	city := strings.Join(args, " ")

	report, err := r.weather.Current(ctx, city)
	if err != nil {
		if errors.Is(err, weather.ErrCityNotFound) {
			r.reply(ctx, chatID, fmt.Sprintf("❌ City '%s' not found", city))
			return
		}
		r.reply(ctx, chatID, fmt.Sprintf("❌ Failed to fetch weather: %v", err))
		return
	}

	r.reply(ctx, chatID, fmt.Sprintf(
		"🌤️ Weather in %s:\n\n"+
			"🌡️ Temperature: %.1f°C\n"+
			"☁️ Conditions: %s\n"+
			"💧 Humidity: %d%%\n"+
			"💨 Wind speed: %.1f m/s",
		report.City, report.Temp, report.Description, report.Humidity, report.WindSpeed,
	))
}

func (r *Router) handleRate(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		r.reply(ctx, chatID, "❌ Usage: /rate <base currency> <comma-separated targets>\nExample: /rate USD EUR,RUB")
		return
	}
	base := strings.ToUpper(args[0])
	targets := splitCurrencyList(args[1])

	rates, err := r.exchange.Latest(ctx, base)
	if err != nil {
		r.reply(ctx, chatID, fmt.Sprintf("❌ Failed to fetch exchange rates: %v", err))
		return
	}
	if len(rates) == 0 {
		r.reply(ctx, chatID, fmt.Sprintf("❌ No rates available for %s", base))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💱 Exchange rates (base: %s):\n\n", base)
	for _, currency := range targets {
		if rate, ok := rates[currency]; ok {
			fmt.Fprintf(&b, "• %s: %.4f\n", currency, rate)
		} else {
			fmt.Fprintf(&b, "• %s: unavailable\n", currency)
		}
	}
	r.reply(ctx, chatID, b.String())
}

func splitCurrencyList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// handleAttachment routes messages carrying a document, photo, video or
// audio to the file inspector. It reports whether the message was consumed.
func (r *Router) handleAttachment(ctx context.Context, msg *telegram.Message) bool {
	att, ok := fileinfo.FromMessage(msg)
	if !ok {
		return false
	}
	r.observe(msg, "fileinfo")
	chatID := msg.Chat.ID

	summary, err := fileinfo.Inspect(ctx, r.api, att)
	if err != nil {
		r.logger.Warn("fileinfo_failed", "file_id", att.FileID, "error", err.Error())
		r.reply(ctx, chatID, "❌ Could not fetch the file content")
		return true
	}

	r.reply(ctx, chatID, fmt.Sprintf(
		"📁 File info:\n\n"+
			"%s\n"+
			"📝 Name: %s\n"+
			"📏 Size: %d bytes (%.2f KB)\n"+
			"🔐 SHA-256: %s",
		summary.Kind.Label(), summary.Name, summary.Size, summary.KB(), summary.SHA256,
	))
	return true
}

func (r *Router) handleStats(ctx context.Context, chatID int64) {
	report := r.stats.Snapshot()

	var commandLines strings.Builder
	for _, item := range report.Commands {
		fmt.Fprintf(&commandLines, "• %s: %d\n", item.Name, item.Count)
	}

	r.reply(ctx, chatID, fmt.Sprintf(
		"📊 Bot statistics:\n\n"+
			"⏰ Uptime: %s\n"+
			"👥 Unique users: %d\n"+
			"📈 Commands handled: %d\n\n"+
			"📋 Per command:\n%s\n\n"+
			"💾 Storage size: %.2f KB",
		formatUptime(report.Uptime),
		report.UniqueUsers,
		report.TotalCommands,
		strings.TrimRight(commandLines.String(), "\n"),
		r.tasks.StorageSizeKB(),
	))
}

func formatUptime(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

func senderID(msg *telegram.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}
