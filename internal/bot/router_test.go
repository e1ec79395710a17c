package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"unihelper/internal/stats"
	"unihelper/internal/tasks"
	"unihelper/internal/telegram"
	"unihelper/internal/weather"
)

type sentMessage struct {
	ChatID    int64
	MessageID int64
	Text      string
	Keyboard  *telegram.InlineKeyboardMarkup
}

type fakeAPI struct {
	mu       sync.Mutex
	sent     []sentMessage
	edited   []sentMessage
	answered []string
	fileData []byte
	fileErr  error
}

func (f *fakeAPI) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error) {
	return nil, offset, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return nil
}

func (f *fakeAPI) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, sentMessage{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: keyboard})
	return nil
}

func (f *fakeAPI) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackQueryID)
	return nil
}

func (f *fakeAPI) FileBytes(ctx context.Context, fileID string) ([]byte, error) {
	return f.fileData, f.fileErr
}

func (f *fakeAPI) lastSent(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

type stubWeather struct {
	report weather.Report
	err    error
	calls  int
}

func (s *stubWeather) Current(ctx context.Context, city string) (weather.Report, error) {
	s.calls++
	return s.report, s.err
}

type stubExchange struct {
	rates map[string]float64
	err   error
}

func (s *stubExchange) Latest(ctx context.Context, base string) (map[string]float64, error) {
	return s.rates, s.err
}

type fixture struct {
	router   *Router
	api      *fakeAPI
	tasks    *tasks.Store
	stats    *stats.Collector
	weather  *stubWeather
	exchange *stubExchange
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{}
	store := tasks.NewStore(filepath.Join(t.TempDir(), "tasks.json"), nil)
	collector := stats.NewCollector()
	w := &stubWeather{}
	e := &stubExchange{}
	router := New(Config{
		API:            api,
		Tasks:          store,
		Weather:        w,
		Exchange:       e,
		Stats:          collector,
		WeatherEnabled: true,
	})
	return &fixture{router: router, api: api, tasks: store, stats: collector, weather: w, exchange: e}
}

func textMessage(chatID, userID int64, text string) *telegram.Message {
	return &telegram.Message{
		MessageID: 1,
		Chat:      &telegram.Chat{ID: chatID, Type: "private"},
		From:      &telegram.User{ID: userID},
		Text:      text,
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		wantCmd  string
		wantArgs []string
	}{
		{text: "/start", wantCmd: "start"},
		{text: "/todo add buy milk", wantCmd: "todo", wantArgs: []string{"add", "buy", "milk"}},
		{text: "/WEATHER@UniHelperBot Moscow", wantCmd: "weather", wantArgs: []string{"Moscow"}},
		{text: "hello there", wantCmd: ""},
		{text: "   ", wantCmd: ""},
		{text: "/", wantCmd: ""},
	}
	for _, tc := range tests {
		cmd, args := parseCommand(tc.text)
		if cmd != tc.wantCmd {
			t.Fatalf("parseCommand(%q) cmd = %q, want %q", tc.text, cmd, tc.wantCmd)
		}
		if len(args) != len(tc.wantArgs) {
			t.Fatalf("parseCommand(%q) args = %v, want %v", tc.text, args, tc.wantArgs)
		}
		for i := range args {
			if args[i] != tc.wantArgs[i] {
				t.Fatalf("parseCommand(%q) args = %v, want %v", tc.text, args, tc.wantArgs)
			}
		}
	}
}

func TestTodoAddAndDone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/todo add buy milk")})
	got := f.api.lastSent(t)
	if got.Text != "✅ Task added (ID: 1): buy milk" {
		t.Fatalf("add reply = %q", got.Text)
	}

	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/todo done 1")})
	got = f.api.lastSent(t)
	if got.Text != "✅ Task 1 marked as done" {
		t.Fatalf("done reply = %q", got.Text)
	}

	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/todo done 99")})
	got = f.api.lastSent(t)
	if got.Text != "❌ Task with ID 99 not found" {
		t.Fatalf("done miss reply = %q", got.Text)
	}

	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/todo done abc")})
	got = f.api.lastSent(t)
	if got.Text != "❌ The task id must be a number" {
		t.Fatalf("done non-numeric reply = %q", got.Text)
	}
}

func TestTodoListPaginationKeyboard(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for i := 1; i <= 25; i++ {
		if _, err := f.tasks.Add(fmt.Sprintf("task %d", i)); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/todo list")})
	got := f.api.lastSent(t)
	if !strings.Contains(got.Text, "(page 1)") {
		t.Fatalf("list reply = %q, want page 1 header", got.Text)
	}
	if !strings.Contains(got.Text, "• 1. task 1") || !strings.Contains(got.Text, "• 10. task 10") {
		t.Fatalf("list reply = %q, want tasks 1..10", got.Text)
	}
	if strings.Contains(got.Text, "• 11.") {
		t.Fatalf("list reply = %q, must not include task 11", got.Text)
	}
	if got.Keyboard == nil || len(got.Keyboard.InlineKeyboard) != 1 {
		t.Fatalf("page 0 keyboard = %+v, want only next", got.Keyboard)
	}
	if got.Keyboard.InlineKeyboard[0][0].CallbackData != "tasks_page_1" {
		t.Fatalf("page 0 next callback = %q, want tasks_page_1", got.Keyboard.InlineKeyboard[0][0].CallbackData)
	}
}

func TestPaginationCallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for i := 1; i <= 25; i++ {
		if _, err := f.tasks.Add(fmt.Sprintf("task %d", i)); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	callback := func(data string) telegram.Update {
		return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb-" + data,
			From: &telegram.User{ID: 1},
			Message: &telegram.Message{
				MessageID: 77,
				Chat:      &telegram.Chat{ID: 10},
			},
			Data: data,
		}}
	}

	// Middle page: both directions available.
	f.router.HandleUpdate(ctx, callback("tasks_page_1"))
	if len(f.api.edited) != 1 {
		t.Fatalf("edited = %d, want 1", len(f.api.edited))
	}
	middle := f.api.edited[0]
	if middle.MessageID != 77 {
		t.Fatalf("edit message id = %d, want 77", middle.MessageID)
	}
	if !strings.Contains(middle.Text, "(page 2)") || !strings.Contains(middle.Text, "• 11. task 11") {
		t.Fatalf("page 1 text = %q", middle.Text)
	}
	if middle.Keyboard == nil || len(middle.Keyboard.InlineKeyboard) != 2 {
		t.Fatalf("page 1 keyboard = %+v, want prev and next", middle.Keyboard)
	}
	if middle.Keyboard.InlineKeyboard[0][0].CallbackData != "tasks_page_0" {
		t.Fatalf("prev callback = %q, want tasks_page_0", middle.Keyboard.InlineKeyboard[0][0].CallbackData)
	}
	if middle.Keyboard.InlineKeyboard[1][0].CallbackData != "tasks_page_2" {
		t.Fatalf("next callback = %q, want tasks_page_2", middle.Keyboard.InlineKeyboard[1][0].CallbackData)
	}

	// Last page: only prev.
	f.router.HandleUpdate(ctx, callback("tasks_page_2"))
	last := f.api.edited[1]
	if !strings.Contains(last.Text, "• 25. task 25") {
		t.Fatalf("page 2 text = %q, want task 25", last.Text)
	}
	if last.Keyboard == nil || len(last.Keyboard.InlineKeyboard) != 1 {
		t.Fatalf("page 2 keyboard = %+v, want only prev", last.Keyboard)
	}
	if last.Keyboard.InlineKeyboard[0][0].CallbackData != "tasks_page_1" {
		t.Fatalf("page 2 prev callback = %q, want tasks_page_1", last.Keyboard.InlineKeyboard[0][0].CallbackData)
	}

	if len(f.api.answered) != 2 {
		t.Fatalf("answered callbacks = %d, want 2", len(f.api.answered))
	}
}

func TestTodoListEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.HandleUpdate(context.Background(), telegram.Update{Message: textMessage(10, 1, "/todo list")})
	got := f.api.lastSent(t)
	if got.Text != "📝 You have no active tasks" {
		t.Fatalf("empty list reply = %q", got.Text)
	}
	if got.Keyboard != nil {
		t.Fatalf("empty list keyboard = %+v, want nil", got.Keyboard)
	}
}

func TestWeatherCommand(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.weather.report = weather.Report{
		City:        "Moscow",
		Temp:        -7.3,
		Description: "light snow",
		Humidity:    81,
		WindSpeed:   4.2,
	}

	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/weather Moscow")})
	got := f.api.lastSent(t)
	for _, want := range []string{"Weather in Moscow", "-7.3°C", "light snow", "81%", "4.2 m/s"} {
		if !strings.Contains(got.Text, want) {
			t.Fatalf("weather reply = %q, want substring %q", got.Text, want)
		}
	}
}

func TestWeatherCityNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.weather.err = weather.ErrCityNotFound
	f.router.HandleUpdate(context.Background(), telegram.Update{Message: textMessage(10, 1, "/weather Nowhere")})
	got := f.api.lastSent(t)
	if got.Text != "❌ City 'Nowhere' not found" {
		t.Fatalf("weather reply = %q", got.Text)
	}
}

func TestWeatherDisabledWithoutKey(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.weatherEnabled = false
	f.router.HandleUpdate(context.Background(), telegram.Update{Message: textMessage(10, 1, "/weather Moscow")})
	got := f.api.lastSent(t)
	if got.Text != "❌ The weather service is unavailable (missing API key)" {
		t.Fatalf("weather reply = %q", got.Text)
	}
	if f.weather.calls != 0 {
		t.Fatalf("weather calls = %d, want 0 (no network without key)", f.weather.calls)
	}
}

func TestRatePartialSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.exchange.rates = map[string]float64{"EUR": 0.9123456, "RUB": 92.5}
	f.router.HandleUpdate(context.Background(), telegram.Update{Message: textMessage(10, 1, "/rate USD EUR,RUB,ZZZ")})
	got := f.api.lastSent(t)
	for _, want := range []string{"base: USD", "• EUR: 0.9123", "• RUB: 92.5000", "• ZZZ: unavailable"} {
		if !strings.Contains(got.Text, want) {
			t.Fatalf("rate reply = %q, want substring %q", got.Text, want)
		}
	}
}

func TestRateFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.exchange.err = errors.New("exchange http 503: nope")
	f.router.HandleUpdate(context.Background(), telegram.Update{Message: textMessage(10, 1, "/rate USD EUR")})
	got := f.api.lastSent(t)
	if !strings.Contains(got.Text, "Failed to fetch exchange rates") || !strings.Contains(got.Text, "503") {
		t.Fatalf("rate reply = %q", got.Text)
	}
}

func TestAttachmentRoutesToFileInspector(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.api.fileData = []byte("abc")
	msg := textMessage(10, 1, "")
	msg.Document = &telegram.Document{FileID: "d1", FileName: "abc.txt", FileSize: 3}

	f.router.HandleUpdate(context.Background(), telegram.Update{Message: msg})
	got := f.api.lastSent(t)
	for _, want := range []string{
		"📄 Document",
		"Name: abc.txt",
		"3 bytes (0.00 KB)",
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
	} {
		if !strings.Contains(got.Text, want) {
			t.Fatalf("fileinfo reply = %q, want substring %q", got.Text, want)
		}
	}
	if f.stats.Snapshot().Commands[0].Name != "fileinfo" {
		t.Fatalf("fileinfo command not counted")
	}
}

func TestAttachmentDownloadFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.api.fileErr = errors.New("telegram file http 404: gone")
	msg := textMessage(10, 1, "")
	msg.Photo = []telegram.PhotoSize{{FileID: "p1", FileSize: 100}}

	f.router.HandleUpdate(context.Background(), telegram.Update{Message: msg})
	got := f.api.lastSent(t)
	if got.Text != "❌ Could not fetch the file content" {
		t.Fatalf("fileinfo failure reply = %q", got.Text)
	}
}

func TestCountersBumpBeforeValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// All invalid invocations, still counted.
	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/weather")})
	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 2, "/rate USD")})
	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 2, "/todo done")})

	report := f.stats.Snapshot()
	if report.TotalCommands != 3 {
		t.Fatalf("TotalCommands = %d, want 3", report.TotalCommands)
	}
	if report.UniqueUsers != 2 {
		t.Fatalf("UniqueUsers = %d, want 2", report.UniqueUsers)
	}
}

func TestStatsCommand(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/start")})
	f.router.HandleUpdate(ctx, telegram.Update{Message: textMessage(10, 1, "/stats")})

	got := f.api.lastSent(t)
	for _, want := range []string{"Bot statistics", "Unique users: 1", "Commands handled: 2", "• start: 1", "• stats: 1", "Storage size: 0.00 KB"} {
		if !strings.Contains(got.Text, want) {
			t.Fatalf("stats reply = %q, want substring %q", got.Text, want)
		}
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.HandleUpdate(context.Background(), telegram.Update{Message: textMessage(10, 1, "/frobnicate")})
	if len(f.api.sent) != 0 {
		t.Fatalf("sent = %d messages for unknown command, want 0", len(f.api.sent))
	}
	if f.stats.Snapshot().TotalCommands != 0 {
		t.Fatalf("unknown command counted, want uncounted")
	}
}
