package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"unihelper/internal/bot"
	"unihelper/internal/exchange"
	"unihelper/internal/logutil"
	"unihelper/internal/stats"
	"unihelper/internal/tasks"
	"unihelper/internal/telegram"
	"unihelper/internal/weather"
)

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram assistant bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(flagOrViperString(cmd, "bot-token", "telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via --bot-token or BOT_TOKEN)")
			}

			baseURL := strings.TrimRight(strings.TrimSpace(flagOrViperString(cmd, "telegram-base-url", "telegram.base_url")), "/")

			weatherKey := strings.TrimSpace(flagOrViperString(cmd, "weather-api-key", "weather.api_key"))

			// The exchangerate-api v4 endpoint is keyless; the key slot is
			// kept so configs carrying EXCHANGE_API_KEY stay valid.
			_ = strings.TrimSpace(flagOrViperString(cmd, "exchange-api-key", "exchange.api_key"))

			tasksFile := strings.TrimSpace(flagOrViperString(cmd, "tasks-file", "tasks.file"))
			if tasksFile == "" {
				tasksFile = "tasks.json"
			}

			pollTimeout := flagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout")
			if pollTimeout <= 0 {
				pollTimeout = 30 * time.Second
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			api := telegram.NewClient(nil, baseURL, token)

			me, err := api.GetMe(cmd.Context())
			if err != nil {
				return err
			}

			store := tasks.NewStore(tasksFile, logger)
			collector := stats.NewCollector()
			weatherClient := weather.NewClient(nil, flagOrViperString(cmd, "weather-base-url", "weather.base_url"), weatherKey, logger)
			exchangeClient := exchange.NewClient(nil, flagOrViperString(cmd, "exchange-base-url", "exchange.base_url"))

			if weatherKey == "" {
				logger.Warn("weather_disabled", "reason", "missing OPENWEATHER_API_KEY")
			}
			logger.Info("unihelper_start",
				"bot_username", me.Username,
				"bot_id", me.ID,
				"tasks_file", tasksFile,
				"poll_timeout", pollTimeout.String(),
			)

			router := bot.New(bot.Config{
				API:            api,
				Tasks:          store,
				Weather:        weatherClient,
				Exchange:       exchangeClient,
				Stats:          collector,
				Logger:         logger,
				WeatherEnabled: weatherKey != "",
				PollTimeout:    pollTimeout,
			})

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return router.Run(runCtx)
		},
	}

	cmd.Flags().String("bot-token", "", "Telegram bot token.")
	cmd.Flags().String("telegram-base-url", "", "Telegram API base URL (default https://api.telegram.org).")
	cmd.Flags().String("weather-api-key", "", "OpenWeather API key; weather command is disabled without it.")
	cmd.Flags().String("weather-base-url", "", "OpenWeather API base URL.")
	cmd.Flags().String("exchange-api-key", "", "Exchange rate API key (unused by the v4 endpoint).")
	cmd.Flags().String("exchange-base-url", "", "Exchange rate API base URL.")
	cmd.Flags().String("tasks-file", "", "Path of the JSON task store (default tasks.json).")
	cmd.Flags().Duration("poll-timeout", 0, "Telegram long-poll timeout (default 30s).")

	return cmd
}
