package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "UNIHELPER"
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unihelper",
		Short: "Telegram assistant bot",
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.AddCommand(newBotCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initConfig() {
	// Local development keeps secrets in a .env file; absence is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// Bare variable names, without the prefix, for deployments that
	// already export them this way.
	_ = viper.BindEnv("telegram.bot_token", "UNIHELPER_TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
	_ = viper.BindEnv("weather.api_key", "UNIHELPER_WEATHER_API_KEY", "OPENWEATHER_API_KEY")
	_ = viper.BindEnv("exchange.api_key", "UNIHELPER_EXCHANGE_API_KEY", "EXCHANGE_API_KEY")

	cfgFile := strings.TrimSpace(viper.GetString("config"))
	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
	}
}
