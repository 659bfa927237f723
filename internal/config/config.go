package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Port    string
	DBPath  string
	Workers int

	MetalAPI    string
	MetalAPIKey string
	MetalBase   string
	MetalSymbol string

	SourceCode    string
	SourceName    string
	FetchInterval time.Duration

	TelegramToken  string
	TelegramAPI    string
	DailyAlertHour int
	Location       *time.Location

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "metal.db")
	v.SetDefault("WORKERS", 2)
	v.SetDefault("METAL_API", "https://api.metalpriceapi.com/v1/")
	v.SetDefault("METAL_API_KEY", "")
	v.SetDefault("METAL_BASE", "INR")
	v.SetDefault("METAL_SYMBOL", "XAU")
	v.SetDefault("SOURCE_CODE", "GOLD_INR")
	v.SetDefault("SOURCE_NAME", "Gold Price in INR")
	v.SetDefault("FETCH_INTERVAL", "5m")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("TELEGRAM_API", "https://api.telegram.org")
	v.SetDefault("DAILY_ALERT_HOUR", 7)
	v.SetDefault("TIMEZONE", "Asia/Kolkata")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
}

// Load reads configuration from an optional .env file, the environment and
// the flags in fs. A flag binds to the key of the same name in upper snake
// case, so --db-path sets DB_PATH. Flags win over the environment.
func Load(fs *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(flagKey(f.Name), f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return Config{}, bindErr
		}
	}

	cfg := Config{
		Port:    v.GetString("PORT"),
		DBPath:  v.GetString("DB_PATH"),
		Workers: v.GetInt("WORKERS"),

		MetalAPI:    v.GetString("METAL_API"),
		MetalAPIKey: v.GetString("METAL_API_KEY"),
		MetalBase:   v.GetString("METAL_BASE"),
		MetalSymbol: v.GetString("METAL_SYMBOL"),

		SourceCode: v.GetString("SOURCE_CODE"),
		SourceName: v.GetString("SOURCE_NAME"),

		TelegramToken:  v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramAPI:    v.GetString("TELEGRAM_API"),
		DailyAlertHour: v.GetInt("DAILY_ALERT_HOUR"),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUser:     v.GetString("SMTP_USER"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		SMTPFrom:     v.GetString("SMTP_FROM"),
	}

	interval, err := time.ParseDuration(v.GetString("FETCH_INTERVAL"))
	if err != nil || interval <= 0 {
		return Config{}, fmt.Errorf("invalid FETCH_INTERVAL %q", v.GetString("FETCH_INTERVAL"))
	}
	cfg.FetchInterval = interval

	if cfg.DailyAlertHour < 0 || cfg.DailyAlertHour > 23 {
		return Config{}, fmt.Errorf("DAILY_ALERT_HOUR must be between 0 and 23, got %d", cfg.DailyAlertHour)
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MetalAPIKey == "" {
		slog.Warn("METAL_API_KEY not set, live fetch and backfill are disabled")
	}

	return cfg, nil
}

func flagKey(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
