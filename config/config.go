package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"btcdesk/models"
)

// Config holds all application configuration
type Config struct {
	Symbol          string        `env:"SYMBOL" envDefault:"BTCUSDT"`
	CandleInterval  string        `env:"CANDLE_INTERVAL" envDefault:"15m"`
	CandleCount     int           `env:"CANDLE_COUNT" envDefault:"500"`
	PricePoll       time.Duration `env:"PRICE_POLL" envDefault:"5s"`
	CandlePoll      time.Duration `env:"CANDLE_POLL" envDefault:"30s"`
	AICycle         time.Duration `env:"AI_CYCLE" envDefault:"30s"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY" envDefault:"-"`
	BingXAPIKey     string        `env:"BINGX_API_KEY" envDefault:"-"`
	BingXSecretKey  string        `env:"BINGX_SECRET_KEY" envDefault:"-"`
	TradingMode     string        `env:"TRADING_MODE" envDefault:"paper"` // paper or live
	StartBalance    float64       `env:"START_BALANCE" envDefault:"1000"`
	MaxPositionUSDT float64       `env:"MAX_POSITION_USDT" envDefault:"100"`
	PostgresDSN     string        `env:"POSTGRES_DSN" envDefault:"-"`
	TelegramToken   string        `env:"TELEGRAM_TOKEN" envDefault:"-"`
	TelegramChatID  int64         `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout  int           `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.Symbol = getEnvWithDefault("SYMBOL", "BTCUSDT")
	cfg.CandleInterval = getEnvWithDefault("CANDLE_INTERVAL", "15m")
	cfg.CandleCount = getEnvIntWithDefault("CANDLE_COUNT", 500)
	cfg.PricePoll = getEnvDurationWithDefault("PRICE_POLL", 5*time.Second)
	cfg.CandlePoll = getEnvDurationWithDefault("CANDLE_POLL", 30*time.Second)
	cfg.AICycle = getEnvDurationWithDefault("AI_CYCLE", 30*time.Second)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.BingXAPIKey = os.Getenv("BINGX_API_KEY")
	cfg.BingXSecretKey = os.Getenv("BINGX_SECRET_KEY")
	cfg.TradingMode = getEnvWithDefault("TRADING_MODE", "paper")
	cfg.StartBalance = getEnvFloatWithDefault("START_BALANCE", 1000)
	cfg.MaxPositionUSDT = getEnvFloatWithDefault("MAX_POSITION_USDT", 100)
	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)
	cfg.ListenAddr = getEnvWithDefault("LISTEN_ADDR", ":8080")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)

	// Price poll below one second hammers the exchange for no benefit
	if cfg.PricePoll < time.Second {
		cfg.PricePoll = time.Second
	}

	return &cfg, nil
}

// Policy returns the trading policy preset selected by TRADING_MODE.
func (c *Config) Policy() models.Policy {
	if c.TradingMode == "live" {
		return models.LivePolicy(c.MaxPositionUSDT)
	}
	return models.PaperPolicy(c.MaxPositionUSDT)
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
