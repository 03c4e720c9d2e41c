package config

import (
	"os"
	"strconv"
	"strings"

	"ton_miner/internal/logger"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	AppPort          string
	DatabaseURL      string
	Store            string
	BotToken         string
	BotUsername      string
	WebAppURL        string
	AdminTelegramIDs []int64 // tg id админов бота

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limits
	APIRateLimit     int
	APIRateWindow    int
	ActionRateLimit  int
	ActionRateWindow int

	EconomyConfigPath string
	LogLevel          string
	LogJSON           bool

	// Economy defaults for new accounts
	StartingDiamonds int64
	ReferralBonus    int64
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	store := strings.ToLower(os.Getenv("STORE"))
	if store == "" {
		store = StorePostgres
	}
	if store != StorePostgres && store != StoreMemory {
		logger.Fatal("unknown STORE", "store", store)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && store == StorePostgres {
		logger.Fatal("DATABASE_URL is not set")
	}

	botUsername := os.Getenv("BOT_USERNAME")
	if botUsername == "" {
		botUsername = "TonMinerBot"
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		AppPort:           port,
		DatabaseURL:       dbURL,
		Store:             store,
		BotToken:          os.Getenv("BOT_TOKEN"), // пусто - бот выключен
		BotUsername:       botUsername,
		WebAppURL:         os.Getenv("WEB_APP_URL"),
		AdminTelegramIDs:  parseIDs(os.Getenv("ADMIN_TELEGRAM_IDS")),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		APIRateLimit:      envInt("API_RATE_LIMIT", 120),
		APIRateWindow:     envInt("API_RATE_WINDOW_SECONDS", 60),
		ActionRateLimit:   envInt("ACTION_RATE_LIMIT", 60), // макс действий за ->
		ActionRateWindow:  envInt("ACTION_RATE_WINDOW_SECONDS", 60),
		EconomyConfigPath: os.Getenv("ECONOMY_CONFIG"),
		LogLevel:          logLevel,
		LogJSON:           os.Getenv("LOG_JSON") == "true",
		StartingDiamonds:  int64(envInt("STARTING_DIAMONDS", 10)),
		ReferralBonus:     int64(envInt("REFERRAL_BONUS", 2)),
	}
}

// IsAdmin reports whether tgID is listed in ADMIN_TELEGRAM_IDS.
func (c *Config) IsAdmin(tgID int64) bool {
	for _, id := range c.AdminTelegramIDs {
		if id == tgID {
			return true
		}
	}
	return false
}

// !! ЧЕРЕЗ ЗАПЯТУЮ В ENV !!
func parseIDs(raw string) []int64 {
	var ids []int64
	if raw == "" {
		return ids
	}
	for _, idStr := range strings.Split(raw, ",") {
		idStr = strings.TrimSpace(idStr)
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// envInt returns def for unset, malformed or negative values.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Warn("ignoring invalid env value", "key", key, "value", v)
		return def
	}
	return n
}
