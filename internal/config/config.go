package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	// Chat relay
	WebhookURL      string
	DailyLimit      int
	RequestTimeout  int // seconds, per upstream round-trip
	DefaultLanguage string
	MessagesFile    string
	// Storage: DB_URL wins over DATA_DIR; neither means in-memory only
	DatabaseURL string
	DataDir     string
	// Optional direct LLM upstream when no webhook is configured
	OpenAIAPIKey string
	Model        string
	// WhatsApp enquiry links
	WhatsAppPhone string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:            getEnvDefault("PORT", "8080"),
		AllowedOrigin:   getEnvDefault("ALLOWED_ORIGIN", "*"),
		WebhookURL:      os.Getenv("CHAT_WEBHOOK_URL"),
		DailyLimit:      getEnvIntDefault("CHAT_DAILY_LIMIT", 50),
		RequestTimeout:  getEnvIntDefault("CHAT_REQUEST_TIMEOUT", 20),
		DefaultLanguage: getEnvDefault("CHAT_DEFAULT_LANGUAGE", "ru"),
		MessagesFile:    os.Getenv("CHAT_MESSAGES_FILE"),
		DatabaseURL:     os.Getenv("DB_URL"),
		DataDir:         os.Getenv("DATA_DIR"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		Model:           getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		WhatsAppPhone:   getEnvDefault("WHATSAPP_PHONE", "77081486845"),
	}
	if cfg.WebhookURL == "" && cfg.OpenAIAPIKey == "" {
		log.Println("warning: neither CHAT_WEBHOOK_URL nor OPENAI_API_KEY is set; chat replies will fail until one is provided")
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
		log.Printf("warning: invalid value for %s: %q, using %d", key, v, def)
	}
	return def
}
