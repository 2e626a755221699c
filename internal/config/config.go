// Package config loads run settings from the environment, with a .env file
// read first when present. No credential is mandatory: a source, provider or
// channel without credentials is simply not wired.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Files
	DataDir     string
	NewsCSV     string
	CacheFile   string
	PreviewFile string
	RulesFile   string // empty means the embedded defaults
	QueriesFile string

	// Postgres refinement cache; file cache when empty
	DatabaseURL string

	// Refinement providers
	GroqAPIKey         string
	GeminiAPIKey       string
	OpenAIAPIKey       string
	ClaudeAPIKey       string
	UsePaidAPI         bool
	MaxRefineRequests  int // per run across all providers (0 = unlimited)
	MaxPaidRefinements int
	// ProviderLimits caps single providers, e.g. "gemini=20,groq=50".
	ProviderLimits map[string]int

	// Fetch sources
	NaverClientID     string
	NaverClientSecret string
	DeepSearchAPIKey  string
	NewsMaxAge        time.Duration
	FetchDelay        time.Duration
	ScrapeShort       bool

	// Digest channels
	SlackWebhookURL string
	TelegramToken   string
	TelegramChatID  string
	DashboardURL    string
	DigestHours     int

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Monitoring
	EnableMonitoring bool
	MonitoringPort   string
}

// Load reads .env (if any) and the environment over the defaults.
func Load() (*Config, error) {
	// A missing .env is normal in CI where variables come from secrets.
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:            getEnvOrDefault("DATA_DIR", "data"),
		QueriesFile:        getEnvOrDefault("QUERIES_FILE", "configs/queries.yaml"),
		RulesFile:          os.Getenv("RULES_FILE"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		ClaudeAPIKey:       getEnvOrDefault("CLAUDE_API_KEY", os.Getenv("ANTHROPIC_API_KEY")),
		UsePaidAPI:         getEnvBool("USE_PAID_API"),
		MaxRefineRequests:  getEnvIntOrDefault("MAX_REFINE_REQUESTS", 30),
		MaxPaidRefinements: getEnvIntOrDefault("MAX_PAID_REFINEMENTS", 10),
		ProviderLimits:     getEnvLimits("REFINE_PROVIDER_LIMITS"),
		NaverClientID:      os.Getenv("NAVER_CLIENT_ID"),
		NaverClientSecret:  os.Getenv("NAVER_CLIENT_SECRET"),
		DeepSearchAPIKey:   os.Getenv("DEEPSEARCH_API_KEY"),
		NewsMaxAge:         getEnvDurationOrDefault("NEWS_MAX_AGE", 24*time.Hour),
		FetchDelay:         getEnvDurationOrDefault("FETCH_DELAY", 500*time.Millisecond),
		ScrapeShort:        getEnvBool("SCRAPE_SHORT_SUMMARIES"),
		SlackWebhookURL:    os.Getenv("SLACK_WEBHOOK_URL"),
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:     os.Getenv("TELEGRAM_CHAT_ID"),
		DashboardURL:       os.Getenv("DASHBOARD_URL"),
		DigestHours:        getEnvIntOrDefault("DIGEST_HOURS", 24),
		Debug:              getEnvBool("DEBUG"),
		RequestTimeout:     getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		RetryAttempts:      getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryDelay:         getEnvDurationOrDefault("RETRY_DELAY", 5*time.Second),
		EnableMonitoring:   getEnvBool("ENABLE_HTTP_MONITORING"),
		MonitoringPort:     getEnvOrDefault("MONITORING_PORT", "8080"),
	}

	cfg.NewsCSV = getEnvOrDefault("NEWS_CSV", filepath.Join(cfg.DataDir, "news.csv"))
	cfg.CacheFile = getEnvOrDefault("CACHE_FILE", filepath.Join(cfg.DataDir, "refine_cache.json"))
	cfg.PreviewFile = getEnvOrDefault("PREVIEW_FILE", filepath.Join(cfg.DataDir, "slack_preview.json"))

	return cfg, cfg.Validate()
}

// getEnvLimits parses "name=n" pairs separated by commas. Malformed pairs
// are skipped.
func getEnvLimits(key string) map[string]int {
	limits := make(map[string]int)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			continue
		}
		limits[strings.ToLower(strings.TrimSpace(name))] = n
	}
	return limits
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("750ms") or plain seconds.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

// HasTelegram reports whether both Telegram settings are present.
func (c *Config) HasTelegram() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// HasNaver reports whether both Naver credentials are present.
func (c *Config) HasNaver() bool {
	return c.NaverClientID != "" && c.NaverClientSecret != ""
}

// Validate checks structural settings only.
func (c *Config) Validate() error {
	if c.NewsCSV == "" {
		return fmt.Errorf("NEWS_CSV must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.FetchDelay < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("FETCH_DELAY and RETRY_DELAY must not be negative")
	}
	if c.MaxRefineRequests < 0 || c.MaxPaidRefinements < 0 {
		return fmt.Errorf("refinement limits must not be negative")
	}
	if c.DigestHours <= 0 {
		return fmt.Errorf("DIGEST_HOURS must be positive")
	}
	if _, err := strconv.Atoi(c.MonitoringPort); err != nil {
		return fmt.Errorf("MONITORING_PORT must be numeric: %q", c.MonitoringPort)
	}
	return nil
}
