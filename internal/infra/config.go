package infra

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	DBMaxConns       int
	JWTSecret        string
	JWTAudience      string
	AllowedOrigins   []string
	DefaultLocale    string
	Languages        []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	GeminiBaseURL    string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenAIOrg        string
	ProviderAttempts int
	ProviderDelay    time.Duration

	MarketplaceBaseURL      string
	MarketplaceAuthURL      string
	MarketplaceClientID     string
	MarketplaceClientSecret string
	MarketplaceRPS          int
	Currency                string

	StoragePath          string
	ImageSourceAllowlist []string

	JobRetention      time.Duration
	JobSweepInterval  time.Duration
	JobWorkers        int
	JobQueueSize      int
	ChunkSizeSimple   int
	ChunkSizeComplex  int
	GenerationWorkers int
	PricePollInterval time.Duration
	PricePollAttempts int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTAudience:      os.Getenv("JWT_AUDIENCE"),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "pl"),
		Languages:        splitList(getEnv("SUPPORTED_LANGUAGES", "pl,en,de,cs,sk,uk")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:        os.Getenv("OPENAI_ORG"),
		ProviderAttempts: getEnvInt("PROVIDER_RETRY_ATTEMPTS", 3),
		ProviderDelay:    getEnvDuration("PROVIDER_RETRY_DELAY", 2*time.Second),

		MarketplaceBaseURL:      os.Getenv("MARKETPLACE_BASE_URL"),
		MarketplaceAuthURL:      os.Getenv("MARKETPLACE_AUTH_URL"),
		MarketplaceClientID:     os.Getenv("MARKETPLACE_CLIENT_ID"),
		MarketplaceClientSecret: os.Getenv("MARKETPLACE_CLIENT_SECRET"),
		MarketplaceRPS:          getEnvInt("MARKETPLACE_RPS", 9),
		Currency:                getEnv("MARKETPLACE_CURRENCY", "PLN"),

		StoragePath: getEnv("STORAGE_PATH", "./storage"),

		JobRetention:      getEnvDuration("JOB_RETENTION", 24*time.Hour),
		JobSweepInterval:  getEnvDuration("JOB_SWEEP_INTERVAL", time.Hour),
		JobWorkers:        getEnvInt("JOB_WORKERS", 4),
		JobQueueSize:      getEnvInt("JOB_QUEUE_SIZE", 64),
		ChunkSizeSimple:   getEnvInt("CHUNK_SIZE_SIMPLE", 20),
		ChunkSizeComplex:  getEnvInt("CHUNK_SIZE_COMPLEX", 5),
		GenerationWorkers: getEnvInt("GENERATION_WORKERS", 5),
		PricePollInterval: getEnvDuration("PRICE_POLL_INTERVAL", 2*time.Second),
		PricePollAttempts: getEnvInt("PRICE_POLL_ATTEMPTS", 10),
	}

	cfg.ImageSourceAllowlist = splitList(os.Getenv("IMAGE_SOURCE_HOST_ALLOWLIST"))
	if host := hostOf(cfg.MarketplaceBaseURL); host != "" && len(cfg.ImageSourceAllowlist) > 0 {
		cfg.ImageSourceAllowlist = mergeHosts(cfg.ImageSourceAllowlist, host)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.MarketplaceBaseURL == "" {
		return nil, fmt.Errorf("MARKETPLACE_BASE_URL is required")
	}

	if cfg.DBMaxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive")
	}

	if cfg.ChunkSizeSimple <= 0 || cfg.ChunkSizeComplex <= 0 {
		return nil, fmt.Errorf("chunk sizes must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func mergeHosts(hosts []string, extra ...string) []string {
	seen := make(map[string]struct{}, len(hosts)+len(extra))
	var out []string
	for _, h := range append(append([]string{}, hosts...), extra...) {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
