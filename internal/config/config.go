package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Article sources
const (
	SourceNewsAPI = "newsapi"
	SourceRSS     = "rss"
)

// Classifiers
const (
	ClassifierHuggingFace = "huggingface"
	ClassifierOllama      = "ollama"
)

// Result stores
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Server     ServerConfig
	Security   SecurityConfig
	News       NewsConfig
	Classifier ClassifierConfig
	Store      StoreConfig
	LogLevel   string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	Environment  string // development, staging, production
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// RequestTimeout bounds a whole analyze request.
	RequestTimeout time.Duration
}

// SecurityConfig holds CSRF settings for the web form.
type SecurityConfig struct {
	CSRFSecret     string
	SecureCookies  bool
	TrustedOrigins []string
}

// NewsConfig selects and configures the article source.
type NewsConfig struct {
	Source        string
	APIKey        string
	BaseURL       string
	Language      string
	PageSize      int
	MaxPages      int
	RatePerSecond float64
	RSSSearchURL  string
	Timeout       time.Duration
}

// ClassifierConfig selects and configures the sentiment classifier.
type ClassifierConfig struct {
	Kind        string
	HFAPIToken  string
	HFBaseURL   string
	HFModel     string
	OllamaHost  string
	OllamaModel string
	Workers     int
	Timeout     time.Duration
}

// StoreConfig selects and configures the result store.
type StoreConfig struct {
	Kind        string
	DatabaseURL string
	RedisURL    string
	ResultTTL   time.Duration
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from the environment. A .env file is loaded
// first when present; variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	cfg.Server = ServerConfig{
		Port:           getEnvOrDefault("SERVER_PORT", "8000"),
		Environment:    getEnvOrDefault("APP_ENV", "development"),
		ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 15*time.Second, &errs),
		WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute, &errs),
		IdleTimeout:    getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second, &errs),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 4*time.Minute, &errs),
	}

	cfg.Security = SecurityConfig{
		CSRFSecret:     os.Getenv("CSRF_SECRET"),
		SecureCookies:  cfg.IsProduction(),
		TrustedOrigins: splitFields(os.Getenv("CSRF_TRUSTED_ORIGINS")),
	}

	cfg.News = NewsConfig{
		Source:        getEnvOrDefault("ARTICLE_SOURCE", SourceNewsAPI),
		APIKey:        os.Getenv("NEWS_API_KEY"),
		BaseURL:       getEnvOrDefault("NEWS_API_BASE_URL", "https://newsapi.org/v2"),
		Language:      getEnvOrDefault("NEWS_API_LANGUAGE", "en"),
		PageSize:      getInt("NEWS_API_PAGE_SIZE", 100, &errs),
		MaxPages:      getInt("NEWS_API_MAX_PAGES", 1, &errs),
		RatePerSecond: getFloat("NEWS_API_RATE_PER_SECOND", 1, &errs),
		RSSSearchURL:  getEnvOrDefault("RSS_SEARCH_URL", "https://news.google.com/rss/search"),
		Timeout:       getDuration("NEWS_API_TIMEOUT", 30*time.Second, &errs),
	}

	cfg.Classifier = ClassifierConfig{
		Kind:        getEnvOrDefault("CLASSIFIER", ClassifierHuggingFace),
		HFAPIToken:  os.Getenv("HF_API_TOKEN"),
		HFBaseURL:   getEnvOrDefault("HF_BASE_URL", "https://api-inference.huggingface.co/models"),
		HFModel:     getEnvOrDefault("HF_MODEL", "nlptown/bert-base-multilingual-uncased-sentiment"),
		OllamaHost:  getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: getEnvOrDefault("OLLAMA_MODEL", "mistral"),
		Workers:     getInt("CLASSIFIER_WORKERS", 4, &errs),
		Timeout:     getDuration("CLASSIFIER_TIMEOUT", 30*time.Second, &errs),
	}

	cfg.Store = StoreConfig{
		Kind:        getEnvOrDefault("RESULT_STORE", StorePostgres),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		ResultTTL:   getDuration("RESULT_TTL", 0, &errs),
	}

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration parsing failed:\n%w", errors.Join(errs...))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and valid.
// Missing credentials are reported together so a single restart fixes them.
func (c *Config) validate() error {
	var errs []error

	switch c.News.Source {
	case SourceNewsAPI:
		if c.News.APIKey == "" {
			errs = append(errs, errors.New("NEWS_API_KEY is required"))
		}
	case SourceRSS:
	default:
		errs = append(errs, fmt.Errorf("ARTICLE_SOURCE must be one of: newsapi, rss (got: %s)", c.News.Source))
	}

	switch c.Classifier.Kind {
	case ClassifierHuggingFace:
		if c.Classifier.HFAPIToken == "" {
			errs = append(errs, errors.New("HF_API_TOKEN is required"))
		}
	case ClassifierOllama:
		if c.Classifier.OllamaHost == "" {
			errs = append(errs, errors.New("OLLAMA_HOST is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("CLASSIFIER must be one of: huggingface, ollama (got: %s)", c.Classifier.Kind))
	}

	if c.Classifier.Workers < 1 || c.Classifier.Workers > 64 {
		errs = append(errs, errors.New("CLASSIFIER_WORKERS must be between 1 and 64"))
	}

	switch c.Store.Kind {
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required"))
		}
	case StoreRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("RESULT_STORE must be one of: postgres, redis (got: %s)", c.Store.Kind))
	}

	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}

// getEnvOrDefault returns the env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return f
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

func splitFields(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == ',' || r == '\t' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
