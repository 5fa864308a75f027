package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"feedrender/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config представляет основную конфигурацию рендерера лент.
// Содержит настройки сервера, логгера и приложения.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Logger LoggerConfig `yaml:"logger"`
	App    AppConfig    `yaml:"app"`
}

// ServerConfig содержит настройки HTTP-сервера предпросмотра.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LoggerConfig содержит настройки системы логирования.
// Пустой Dir означает вывод в stderr без ротации.
type LoggerConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// FeedURL представляет ленту, которую нужно держать в тёплом кэше.
type FeedURL struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// AppConfig содержит настройки кэша, загрузки и тегов.
type AppConfig struct {
	CacheDir           string    `yaml:"cache_dir"`
	CachePrefix        string    `yaml:"cache_prefix"`
	DefaultCacheTTL    int       `yaml:"default_cache_ttl"`
	FetchTimeout       string    `yaml:"fetch_timeout"`
	UserAgent          string    `yaml:"user_agent"`
	Production         bool      `yaml:"production"`
	DateFormat         string    `yaml:"date_format"`
	Timezone           string    `yaml:"timezone"`
	DefaultLimit       int       `yaml:"default_limit"`
	FeedURLs           []FeedURL `yaml:"feed_urls"`
	ProcessingInterval string    `yaml:"processing_interval"`
}

// Load загружает конфигурацию из YAML-файла. Ссылки вида ${VAR} заменяются
// значениями переменных окружения. Незаданные поля берутся из New.
func Load(configPath string) (*Config, error) {
	cfg := New()
	fileData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	expanded := os.Expand(string(fileData), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML from file %s: %w", configPath, err)
	}
	return cfg, nil
}

// New создает новый экземпляр Config со значениями по умолчанию.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Logger: LoggerConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		App: AppConfig{
			CacheDir:           os.TempDir(),
			CachePrefix:        "txp_ais_feed",
			DefaultCacheTTL:    3600,
			FetchTimeout:       "10s",
			UserAgent:          "feedrender/1.0",
			DateFormat:         "%d %b %Y",
			Timezone:           "Local",
			FeedURLs:           []FeedURL{},
			ProcessingInterval: "15m",
		},
	}
}

// Validate проверяет корректность конфигурации.
// Возвращает ошибку с описанием первой найденной проблемы.
func (c *Config) Validate() error {
	if c.App.CacheDir == "" {
		return fmt.Errorf("app.cache_dir is not set")
	}
	if c.App.CachePrefix == "" {
		return fmt.Errorf("app.cache_prefix is not set")
	}
	if c.App.DefaultCacheTTL < 0 {
		return fmt.Errorf("app.default_cache_ttl must not be negative")
	}
	if c.App.DefaultLimit < 0 {
		return fmt.Errorf("app.default_limit must not be negative")
	}
	if _, err := time.ParseDuration(c.App.FetchTimeout); err != nil {
		return fmt.Errorf("invalid app.fetch_timeout: %w", err)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone: %w", err)
	}
	for _, feed := range c.App.FeedURLs {
		if u, err := url.ParseRequestURI(feed.URL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid url in app.feed_urls: %s", feed.URL)
		}
		if feed.Name == "" {
			return fmt.Errorf("feed name cannot be empty for url: %s", feed.URL)
		}
	}
	interval, err := time.ParseDuration(c.App.ProcessingInterval)
	if err != nil {
		return fmt.Errorf("invalid app.processing_interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("app.processing_interval must be positive, got %s", c.App.ProcessingInterval)
	}
	return nil
}

// CacheTTL возвращает TTL кэша по умолчанию.
func (a AppConfig) CacheTTL() time.Duration {
	return domain.TTLSeconds(int64(a.DefaultCacheTTL))
}

// FetchTimeoutDuration возвращает таймаут загрузки. Значение проверено Validate.
func (a AppConfig) FetchTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(a.FetchTimeout)
	return d
}

// Interval возвращает период прогрева кэша. Значение проверено Validate.
func (a AppConfig) Interval() time.Duration {
	d, _ := time.ParseDuration(a.ProcessingInterval)
	return d
}

// Location возвращает часовой пояс для дат публикации.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FeedNames сопоставляет URL лент с их именами.
func (a AppConfig) FeedNames() map[string]string {
	names := make(map[string]string, len(a.FeedURLs))
	for _, f := range a.FeedURLs {
		names[f.URL] = f.Name
	}
	return names
}
