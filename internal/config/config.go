package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config はアプリケーション設定を表す
type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"development"`
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL"`
	Server    ServerConfig    `yaml:"server"`
	Venue     VenueConfig     `yaml:"venue"`
	Redis     RedisConfig     `yaml:"redis"`
	Worker    WorkerConfig    `yaml:"worker"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Hold      HoldConfig      `yaml:"hold"`
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// VenueConfig は会場レイアウトの読み込み設定。File が空なら組み込みの会場を使う
type VenueConfig struct {
	File string `yaml:"file" env:"VENUE_FILE"`
}

// RedisConfig はRedis設定。Enabled の場合のみ空席数キャッシュを使う
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"30s"`
}

// WorkerConfig はバックグラウンドワーカー設定。SweepInterval が0なら起動しない
type WorkerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL" env-default:"1s"`
}

// MetricsConfig は /metrics の Basic 認証設定
type MetricsConfig struct {
	User     string `yaml:"user" env:"METRICS_USER"`
	Password string `yaml:"password" env:"METRICS_PASSWORD"`
}

// RateLimitConfig はAPIのレート制限。RPS が0以下なら制限しない
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"100"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"200"`
}

// HoldConfig は仮押さえ・予約確定の設定
type HoldConfig struct {
	ConfirmationCodeLength int `yaml:"confirmation_code_length" env:"CONFIRMATION_CODE_LENGTH" env-default:"10"`
}

// IsDevelopment は開発環境かを返す
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load はカレントディレクトリの .env（存在する場合）と環境変数から設定を読み込む
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env の読み込みに失敗: %w", err)
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	return cfg, nil
}

// LoadFromFile はYAMLファイルから設定を読み込む。環境変数はファイルの値より優先される
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイル %s の読み込みに失敗: %w", path, err)
	}
	return cfg, nil
}
