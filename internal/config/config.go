package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Configはアプリ全体の設定
type Config struct {
	Port string `envconfig:"PORT" default:"8080"` // サーバーポート

	DatabaseURL      string `envconfig:"DATABASE_URL"` // あれば最優先
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"coffeeshop"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	// カートの保存先。空ならメモリのみ
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CartTTL       time.Duration `envconfig:"CART_TTL" default:"168h"`
	CartSessions  int           `envconfig:"CART_SESSIONS" default:"10000"` // メモリに持つセッション数

	// 注文イベント。空ならpublishしない
	KafkaBrokers    string `envconfig:"KAFKA_BROKERS"`
	KafkaOrderTopic string `envconfig:"KAFKA_ORDER_TOPIC" default:"orders.placed"`

	JWTSecret string        `envconfig:"JWT_SECRET"`              // JWT署名シークレット
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"168h"` // auth-tokenの有効期限

	CheckoutTimeout time.Duration `envconfig:"CHECKOUT_TIMEOUT" default:"10s"`
	CookieSecure    bool          `envconfig:"COOKIE_SECURE" default:"true"`

	GoEnv    string `envconfig:"GO_ENV" default:"prod"` // dev/prod
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Loadは環境変数から読む
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	//必須チェック
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.JWTSecret == "" {
		if !c.IsDev() {
			return fmt.Errorf("JWT_SECRET is required")
		}
		c.JWTSecret = "dev_secret_change_me"
	}
	if c.CartSessions <= 0 {
		return fmt.Errorf("CART_SESSIONS must be positive")
	}
	if c.CheckoutTimeout < 0 {
		return fmt.Errorf("CHECKOUT_TIMEOUT must not be negative")
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

// Addrは":8080"形式で返す
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

// DSNはgorm postgres用の接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}
