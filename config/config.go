package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Events     EventsConfig     `mapstructure:"events"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EventsConfig configures the Kafka publisher for order.settled events.
// When Enabled is false (or no brokers are given) publishing is skipped.
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// SettlementConfig tunes the settlement pipeline.
type SettlementConfig struct {
	// ProfitFloor is the lowest profit balance a consumer may be left with
	// after a purchase. Decimal string so fractional floors survive YAML/env.
	ProfitFloor string `mapstructure:"profit_floor"`
	// MaxAttempts bounds the retry loop around version conflicts.
	MaxAttempts int           `mapstructure:"max_attempts"`
	DelayMin    time.Duration `mapstructure:"delay_min"`
	DelayMax    time.Duration `mapstructure:"delay_max"`
}

// Floor returns the parsed profit floor. Load validates the string,
// so this cannot panic on a loaded config.
func (s SettlementConfig) Floor() decimal.Decimal {
	return decimal.RequireFromString(s.ProfitFloor)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: TSE_ (Trade Settlement Engine).
// Nested keys use underscore: TSE_DATABASE_HOST, TSE_SETTLEMENT_MAX_ATTEMPTS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "trade_settlement")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "order.settled")
	v.SetDefault("settlement.profit_floor", "-1000")
	v.SetDefault("settlement.max_attempts", 5)
	v.SetDefault("settlement.delay_min", "1s")
	v.SetDefault("settlement.delay_max", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: TSE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("TSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if _, err := decimal.NewFromString(cfg.Settlement.ProfitFloor); err != nil {
		return nil, fmt.Errorf("settlement.profit_floor %q: %w", cfg.Settlement.ProfitFloor, err)
	}
	if cfg.Settlement.MaxAttempts < 1 {
		return nil, fmt.Errorf("settlement.max_attempts must be at least 1, got %d", cfg.Settlement.MaxAttempts)
	}
	if cfg.Settlement.DelayMax < cfg.Settlement.DelayMin {
		return nil, fmt.Errorf("settlement.delay_max %s is below delay_min %s", cfg.Settlement.DelayMax, cfg.Settlement.DelayMin)
	}

	return &cfg, nil
}
