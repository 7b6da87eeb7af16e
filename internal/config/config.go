// Package config loads the daemon configuration from a YAML file, a .env
// file and TONWATCH_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Chain backends.
const (
	BackendToncenter  = "toncenter"
	BackendLiteserver = "liteserver"
)

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Cursor  CursorConfig  `mapstructure:"cursor"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Deposit DepositConfig `mapstructure:"deposit"`
	Publish PublishConfig `mapstructure:"publish"`
	Server  ServerConfig  `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

type ChainConfig struct {
	ID      string `mapstructure:"id"`
	Backend string `mapstructure:"backend"`
	// Endpoint is the toncenter URL, or the global config URL for liteserver.
	Endpoint string  `mapstructure:"endpoint"`
	APIKey   string  `mapstructure:"api_key"`
	RPS      float64 `mapstructure:"rps"`
}

type CursorConfig struct {
	// URL selects the store, see cursor.Open.
	URL string `mapstructure:"url"`
}

type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	PageSize int           `mapstructure:"page_size"`
	Wallets  []string      `mapstructure:"wallets"`
	// Chain enables the whole-network subscriber.
	Chain bool `mapstructure:"chain"`
	// HandlerRPS caps handler invocations per second across all
	// subscriptions. Zero means unlimited.
	HandlerRPS float64 `mapstructure:"handler_rps"`
}

// JettonConfig describes the jetton wallet owned by a deposit wallet for
// one jetton master.
type JettonConfig struct {
	Wallet   string `mapstructure:"wallet"`
	Symbol   string `mapstructure:"symbol"`
	Decimals int32  `mapstructure:"decimals"`
}

type DepositConfig struct {
	// DSN of the Postgres ledger. Empty disables bookkeeping.
	DSN     string         `mapstructure:"dsn"`
	Jettons []JettonConfig `mapstructure:"jettons"`
}

type PublishConfig struct {
	// URL selects the broker, see publish.Open. Empty disables publishing.
	URL   string `mapstructure:"url"`
	Topic string `mapstructure:"topic"`
}

type ServerConfig struct {
	// Addr of the status server. Empty disables it.
	Addr string `mapstructure:"addr"`
}

// Load reads path (or tonwatch.yaml in . and ./config when path is empty)
// after loading envFiles into the environment. With no envFiles, .env is
// loaded if present.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("config: load env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tonwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("TONWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Chain.Backend {
	case BackendToncenter, BackendLiteserver:
	default:
		return fmt.Errorf("config: unknown chain backend %q", c.Chain.Backend)
	}
	if c.Chain.ID == "" {
		return errors.New("config: chain id is required")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("config: watch interval must be positive, got %s", c.Watch.Interval)
	}
	if c.Watch.PageSize <= 0 {
		return fmt.Errorf("config: page size must be positive, got %d", c.Watch.PageSize)
	}
	if c.Watch.HandlerRPS < 0 {
		return fmt.Errorf("config: handler rps must not be negative, got %v", c.Watch.HandlerRPS)
	}
	for _, j := range c.Deposit.Jettons {
		if j.Wallet == "" || j.Symbol == "" {
			return errors.New("config: jetton entries need wallet and symbol")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("chain.id", "mainnet")
	v.SetDefault("chain.backend", BackendToncenter)
	v.SetDefault("chain.endpoint", "")
	v.SetDefault("chain.api_key", "")
	v.SetDefault("chain.rps", 0)

	v.SetDefault("cursor.url", "file://tonwatch-cursors.json")

	v.SetDefault("watch.interval", 5*time.Second)
	v.SetDefault("watch.page_size", 20)
	v.SetDefault("watch.wallets", []string{})
	v.SetDefault("watch.chain", false)
	v.SetDefault("watch.handler_rps", 0)

	v.SetDefault("deposit.dsn", "")

	v.SetDefault("publish.url", "")
	v.SetDefault("publish.topic", "tonwatch.deposits")

	v.SetDefault("server.addr", ":8080")
}
