package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"stableguard/internal/logging"
	"stableguard/internal/model"
	"stableguard/internal/storage"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig          `mapstructure:"app"`
	Logging    logging.Config     `mapstructure:"logging"`
	Database   storage.PoolConfig `mapstructure:"database"`
	Guard      model.GuardConfig  `mapstructure:"guard"`
	Datasource DatasourceConfig   `mapstructure:"datasource"`
	Alerting   AlertingConfig     `mapstructure:"alerting"`
	Metrics    MetricsConfig      `mapstructure:"metrics"`
	Export     ExportConfig       `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatasourceConfig covers the external price API and chain RPC access.
type DatasourceConfig struct {
	PriceAPIBaseURL   string        `mapstructure:"price_api_base_url"`
	PriceAPITimeout   time.Duration `mapstructure:"price_api_timeout"`
	PriceAPIRateLimit int           `mapstructure:"price_api_rate_limit"` // requests per minute
	UserAgent         string        `mapstructure:"user_agent"`
	ChainRPCURL       string        `mapstructure:"chain_rpc_url"`
	ChainRPCTimeout   time.Duration `mapstructure:"chain_rpc_timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// AlertingConfig defines alert dispatch behaviour.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Cooldown time.Duration  `mapstructure:"cooldown"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// MetricsConfig governs the Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// UpdateInterval converts the guard's minute setting into a duration.
func (c *Config) UpdateInterval() time.Duration {
	minutes := c.Guard.UpdateIntervalMinutes
	if minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STABLEGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stableguard")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	defaults := model.DefaultGuardConfig()
	v.SetDefault("guard.enabled", defaults.Enabled)
	v.SetDefault("guard.strict_mode", string(defaults.StrictMode))
	v.SetDefault("guard.monitored_assets", defaults.MonitoredAssets)
	v.SetDefault("guard.update_interval_minutes", defaults.UpdateIntervalMinutes)
	v.SetDefault("guard.thresholds.price_deviation_warning", defaults.Thresholds.PriceDeviationWarning)
	v.SetDefault("guard.thresholds.price_deviation_critical", defaults.Thresholds.PriceDeviationCritical)
	v.SetDefault("guard.thresholds.large_transfer_usd", defaults.Thresholds.LargeTransferUSD)
	v.SetDefault("guard.thresholds.volatility_warning", defaults.Thresholds.VolatilityWarning)

	v.SetDefault("datasource.price_api_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("datasource.price_api_timeout", "10s")
	v.SetDefault("datasource.price_api_rate_limit", 30)
	v.SetDefault("datasource.user_agent", "stableguard/1.0")
	v.SetDefault("datasource.chain_rpc_timeout", "10s")
	v.SetDefault("datasource.cache_ttl", "60s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9464")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if !c.Guard.StrictMode.Valid() {
		return fmt.Errorf("guard.strict_mode must be one of none, warn, block")
	}
	if len(c.Guard.MonitoredAssets) == 0 {
		return fmt.Errorf("guard.monitored_assets must not be empty")
	}
	if c.Guard.UpdateIntervalMinutes <= 0 {
		return fmt.Errorf("guard.update_interval_minutes must be greater than zero")
	}
	if c.Datasource.PriceAPIRateLimit <= 0 {
		return fmt.Errorf("datasource.price_api_rate_limit must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
