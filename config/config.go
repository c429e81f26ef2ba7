package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xHustling/LP-Betting-Pools/logging"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment      string                 `mapstructure:"environment"`
	Server           ServerConfig           `mapstructure:"server"`
	Redis            RedisConfig            `mapstructure:"redis"`
	Kafka            KafkaConfig            `mapstructure:"kafka"`
	JWT              JWTConfig              `mapstructure:"jwt"`
	Logging          logging.Config         `mapstructure:"logging"`
	Pool             PoolConfig             `mapstructure:"pool"`
	Engine           EngineConfig           `mapstructure:"engine"`
	ExternalServices ExternalServicesConfig `mapstructure:"external_services"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// KafkaConfig holds Kafka configuration.
// Topics carries the randomness request/delivery topics plus the bet
// lifecycle event topic under the keys "randomness_requests",
// "randomness_deliveries" and "bet_events".
type KafkaConfig struct {
	Brokers       []string          `mapstructure:"brokers"`
	ConsumerGroup string            `mapstructure:"consumer_group"`
	Topics        map[string]string `mapstructure:"topics"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// PoolConfig holds liquidity pool configuration
type PoolConfig struct {
	MaxCapacity    float64       `mapstructure:"max_capacity"`
	ExitFeeBps     int64         `mapstructure:"exit_fee_bps"`
	BetToPoolRatio int64         `mapstructure:"bet_to_pool_ratio"`
	EpochLength    time.Duration `mapstructure:"epoch_length"`
	WithdrawWindow time.Duration `mapstructure:"withdraw_window"`
	Operator       string        `mapstructure:"operator"`
}

// EngineConfig holds betting engine configuration
type EngineConfig struct {
	MinBet         float64       `mapstructure:"min_bet"`
	MaxBet         float64       `mapstructure:"max_bet"`
	ProtocolFeeBps int64         `mapstructure:"protocol_fee_bps"`
	RefundDelay    time.Duration `mapstructure:"refund_delay"`
	Multipliers    []float64     `mapstructure:"multipliers"`
}

// ExternalServicesConfig holds external service configurations
type ExternalServicesConfig struct {
	TreasuryService ServiceConfig `mapstructure:"treasury_service"`
}

// ServiceConfig holds external service configuration
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from YAML file using Viper
func Load(filename string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(filename)
	v.SetConfigType("yaml")

	// Enable environment variable substitution
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// LoadByEnv loads configuration based on environment using Viper
func LoadByEnv(configDir string) (*Config, error) {
	v := viper.New()

	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	env := viper.GetString("ENV")
	if env == "" {
		env = viper.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	v.SetConfigName(fmt.Sprintf("config-%s", env))
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Pool.BetToPoolRatio == 0 {
		c.Pool.BetToPoolRatio = 100
	}
	if c.Pool.EpochLength == 0 {
		c.Pool.EpochLength = 24 * time.Hour
	}
	if c.Pool.WithdrawWindow == 0 {
		c.Pool.WithdrawWindow = time.Hour
	}
	if c.Engine.RefundDelay == 0 {
		c.Engine.RefundDelay = 10 * time.Minute
	}
	if len(c.Engine.Multipliers) == 0 {
		c.Engine.Multipliers = []float64{25, 15, 10, 8, 5, 3}
	}
	if c.ExternalServices.TreasuryService.Timeout == 0 {
		c.ExternalServices.TreasuryService.Timeout = 10 * time.Second
	}
}

// Validate checks configuration values that have no safe default
func (c *Config) Validate() error {
	if c.Pool.MaxCapacity <= 0 {
		return fmt.Errorf("pool.max_capacity must be positive")
	}
	if c.Pool.ExitFeeBps < 0 || c.Pool.ExitFeeBps > 10000 {
		return fmt.Errorf("pool.exit_fee_bps must be within [0, 10000]")
	}
	if c.Engine.ProtocolFeeBps < 0 || c.Engine.ProtocolFeeBps > 10000 {
		return fmt.Errorf("engine.protocol_fee_bps must be within [0, 10000]")
	}
	if c.Engine.MinBet <= 0 || c.Engine.MaxBet < c.Engine.MinBet {
		return fmt.Errorf("engine bet bounds invalid: min=%v max=%v", c.Engine.MinBet, c.Engine.MaxBet)
	}
	return nil
}

// IsDevelopment returns true if environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
