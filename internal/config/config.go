package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type DBConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"hris"`
	Port     string `env:"PORT" envDefault:"5432"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type LeaveConfig struct {
	// BalanceFloor is the lowest remaining_days a ledger mutation may leave behind.
	BalanceFloor    string        `env:"BALANCE_FLOOR" envDefault:"0"`
	TxLockTimeout   time.Duration `env:"TX_LOCK_TIMEOUT" envDefault:"5s"`
	BalanceCacheTTL time.Duration `env:"BALANCE_CACHE_TTL" envDefault:"10m"`
}

// Floor parses BalanceFloor.
func (c LeaveConfig) Floor() (decimal.Decimal, error) {
	floor, err := decimal.NewFromString(c.BalanceFloor)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse LEAVE_BALANCE_FLOOR %q: %w", c.BalanceFloor, err)
	}
	return floor, nil
}

type Config struct {
	Port      string `env:"PORT" envDefault:"3000"`
	JWTSecret string `env:"JWT_SECRET"`

	DB    DBConfig    `envPrefix:"DB_"`
	Leave LeaveConfig `envPrefix:"LEAVE_"`

	RedisAddr          string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	KafkaBroker        string        `env:"KAFKA_BROKER"`
	KafkaConsumerGroup string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"go-hris-leave-provisioning"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"3s"`

	RBACModelPath string `env:"RBAC_MODEL_PATH" envDefault:"internal/rbac/infra/model.conf"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	ConnectRetries int `env:"CONNECT_RETRIES" envDefault:"5"`
}

// Load reads Config from the environment. Call godotenv.Load first when a
// .env file should be honoured.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Leave.Floor(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
