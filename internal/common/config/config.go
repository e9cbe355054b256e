package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"qai-backend"`

	Server struct {
		Port            int           `env:"PORT" envDefault:"8080"`
		Origin          string        `env:"ORIGIN" envDefault:"http://localhost:3000"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		// empty means X-Forwarded-For is ignored and the peer address is the client ip
		TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	}

	Postgres PostgresConfig

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Auth struct {
		JWTSecret  string        `env:"JWT_SECRET,required"`
		TokenTTL   time.Duration `env:"JWT_TTL" envDefault:"24h"`
		BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`
	}

	Signup struct {
		ReferralGroups     int `env:"REFERRAL_GROUP_COUNT" envDefault:"2"`
		ReferralCodeLength int `env:"REFERRAL_CODE_LENGTH" envDefault:"8"`
		MaxAttempts        int `env:"SIGNUP_MAX_ATTEMPTS" envDefault:"3"`
	}

	Wallet struct {
		// hex encoded 32 byte key used to seal deposit private keys
		DepositKeySecret  string        `env:"DEPOSIT_KEY_SECRET,required"`
		DepositKeyVersion int           `env:"DEPOSIT_KEY_VERSION" envDefault:"1"`
		DepositTimeout    time.Duration `env:"DEPOSIT_TIMEOUT" envDefault:"8s"`
		OTPReplayTTL      time.Duration `env:"OTP_REPLAY_TTL" envDefault:"150s"`
	}

	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
		Burst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	}
}

type PostgresConfig struct {
	Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
	Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database        string        `env:"POSTGRES_DB" envDefault:"qai"`
	SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// GetDSN builds a lib/pq connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// RedisAddr returns host:port.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// .env is optional; in production variables come from the environment
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Signup.ReferralGroups < 1 {
		return fmt.Errorf("REFERRAL_GROUP_COUNT must be >= 1, got %d", c.Signup.ReferralGroups)
	}
	if c.Signup.MaxAttempts < 1 {
		return fmt.Errorf("SIGNUP_MAX_ATTEMPTS must be >= 1, got %d", c.Signup.MaxAttempts)
	}
	if c.Signup.ReferralCodeLength < 8 {
		return fmt.Errorf("REFERRAL_CODE_LENGTH must be >= 8, got %d", c.Signup.ReferralCodeLength)
	}
	if len(c.Wallet.DepositKeySecret) != 64 {
		return fmt.Errorf("DEPOSIT_KEY_SECRET must be 64 hex characters")
	}
	return nil
}
