package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration. Every key can come from the
// environment or from an optional config file.
type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	VehicleCount    int           `mapstructure:"VEHICLE_COUNT"`
	VehicleCapacity int           `mapstructure:"VEHICLE_CAPACITY"`
	SpeedKPH        float64       `mapstructure:"SPEED_KPH"`
	DistanceTTL     time.Duration `mapstructure:"DISTANCE_CACHE_TTL"`

	SolverSeed           int64 `mapstructure:"SOLVER_SEED"`
	SolverIdleIterations int   `mapstructure:"SOLVER_IDLE_ITERATIONS"`

	WebhookURL         string `mapstructure:"WEBHOOK_URL"`
	WebhookSecret      string `mapstructure:"WEBHOOK_SECRET"`
	WebhookMaxAttempts int    `mapstructure:"WEBHOOK_MAX_ATTEMPTS"`

	RateRPS   float64 `mapstructure:"RATE_RPS"`
	RateBurst int     `mapstructure:"RATE_BURST"`

	DemoAutoload string `mapstructure:"DEMO_AUTOLOAD"`
}

var defaults = map[string]any{
	"PORT":                   "8080",
	"DATABASE_URL":           "",
	"SQLITE_PATH":            "",
	"REDIS_URL":              "",
	"VEHICLE_COUNT":          3,
	"VEHICLE_CAPACITY":       0,
	"SPEED_KPH":              50.0,
	"DISTANCE_CACHE_TTL":     24 * time.Hour,
	"SOLVER_SEED":            0,
	"SOLVER_IDLE_ITERATIONS": 2000,
	"WEBHOOK_URL":            "",
	"WEBHOOK_SECRET":         "",
	"WEBHOOK_MAX_ATTEMPTS":   5,
	"RATE_RPS":               20.0,
	"RATE_BURST":             40,
	"DEMO_AUTOLOAD":          "",
}

// Load reads the environment, layered over file when it is not empty.
// A missing file is not an error.
func Load(file string) (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", file, err)
			}
			log.Printf("config: %s not found, using environment", file)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.VehicleCount < 1 {
		return fmt.Errorf("VEHICLE_COUNT must be at least 1, got %d", c.VehicleCount)
	}
	if c.VehicleCapacity < 0 {
		return fmt.Errorf("VEHICLE_CAPACITY must not be negative, got %d", c.VehicleCapacity)
	}
	if c.SpeedKPH <= 0 {
		return fmt.Errorf("SPEED_KPH must be positive, got %v", c.SpeedKPH)
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		return errors.New("set at most one of DATABASE_URL and SQLITE_PATH")
	}
	return nil
}
