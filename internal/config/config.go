package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the static configuration for a codeintel-clone process.
// Values are loaded from a YAML file and then layered with environment
// variable overrides, matching the precedence the teacher's repository
// and worker wiring use throughout.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	APIPort     int    `yaml:"api_port"`

	CacheDir string `yaml:"cache_dir"`

	WorkerCount         int           `yaml:"worker_count"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	StaleLeaseThreshold time.Duration `yaml:"stale_lease_threshold"`
	StaleSweepInterval  time.Duration `yaml:"stale_sweep_interval"`

	JWTSecret   string `yaml:"jwt_secret"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Load reads a YAML config file at path and applies environment variable
// overrides on top of it. A missing file is not an error if enough
// environment variables are set to populate the required fields; callers
// that need a config file to exist should check os.Stat separately.
func Load(path string) (*Config, error) {
	cfg := Config{
		APIPort:             8080,
		CacheDir:            "/var/lib/codeintel-clone/repocache",
		WorkerCount:         4,
		PollInterval:        5 * time.Second,
		StaleLeaseThreshold: 10 * time.Minute,
		StaleSweepInterval:  time.Minute,
		RateLimitRPS:        5,
		RateLimitBurst:      10,
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnvOverrides()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	c.APIPort = getEnvInt("API_PORT", c.APIPort)
	c.WorkerCount = getEnvInt("WORKER_COUNT", c.WorkerCount)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.PollInterval = getEnvDuration("POLL_INTERVAL", c.PollInterval)
	c.StaleLeaseThreshold = getEnvDuration("STALE_LEASE_THRESHOLD", c.StaleLeaseThreshold)
	c.StaleSweepInterval = getEnvDuration("STALE_SWEEP_INTERVAL", c.StaleSweepInterval)
	c.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
