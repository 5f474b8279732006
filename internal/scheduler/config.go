package scheduler

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config controls scheduler intervals and job selection.
type Config struct {
	RunInterval    time.Duration `mapstructure:"runInterval"`
	JobTimeout     time.Duration `mapstructure:"jobTimeout"`
	ClaimMaxAge    time.Duration `mapstructure:"claimMaxAge"`
	AssignBatch    int           `mapstructure:"assignBatch"`
	EnabledJobs    []string      `mapstructure:"enabledJobs"`
	LeaderLockTTL  time.Duration `mapstructure:"leaderLockTTL"`
	LeaderLockName string        `mapstructure:"leaderLockName"`
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    5 * time.Minute,
		JobTimeout:     30 * time.Second,
		ClaimMaxAge:    30 * 24 * time.Hour,
		AssignBatch:    200,
		LeaderLockTTL:  4 * time.Minute,
		LeaderLockName: "cielo:scheduler:leader",
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.ClaimMaxAge <= 0 {
		c.ClaimMaxAge = defaults.ClaimMaxAge
	}
	if c.AssignBatch <= 0 {
		c.AssignBatch = defaults.AssignBatch
	}
	if c.LeaderLockTTL <= 0 {
		c.LeaderLockTTL = defaults.LeaderLockTTL
	}
	if c.LeaderLockName == "" {
		c.LeaderLockName = defaults.LeaderLockName
	}
	return c
}

// ProvideConfig reads scheduler settings from an optional scheduler.yml,
// with CIELO_-prefixed env overrides. A missing file means defaults.
func ProvideConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("scheduler")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/cielo")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CIELO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.UnmarshalKey("scheduler", &cfg); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}
