package config

import (
	"fmt"
	"time"

	"github.com/haidv/outpost/internal/provider/ai"
	"github.com/haidv/outpost/internal/provider/social"
	"github.com/haidv/outpost/internal/resilience"
	"github.com/haidv/outpost/internal/store/postgres"
	redisstore "github.com/haidv/outpost/internal/store/redis"
	"github.com/haidv/outpost/internal/syncer"
)

// Duration accepts either a Go duration string ("100ms", "2s") or a
// plain integer nanosecond count in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig    `yaml:"server"`
	Database postgres.Config `yaml:"database"`
	Redis    RedisConfig     `yaml:"redis"`
	Social   SocialConfig    `yaml:"social"`
	OpenAI   ai.Config       `yaml:"openai"`
	Publish  RetryConfig     `yaml:"publish"`
	Sync     SyncConfig      `yaml:"sync"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RedisConfig holds snapshot cache settings.
type RedisConfig struct {
	URL      string   `yaml:"url"`
	Password string   `yaml:"password"`
	TTL      Duration `yaml:"ttl"`
}

// Store converts the yaml settings into the cache configuration.
func (c RedisConfig) Store() redisstore.Config {
	return redisstore.Config{URL: c.URL, Password: c.Password, TTL: c.TTL.Std()}
}

// SocialConfig holds posting-provider settings.
type SocialConfig struct {
	BaseURL      string   `yaml:"base_url"`
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Timeout      Duration `yaml:"timeout"`
}

// Client converts the yaml settings into the provider configuration.
func (c SocialConfig) Client() social.Config {
	return social.Config{
		BaseURL:      c.BaseURL,
		TokenURL:     c.TokenURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Timeout:      c.Timeout.Std(),
	}
}

// RetryConfig holds retry policy settings for one call site.
type RetryConfig struct {
	MaxRetries        int      `yaml:"max_retries"`
	InitialDelay      Duration `yaml:"initial_delay"`
	MaxDelay          Duration `yaml:"max_delay"`
	Multiplier        float64  `yaml:"multiplier"`
	PerAttemptTimeout Duration `yaml:"per_attempt_timeout"`
}

// Policy converts the yaml settings into a retry policy, falling back
// to the package defaults for unset fields.
func (c RetryConfig) Policy() resilience.Policy {
	p := resilience.DefaultPolicy
	if c.MaxRetries > 0 {
		p.MaxRetries = c.MaxRetries
	}
	if c.InitialDelay > 0 {
		p.InitialDelay = c.InitialDelay.Std()
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay.Std()
	}
	if c.Multiplier > 0 {
		p.Multiplier = c.Multiplier
	}
	if c.PerAttemptTimeout > 0 {
		p.PerAttemptTimeout = c.PerAttemptTimeout.Std()
	}
	return p
}

// SyncConfig holds metrics sync settings.
type SyncConfig struct {
	MaxItems       int         `yaml:"max_items"`
	InterCallDelay Duration    `yaml:"inter_call_delay"`
	Retry          RetryConfig `yaml:"retry"`
	Interval       Duration    `yaml:"interval"` // 0 disables the background ticker
}

// Batch converts the yaml settings into the synchronizer bounds.
func (c SyncConfig) Batch() syncer.Config {
	return syncer.Config{MaxItems: c.MaxItems, InterCallDelay: c.InterCallDelay.Std()}
}
