package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/git-pkgs/catalog"
	"github.com/git-pkgs/catalog/client"
)

const envPrefix = "CATALOG"

// Config holds the settings of a build run.
type Config struct {
	IndexURL          string
	Output            string
	APIURL            string
	GitHubToken       string
	BatchSize         int
	ProgressEvery     int
	MaxAttempts       int
	Timeout           time.Duration
	IndexTimeout      time.Duration
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RateLimitWait     time.Duration
	RateLimitMargin   time.Duration
	BreakerThreshold  int
	CacheDir          string
	RedisURL          string
	CacheTTL          time.Duration
	ExcludeUnverified bool
}

func setDefaults(v *viper.Viper) {
	policy := client.DefaultPolicy()
	v.SetDefault("index-url", catalog.DefaultIndexURL)
	v.SetDefault("output", "registry.json")
	v.SetDefault("api-url", catalog.DefaultAPIURL)
	v.SetDefault("batch-size", catalog.DefaultBatchSize)
	v.SetDefault("progress-every", catalog.DefaultProgressEvery)
	v.SetDefault("max-attempts", policy.MaxAttempts)
	v.SetDefault("timeout", catalog.DefaultTimeout)
	v.SetDefault("index-timeout", catalog.DefaultIndexTimeout)
	v.SetDefault("base-delay", policy.BaseDelay)
	v.SetDefault("max-delay", policy.MaxDelay)
	v.SetDefault("rate-limit-wait", catalog.DefaultRateLimitWait)
	v.SetDefault("rate-limit-margin", catalog.DefaultRateLimitMargin)
	v.SetDefault("breaker-threshold", catalog.DefaultBreakerThreshold)
	v.SetDefault("cache-dir", "")
	v.SetDefault("redis-url", "")
	v.SetDefault("cache-ttl", catalog.DefaultCacheTTL)
	v.SetDefault("exclude-unverified", false)
}

// addBuildFlags registers the build settings on cmd. Flag defaults are left
// empty so that only flags the user actually set override other sources.
func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("index-url", "", "library index URL")
	f.StringP("output", "o", "", `registry output path ("-" for stdout)`)
	f.String("api-url", "", "repository metadata API root")
	f.Int("batch-size", 0, "concurrent metadata lookups per batch")
	f.Int("progress-every", 0, "log progress every N libraries")
	f.Int("max-attempts", 0, "attempts per call, including the first")
	f.Duration("timeout", 0, "timeout per metadata call")
	f.Duration("index-timeout", 0, "timeout for the index download")
	f.Duration("base-delay", 0, "first retry delay")
	f.Duration("max-delay", 0, "retry delay ceiling")
	f.Duration("rate-limit-wait", 0, "wait when a rate limit response has no reset time")
	f.Duration("rate-limit-margin", 0, "margin added after a rate limit reset")
	f.Int("breaker-threshold", 0, "consecutive index failures that open the circuit breaker")
	f.String("cache-dir", "", "cache metadata lookups in this directory")
	f.String("redis-url", "", "cache metadata lookups in redis")
	f.Duration("cache-ttl", 0, "metadata cache lifetime")
	f.Bool("exclude-unverified", false, "drop libraries whose metadata could not be fetched")
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were explicitly set, in increasing priority.
func loadConfig(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github-token", envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	var bindErr error
	for _, name := range buildFlagNames {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(name, flag); err != nil {
			bindErr = err
		}
	}
	if bindErr != nil {
		return nil, bindErr
	}

	cfg := &Config{
		IndexURL:          v.GetString("index-url"),
		Output:            v.GetString("output"),
		APIURL:            v.GetString("api-url"),
		GitHubToken:       v.GetString("github-token"),
		BatchSize:         v.GetInt("batch-size"),
		ProgressEvery:     v.GetInt("progress-every"),
		MaxAttempts:       v.GetInt("max-attempts"),
		Timeout:           v.GetDuration("timeout"),
		IndexTimeout:      v.GetDuration("index-timeout"),
		BaseDelay:         v.GetDuration("base-delay"),
		MaxDelay:          v.GetDuration("max-delay"),
		RateLimitWait:     v.GetDuration("rate-limit-wait"),
		RateLimitMargin:   v.GetDuration("rate-limit-margin"),
		BreakerThreshold:  v.GetInt("breaker-threshold"),
		CacheDir:          v.GetString("cache-dir"),
		RedisURL:          v.GetString("redis-url"),
		CacheTTL:          v.GetDuration("cache-ttl"),
		ExcludeUnverified: v.GetBool("exclude-unverified"),
	}
	return cfg, cfg.validate()
}

var buildFlagNames = []string{
	"index-url", "output", "api-url", "batch-size", "progress-every",
	"max-attempts", "timeout", "index-timeout", "base-delay", "max-delay",
	"rate-limit-wait", "rate-limit-margin", "breaker-threshold",
	"cache-dir", "redis-url", "cache-ttl", "exclude-unverified",
}

func (c *Config) validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("batch-size must be at least 1, got %d", c.BatchSize)
	case c.MaxAttempts < 1:
		return fmt.Errorf("max-attempts must be at least 1, got %d", c.MaxAttempts)
	case c.Output == "":
		return fmt.Errorf("output must not be empty")
	}
	return nil
}

// options converts the config into build options.
func (c *Config) options() catalog.Options {
	return catalog.Options{
		IndexURL:          c.IndexURL,
		APIURL:            c.APIURL,
		Token:             c.GitHubToken,
		BatchSize:         c.BatchSize,
		ProgressEvery:     c.ProgressEvery,
		MaxAttempts:       c.MaxAttempts,
		BaseDelay:         c.BaseDelay,
		MaxDelay:          c.MaxDelay,
		Timeout:           c.Timeout,
		IndexTimeout:      c.IndexTimeout,
		RateLimitWait:     c.RateLimitWait,
		RateLimitMargin:   c.RateLimitMargin,
		BreakerThreshold:  c.BreakerThreshold,
		CacheTTL:          c.CacheTTL,
		ExcludeUnverified: c.ExcludeUnverified,
	}
}
