// Package config loads service settings from a YAML file, SCOUT_* environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"airdrop-scout/internal/domain"
)

// EnvPrefix is prepended to every environment key: cache.ttl → SCOUT_CACHE_TTL.
const EnvPrefix = "SCOUT"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full service configuration.
type Config struct {
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
	Watch      WatchConfig      `mapstructure:"watch"`

	// UseMemory replaces Postgres and ClickHouse with in-memory stores.
	UseMemory bool `mapstructure:"use_memory"`
	// UseStub replaces the explorer with deterministic fixture data.
	UseStub   bool   `mapstructure:"use_stub"`
	OutputDir string `mapstructure:"output_dir"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ClickHouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// CollectorConfig configures chain data collection. Map keys of
// NativePrices and WSEndpoints are numeric chain ids.
type CollectorConfig struct {
	ExplorerURL    string             `mapstructure:"explorer_url"`
	APIKey         string             `mapstructure:"api_key"`
	Chains         []uint64           `mapstructure:"chains"`
	RPS            float64            `mapstructure:"rps"`
	MaxConcurrency int                `mapstructure:"max_concurrency"`
	Timeout        time.Duration      `mapstructure:"timeout"`
	MaxRetries     int                `mapstructure:"max_retries"`
	PageSize       int                `mapstructure:"page_size"`
	NativePrices   map[string]float64 `mapstructure:"native_prices"`
	Labels         map[string]string  `mapstructure:"labels"`
	WSEndpoints    map[string]string  `mapstructure:"ws_endpoints"`
}

type RankingConfig struct {
	All          int `mapstructure:"all"`
	EasyWins     int `mapstructure:"easy_wins"`
	HighValue    int `mapstructure:"high_value"`
	QuickActions int `mapstructure:"quick_actions"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WatchConfig lists addresses the server re-evaluates on a timer so their
// results stay warm in the cache.
type WatchConfig struct {
	Addresses []string      `mapstructure:"addresses"`
	Interval  time.Duration `mapstructure:"interval"`
}

var defaults = map[string]interface{}{
	"postgres.dsn":              "",
	"clickhouse.dsn":            "",
	"redis.addr":                "",
	"redis.password":            "",
	"redis.db":                  0,
	"redis.key_prefix":          "scout:",
	"cache.backend":             CacheMemory,
	"cache.ttl":                 5 * time.Minute,
	"cache.sweep_interval":      time.Minute,
	"collector.explorer_url":    "https://api.etherscan.io/v2/api",
	"collector.api_key":         "",
	"collector.chains":          []uint64{uint64(domain.ChainEthereum), uint64(domain.ChainArbitrum), uint64(domain.ChainOptimism), uint64(domain.ChainBase), uint64(domain.ChainZkSync)},
	"collector.rps":             5.0,
	"collector.max_concurrency": 4,
	"collector.timeout":         20 * time.Second,
	"collector.max_retries":     3,
	"collector.page_size":       1000,
	"collector.native_prices":   map[string]float64{},
	"collector.labels":          map[string]string{},
	"collector.ws_endpoints":    map[string]string{},
	"ranking.all":               20,
	"ranking.easy_wins":         5,
	"ranking.high_value":        5,
	"ranking.quick_actions":     5,
	"http.addr":                 ":9090",
	"log.level":                 "info",
	"log.format":                "console",
	"watch.addresses":           []string{},
	"watch.interval":            10 * time.Minute,
	"use_memory":                false,
	"use_stub":                  false,
	"output_dir":                "output",
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFile is an explicit YAML path. Empty searches ./scout.yaml.
	ConfigFile string
	// EnvFile is loaded into the environment first if it exists. Existing
	// variables win.
	EnvFile string
	// Flags bound by config key, e.g. "use-memory" → use_memory.
	Flags *pflag.FlagSet
}

// Load reads defaults, the config file, the environment and bound flags, in
// increasing precedence, and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		LoadEnvFile(opts.EnvFile)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("scout")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults[key]; !known {
				key = flagKeys[f.Name]
			}
			if key == "" {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKeys maps CLI flag names to nested config keys.
var flagKeys = map[string]string{
	"postgres-dsn":   "postgres.dsn",
	"clickhouse-dsn": "clickhouse.dsn",
	"redis-addr":     "redis.addr",
	"cache-backend":  "cache.backend",
	"cache-ttl":      "cache.ttl",
	"explorer-url":   "collector.explorer_url",
	"api-key":        "collector.api_key",
	"http-addr":      "http.addr",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	var problems []string
	fail := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !c.UseMemory {
		if c.Postgres.DSN == "" {
			fail("postgres.dsn is required (set use_memory for in-memory storage)")
		}
		if c.ClickHouse.DSN == "" {
			fail("clickhouse.dsn is required (set use_memory for in-memory storage)")
		}
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Redis.Addr == "" {
			fail("redis.addr is required for the redis cache backend")
		}
	default:
		fail("cache.backend must be %q or %q, got %q", CacheMemory, CacheRedis, c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		fail("cache.ttl must be positive")
	}

	if !c.UseStub && c.Collector.ExplorerURL == "" {
		fail("collector.explorer_url is required (set use_stub for fixture data)")
	}
	if len(c.Collector.Chains) == 0 {
		fail("collector.chains must not be empty")
	}
	if c.Collector.RPS <= 0 {
		fail("collector.rps must be positive")
	}
	if c.Collector.MaxConcurrency <= 0 {
		fail("collector.max_concurrency must be positive")
	}
	if c.Collector.Timeout <= 0 {
		fail("collector.timeout must be positive")
	}
	if _, err := c.Collector.NativePriceMap(); err != nil {
		fail("%v", err)
	}
	if _, err := c.Collector.WSEndpointMap(); err != nil {
		fail("%v", err)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		fail("log.level %q is not a valid level", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "console" && f != "json" {
		fail("log.format must be console or json, got %q", c.Log.Format)
	}

	for _, addr := range c.Watch.Addresses {
		if _, err := domain.NormalizeAddress(addr); err != nil {
			fail("watch.addresses: %v", err)
		}
	}
	if len(c.Watch.Addresses) > 0 && c.Watch.Interval <= 0 {
		fail("watch.interval must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ChainIDs returns the configured chains.
func (c CollectorConfig) ChainIDs() []domain.ChainID {
	ids := make([]domain.ChainID, len(c.Chains))
	for i, id := range c.Chains {
		ids[i] = domain.ChainID(id)
	}
	return ids
}

// NativePriceMap parses NativePrices keys as chain ids.
func (c CollectorConfig) NativePriceMap() (map[domain.ChainID]float64, error) {
	out := make(map[domain.ChainID]float64, len(c.NativePrices))
	for key, price := range c.NativePrices {
		id, err := parseChainKey(key)
		if err != nil {
			return nil, fmt.Errorf("collector.native_prices: %w", err)
		}
		if price < 0 {
			return nil, fmt.Errorf("collector.native_prices: negative price for chain %s", key)
		}
		out[id] = price
	}
	return out, nil
}

// WSEndpointMap parses WSEndpoints keys as chain ids.
func (c CollectorConfig) WSEndpointMap() (map[domain.ChainID]string, error) {
	out := make(map[domain.ChainID]string, len(c.WSEndpoints))
	for key, endpoint := range c.WSEndpoints {
		id, err := parseChainKey(key)
		if err != nil {
			return nil, fmt.Errorf("collector.ws_endpoints: %w", err)
		}
		if !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://") {
			return nil, fmt.Errorf("collector.ws_endpoints: chain %s endpoint %q is not a websocket url", key, endpoint)
		}
		out[id] = endpoint
	}
	return out, nil
}

func parseChainKey(key string) (domain.ChainID, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("chain key %q is not a chain id", key)
	}
	return domain.ChainID(id), nil
}

// LoadEnvFile loads KEY=VALUE lines from path into the environment if the
// file exists. Existing variables are not overridden.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(strings.TrimPrefix(parts[0], "export "))
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
}
