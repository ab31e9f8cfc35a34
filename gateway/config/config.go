// Package config loads the agentic wallet platform's runtime configuration
// from environment variables, with an optional on-disk YAML overlay for
// values env vars don't cover well (nothing does, today, but the loader
// keeps the overlay path the teacher's gateway always had).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort                 = 8080
	defaultWSPort               = 8081
	defaultNetwork              = "devnet"
	defaultMaxAgents            = 50
	defaultAgentLoopIntervalMs  = 30_000
	defaultMaxRetries           = 3
	defaultConfirmationTimeoutMs = 30_000
	defaultLogLevel             = "info"
	devSentinelEncryptionSecret = "dev-key-change-me-dev-key-change-me"
	minKeyEncryptionSecretLength = 16
)

// Config is the platform's fully resolved runtime configuration.
type Config struct {
	Port                  int           `yaml:"port"`
	WSPort                int           `yaml:"wsPort"`
	RPCURL                string        `yaml:"rpcUrl"`
	Network               string        `yaml:"network"`
	KeyEncryptionSecret   string        `yaml:"keyEncryptionSecret"`
	MaxAgents             int           `yaml:"maxAgents"`
	AgentLoopInterval     time.Duration `yaml:"agentLoopInterval"`
	MaxRetries            int           `yaml:"maxRetries"`
	ConfirmationTimeout   time.Duration `yaml:"confirmationTimeout"`
	LogLevel              string        `yaml:"logLevel"`
	Env                   string        `yaml:"env"`
}

// Load resolves configuration from environment variables first, then
// applies an optional YAML overlay at path (skipped entirely if path is
// empty), then validates. Validation fails closed on a mainnet network
// value or an unchanged default encryption secret in production.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:                envInt("PORT", defaultPort),
		WSPort:              envInt("WS_PORT", defaultWSPort),
		RPCURL:              os.Getenv("RPC_URL"),
		Network:             envString("NETWORK", defaultNetwork),
		KeyEncryptionSecret: envString("KEY_ENCRYPTION_SECRET", devSentinelEncryptionSecret),
		MaxAgents:           envInt("MAX_AGENTS", defaultMaxAgents),
		AgentLoopInterval:   time.Duration(envInt64("AGENT_LOOP_INTERVAL_MS", defaultAgentLoopIntervalMs)) * time.Millisecond,
		MaxRetries:          envInt("MAX_RETRIES", defaultMaxRetries),
		ConfirmationTimeout: time.Duration(envInt64("CONFIRMATION_TIMEOUT_MS", defaultConfirmationTimeoutMs)) * time.Millisecond,
		LogLevel:            envString("LOG_LEVEL", defaultLogLevel),
		Env:                 envString("NODE_ENV", "development"),
	}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config overlay: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate fails closed on the two conditions spec.md §6 calls out by name:
// a mainnet network value, and a key-encryption secret that is either too
// short or (in production) still the development sentinel.
func (cfg Config) Validate() error {
	if strings.EqualFold(strings.TrimSpace(cfg.Network), "mainnet") || strings.EqualFold(strings.TrimSpace(cfg.Network), "mainnet-beta") {
		return fmt.Errorf("network %q is not permitted: this platform must never run against mainnet", cfg.Network)
	}
	if len(cfg.KeyEncryptionSecret) < minKeyEncryptionSecretLength {
		return fmt.Errorf("KEY_ENCRYPTION_SECRET must be at least %d characters", minKeyEncryptionSecretLength)
	}
	if strings.EqualFold(cfg.Env, "production") && cfg.KeyEncryptionSecret == devSentinelEncryptionSecret {
		return fmt.Errorf("KEY_ENCRYPTION_SECRET must be changed from its development default in production")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q must be one of debug, info, warn, error", cfg.LogLevel)
	}
	if cfg.MaxAgents < 1 {
		return fmt.Errorf("MAX_AGENTS must be at least 1")
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES cannot be negative")
	}
	if cfg.AgentLoopInterval < 5*time.Second {
		return fmt.Errorf("AGENT_LOOP_INTERVAL_MS must be at least 5000")
	}
	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
