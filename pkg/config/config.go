package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
)

const ConfigFileName = ".novafund.json"

// ProviderConfig describes how to reach the wallet provider.
type ProviderConfig struct {
	RPCURL              string `json:"rpc_url" toml:"rpc_url" env:"NOVAFUND_RPC_URL"`
	PrivateKey          string `json:"private_key,omitempty" toml:"private_key,omitempty" env:"NOVAFUND_PRIVATE_KEY"`
	PollIntervalSeconds int    `json:"poll_interval_seconds" toml:"poll_interval_seconds" env:"NOVAFUND_POLL_INTERVAL_SECONDS"`
	ReceiptPollMillis   int    `json:"receipt_poll_millis" toml:"receipt_poll_millis" env:"NOVAFUND_RECEIPT_POLL_MILLIS"`
}

// ContractConfig holds the address and ABI of the crowdfunding contract.
type ContractConfig struct {
	Address string `json:"address" toml:"address" env:"NOVAFUND_CONTRACT_ADDRESS"`
	ABIPath string `json:"abi_path,omitempty" toml:"abi_path,omitempty" env:"NOVAFUND_CONTRACT_ABI"`
}

// ServerConfig holds settings of the HTML front-end.
type ServerConfig struct {
	Address        string   `json:"address" toml:"address" env:"NOVAFUND_ADDR"`
	RatePerMinute  int      `json:"rate_per_minute" toml:"rate_per_minute" env:"NOVAFUND_RATE_PER_MINUTE"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" toml:"allowed_origins,omitempty" env:"NOVAFUND_ALLOWED_ORIGINS" envSeparator:","`
}

// Config is the whole application configuration.
type Config struct {
	Provider            ProviderConfig `json:"provider" toml:"provider"`
	Contract            ContractConfig `json:"contract" toml:"contract"`
	Server              ServerConfig   `json:"server" toml:"server"`
	NotificationSeconds int            `json:"notification_seconds" toml:"notification_seconds" env:"NOVAFUND_NOTIFICATION_SECONDS"`
	LogLevel            string         `json:"log_level" toml:"log_level" env:"NOVAFUND_LOG_LEVEL"`
}

// Defaults returns the configuration used for anything a file leaves out.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			RPCURL:              "http://127.0.0.1:8545",
			PollIntervalSeconds: 4,
			ReceiptPollMillis:   1000,
		},
		Contract: ContractConfig{
			Address: "0x2664e4559370ce58F4FEd8A1e9F1e37FE587f98A",
		},
		Server: ServerConfig{
			Address:       "127.0.0.1:8080",
			RatePerMinute: 60,
		},
		NotificationSeconds: 5,
		LogLevel:            "info",
	}
}

// PollInterval is the provider event polling interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Provider.PollIntervalSeconds) * time.Second
}

// ReceiptPollInterval is how often a pending transaction receipt is queried.
func (c Config) ReceiptPollInterval() time.Duration {
	return time.Duration(c.Provider.ReceiptPollMillis) * time.Millisecond
}

// NotificationTimeout is how long a notification stays visible.
func (c Config) NotificationTimeout() time.Duration {
	return time.Duration(c.NotificationSeconds) * time.Second
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// LoadConfigFromFile reads a JSON or TOML file (chosen by extension) and
// applies environment overrides. A missing file yields the defaults.
func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		cfg := Defaults()
		if err := ParseEnv(&cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()

	var cfg Config
	if isTOML(path) {
		cfg, err = LoadTOML(f)
	} else {
		cfg, err = LoadConfig(f)
	}
	if err != nil {
		return Config{}, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig decodes a JSON configuration on top of the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := Defaults()
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML configuration on top of the defaults.
func LoadTOML(r io.Reader) (Config, error) {
	cfg := Defaults()
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return cfg, nil
}

// ParseEnv applies NOVAFUND_* environment variables over target.
func ParseEnv(target *Config) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports every structural problem of cfg.
func Validate(cfg Config) []string {
	var problems []string
	if strings.TrimSpace(cfg.Provider.RPCURL) == "" {
		problems = append(problems, "provider rpc_url is empty")
	}
	if !common.IsHexAddress(cfg.Contract.Address) {
		problems = append(problems, fmt.Sprintf("contract address %q is not a valid address", cfg.Contract.Address))
	}
	if cfg.Provider.PollIntervalSeconds <= 0 {
		problems = append(problems, "provider poll_interval_seconds must be positive")
	}
	if cfg.Provider.ReceiptPollMillis <= 0 {
		problems = append(problems, "provider receipt_poll_millis must be positive")
	}
	if cfg.NotificationSeconds <= 0 {
		problems = append(problems, "notification_seconds must be positive")
	}
	return problems
}

// SaveConfig writes cfg to path, keeping a timestamped backup of the previous file.
func SaveConfig(cfg Config, path string) error {
	if problems := Validate(cfg); len(problems) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
	}

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func isTOML(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".toml")
}
