package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const ConfigFileName = ".acctview.json"

const (
	DefaultDelegationMethod = "democracy_votingOf"
	DefaultProxyMethod      = "proxy_proxies"
	DefaultBalanceMethod    = "eth_getBalance"
	DefaultDecimals         = 18
)

// AccountConfig holds one keystore entry.
type AccountConfig struct {
	Address string   `json:"address"`
	Name    string   `json:"name,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// ChainConfig holds connection and query settings for one chain.
type ChainConfig struct {
	Name             string   `json:"name"`
	RPCURLs          []string `json:"rpc_urls"`
	Symbol           string   `json:"symbol"`
	Decimals         int      `json:"decimals,omitempty"`
	ExplorerURL      string   `json:"explorer_url,omitempty"`
	DelegationMethod string   `json:"delegation_method,omitempty"`
	ProxyMethod      string   `json:"proxy_method,omitempty"`
	BalanceMethod    string   `json:"balance_method,omitempty"`
	ArityMethod      string   `json:"arity_method,omitempty"`
	AddProxyArgs     int      `json:"add_proxy_args,omitempty"`
}

// GlobalConfig holds application-wide settings.
type GlobalConfig struct {
	BalanceTotalPolicy  string `json:"balance_total_policy"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	DisplayDecimals     int    `json:"display_decimals"`
	FavoritesBackend    string `json:"favorites_backend"`
	FavoritesPath       string `json:"favorites_path,omitempty"`
	RedisURL            string `json:"redis_url,omitempty"`
	LogLevel            string `json:"log_level"`
	LogFile             string `json:"log_file,omitempty"`
}

// Config is the whole configuration file.
type Config struct {
	Accounts    []AccountConfig
	Chains      []ChainConfig
	ActiveChain int
	Global      GlobalConfig
}

// Active returns the selected chain.
func (c Config) Active() (ChainConfig, bool) {
	if c.ActiveChain < 0 || c.ActiveChain >= len(c.Chains) {
		return ChainConfig{}, false
	}
	return c.Chains[c.ActiveChain], true
}

func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		BalanceTotalPolicy:  "all",
		PollIntervalSeconds: 30,
		DisplayDecimals:     4,
		FavoritesBackend:    "file",
		LogLevel:            "info",
	}
}

// WithDefaults fills the query methods a chain config left empty.
func (c ChainConfig) WithDefaults() ChainConfig {
	if c.DelegationMethod == "" {
		c.DelegationMethod = DefaultDelegationMethod
	}
	if c.ProxyMethod == "" {
		c.ProxyMethod = DefaultProxyMethod
	}
	if c.BalanceMethod == "" {
		c.BalanceMethod = DefaultBalanceMethod
	}
	if c.Decimals == 0 {
		c.Decimals = DefaultDecimals
	}
	return c
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

// FavoritesPath is where the file favorites backend keeps its data when the
// config does not say: next to the config file.
func FavoritesPath(cfg GlobalConfig, configPath string) string {
	if cfg.FavoritesPath != "" {
		return cfg.FavoritesPath
	}
	return strings.TrimSuffix(configPath, filepath.Ext(configPath)) + ".favorites.json"
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Config{Accounts: []AccountConfig{}, Global: DefaultGlobalConfig()}, nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

func LoadConfig(r io.Reader) (Config, error) {
	var raw struct {
		Accounts            json.RawMessage `json:"accounts"`
		Addresses           json.RawMessage `json:"addresses"` // Legacy
		RPCURLs             []string        `json:"rpc_urls"`  // Legacy
		Chains              []ChainConfig   `json:"chains"`
		SelectedChain       string          `json:"selected_chain"`
		BalanceTotalPolicy  *string         `json:"balance_total_policy"`
		PollIntervalSeconds *int            `json:"poll_interval_seconds"`
		DisplayDecimals     *int            `json:"display_decimals"`
		FavoritesBackend    *string         `json:"favorites_backend"`
		FavoritesPath       string          `json:"favorites_path"`
		RedisURL            string          `json:"redis_url"`
		LogLevel            *string         `json:"log_level"`
		LogFile             string          `json:"log_file"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, err
	}

	list := raw.Accounts
	if len(list) == 0 {
		list = raw.Addresses
	}
	accounts, err := decodeAccounts(list)
	if err != nil {
		return Config{}, err
	}

	// Migration for legacy config
	if len(raw.Chains) == 0 && len(raw.RPCURLs) > 0 {
		raw.Chains = []ChainConfig{{
			Name:    "Default",
			RPCURLs: raw.RPCURLs,
		}}
		raw.SelectedChain = "Default"
	}

	selectedIdx := 0
	for i, c := range raw.Chains {
		if c.Name == raw.SelectedChain {
			selectedIdx = i
			break
		}
	}

	g := DefaultGlobalConfig()
	if raw.BalanceTotalPolicy != nil {
		g.BalanceTotalPolicy = *raw.BalanceTotalPolicy
	}
	if raw.PollIntervalSeconds != nil {
		g.PollIntervalSeconds = *raw.PollIntervalSeconds
	}
	if raw.DisplayDecimals != nil {
		g.DisplayDecimals = *raw.DisplayDecimals
	}
	if raw.FavoritesBackend != nil {
		g.FavoritesBackend = *raw.FavoritesBackend
	}
	if raw.LogLevel != nil {
		g.LogLevel = *raw.LogLevel
	}
	g.FavoritesPath = raw.FavoritesPath
	g.RedisURL = raw.RedisURL
	g.LogFile = raw.LogFile

	return Config{
		Accounts:    accounts,
		Chains:      raw.Chains,
		ActiveChain: selectedIdx,
		Global:      g,
	}, nil
}

// decodeAccounts accepts a list of account objects or a legacy list of bare
// address strings.
func decodeAccounts(data json.RawMessage) ([]AccountConfig, error) {
	accounts := []AccountConfig{}
	if len(data) == 0 || string(data) == "null" {
		return accounts, nil
	}
	if err := json.Unmarshal(data, &accounts); err == nil {
		return cleanAccounts(accounts), nil
	}
	var strAddrs []string
	if err := json.Unmarshal(data, &strAddrs); err != nil {
		return nil, fmt.Errorf("accounts: want a list of objects or strings: %w", err)
	}
	accounts = accounts[:0]
	for _, a := range strAddrs {
		accounts = append(accounts, AccountConfig{Address: a})
	}
	return cleanAccounts(accounts), nil
}

func cleanAccounts(in []AccountConfig) []AccountConfig {
	out := make([]AccountConfig, 0, len(in))
	for _, a := range in {
		a.Address = strings.TrimSpace(a.Address)
		if a.Address != "" {
			out = append(out, a)
		}
	}
	return out
}

// Validate returns the structural problems of cfg.
func Validate(cfg Config) []string {
	var problems []string
	if len(cfg.Chains) == 0 {
		return append(problems, "No chains found in configuration.")
	}
	for i, c := range cfg.Chains {
		if strings.TrimSpace(c.Name) == "" {
			problems = append(problems, fmt.Sprintf("Chain at index %d has no name.", i))
		}
		if len(c.RPCURLs) == 0 {
			problems = append(problems, fmt.Sprintf("Chain '%s' has no RPC URLs.", c.Name))
		}
	}
	seen := make(map[string]bool)
	for _, a := range cfg.Accounts {
		if seen[a.Address] {
			problems = append(problems, fmt.Sprintf("Account %s is listed twice.", a.Address))
		}
		seen[a.Address] = true
	}
	return problems
}

func SaveConfig(cfg Config, path string) error {
	// Validation: Ensure we have at least one chain
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("validation failed: configuration must have at least one chain")
	}

	// Validation: Ensure chains have names and RPCs
	for i, c := range cfg.Chains {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("validation failed: chain at index %d has no name", i)
		}
		if len(c.RPCURLs) == 0 {
			return fmt.Errorf("validation failed: chain %s has no RPC URLs", c.Name)
		}
	}

	selectedName := ""
	if c, ok := cfg.Active(); ok {
		selectedName = c.Name
	}
	out := struct {
		Accounts      []AccountConfig `json:"accounts"`
		Chains        []ChainConfig   `json:"chains"`
		SelectedChain string          `json:"selected_chain"`
		GlobalConfig
	}{
		Accounts:      cfg.Accounts,
		Chains:        cfg.Chains,
		SelectedChain: selectedName,
		GlobalConfig:  cfg.Global,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

type envOverrides struct {
	LogLevel            string `env:"ACCTVIEW_LOG_LEVEL"`
	LogFile             string `env:"ACCTVIEW_LOG_FILE"`
	RedisURL            string `env:"ACCTVIEW_REDIS_URL"`
	FavoritesBackend    string `env:"ACCTVIEW_FAVORITES_BACKEND"`
	BalanceTotalPolicy  string `env:"ACCTVIEW_BALANCE_TOTAL_POLICY"`
	PollIntervalSeconds int    `env:"ACCTVIEW_POLL_INTERVAL_SECONDS"`
}

// ApplyEnv loads the given dotenv files (".env" when none, missing files are
// fine) and lets ACCTVIEW_* variables override g.
func ApplyEnv(g *GlobalConfig, dotenv ...string) error {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load dotenv: %w", err)
	}

	var o envOverrides
	if err := envdecode.Decode(&o); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return fmt.Errorf("decode environment: %w", err)
	}
	if o.LogLevel != "" {
		g.LogLevel = o.LogLevel
	}
	if o.LogFile != "" {
		g.LogFile = o.LogFile
	}
	if o.RedisURL != "" {
		g.RedisURL = o.RedisURL
	}
	if o.FavoritesBackend != "" {
		g.FavoritesBackend = o.FavoritesBackend
	}
	if o.BalanceTotalPolicy != "" {
		g.BalanceTotalPolicy = o.BalanceTotalPolicy
	}
	if o.PollIntervalSeconds > 0 {
		g.PollIntervalSeconds = o.PollIntervalSeconds
	}
	return nil
}
