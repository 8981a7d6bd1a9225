package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig_Malformed(t *testing.T) {
	reader := strings.NewReader(`{ "accounts": [`)
	_, err := LoadConfig(reader)
	if err == nil {
		t.Error("Expected error loading malformed config, got nil")
	}
}

func TestSaveConfig(t *testing.T) {
	tmpPath := filepath.Join(t.TempDir(), "config.json")

	cfg := Config{
		Accounts: []AccountConfig{{Address: "5Grw", Name: "Test", Tags: []string{"cold"}}},
		Chains: []ChainConfig{{
			Name:    "Polkadot",
			RPCURLs: []string{"http://localhost:9933"},
		}},
		Global: GlobalConfig{PollIntervalSeconds: 120, BalanceTotalPolicy: "listed"},
	}

	if err := SaveConfig(cfg, tmpPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfigFromFile(tmpPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(loaded.Accounts) != 1 || loaded.Accounts[0].Address != "5Grw" || loaded.Accounts[0].Tags[0] != "cold" {
		t.Errorf("Account mismatch: %+v", loaded.Accounts)
	}
	if len(loaded.Chains) != 1 || loaded.Chains[0].Name != "Polkadot" {
		t.Errorf("Chain mismatch")
	}
	if loaded.ActiveChain != 0 {
		t.Errorf("Selected index mismatch")
	}
	if loaded.Global.PollIntervalSeconds != 120 || loaded.Global.BalanceTotalPolicy != "listed" {
		t.Errorf("Global config mismatch: %+v", loaded.Global)
	}

	// a second save leaves a backup behind that can be restored
	cfg.Accounts = nil
	if err := SaveConfig(cfg, tmpPath); err != nil {
		t.Fatalf("second SaveConfig failed: %v", err)
	}
	if err := RestoreLastBackup(tmpPath); err != nil {
		t.Fatalf("RestoreLastBackup failed: %v", err)
	}
	restored, err := LoadConfigFromFile(tmpPath)
	if err != nil {
		t.Fatalf("load restored: %v", err)
	}
	if len(restored.Accounts) != 1 {
		t.Errorf("Expected restored account, got %d", len(restored.Accounts))
	}
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	cfg, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Global.PollIntervalSeconds != 30 || len(cfg.Accounts) != 0 {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_TableDriven(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		jsonContent string
		expectError bool
		validate    func(*testing.T, Config)
	}{
		{
			name: "Valid Modern Config",
			jsonContent: `{
				"accounts": [{"address": "5Grw", "name": "Main", "tags": ["hot"]}],
				"chains": [{"name": "Kusama"}, {"name": "Polkadot", "rpc_urls": ["http://dot"]}],
				"selected_chain": "Polkadot",
				"poll_interval_seconds": 100
			}`,
			validate: func(t *testing.T, c Config) {
				if len(c.Accounts) != 1 || c.Accounts[0].Name != "Main" {
					t.Errorf("Account mismatch")
				}
				if active, ok := c.Active(); !ok || active.Name != "Polkadot" {
					t.Errorf("Expected Polkadot selected, got %+v", active)
				}
				if c.Global.PollIntervalSeconds != 100 {
					t.Errorf("Global config mismatch")
				}
			},
		},
		{
			name: "Legacy Addresses (String Array)",
			jsonContent: `{
				"addresses": ["5Grw", " ", "5Fhe"],
				"chains": [{"name": "Dot", "rpc_urls": ["http://dot"]}]
			}`,
			validate: func(t *testing.T, c Config) {
				if len(c.Accounts) != 2 {
					t.Fatalf("Expected 2 accounts, got %d", len(c.Accounts))
				}
				if c.Accounts[0].Address != "5Grw" || c.Accounts[1].Address != "5Fhe" {
					t.Errorf("Address content mismatch")
				}
			},
		},
		{
			name: "Legacy Chains (Root RPC URLs)",
			jsonContent: `{
				"accounts": [{"address": "5Grw"}],
				"rpc_urls": ["http://legacy-rpc"]
			}`,
			validate: func(t *testing.T, c Config) {
				if len(c.Chains) != 1 {
					t.Fatalf("Expected 1 chain from legacy migration, got %d", len(c.Chains))
				}
				if c.Chains[0].Name != "Default" {
					t.Errorf("Expected default name 'Default', got %s", c.Chains[0].Name)
				}
			},
		},
		{
			name:        "Accounts Of Wrong Type",
			jsonContent: `{"accounts": 12}`,
			expectError: true,
		},
		{
			name:        "Malformed JSON",
			jsonContent: `{ "accounts": [ unclosed_array`,
			expectError: true,
		},
		{
			name: "Partial Config (Defaults)",
			jsonContent: `{
				"chains": [{"name": "Dot", "rpc_urls": ["http://dot"]}]
			}`,
			validate: func(t *testing.T, c Config) {
				if c.Global.BalanceTotalPolicy != "all" {
					t.Errorf("Expected default policy all, got %s", c.Global.BalanceTotalPolicy)
				}
				if c.Global.FavoritesBackend != "file" {
					t.Errorf("Expected default favorites backend file, got %s", c.Global.FavoritesBackend)
				}
				if c.Accounts == nil {
					t.Errorf("Expected empty, non-nil accounts")
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := LoadConfig(strings.NewReader(tt.jsonContent))

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestChainWithDefaults(t *testing.T) {
	c := ChainConfig{Name: "x", ProxyMethod: "custom_proxies"}.WithDefaults()
	if c.DelegationMethod != DefaultDelegationMethod || c.BalanceMethod != DefaultBalanceMethod {
		t.Errorf("defaults not applied: %+v", c)
	}
	if c.ProxyMethod != "custom_proxies" {
		t.Errorf("explicit method overwritten: %s", c.ProxyMethod)
	}
	if c.Decimals != DefaultDecimals {
		t.Errorf("Expected %d decimals, got %d", DefaultDecimals, c.Decimals)
	}
}

func TestValidate(t *testing.T) {
	problems := Validate(Config{})
	if len(problems) != 1 {
		t.Fatalf("Expected one problem for no chains, got %v", problems)
	}

	problems = Validate(Config{
		Chains:   []ChainConfig{{Name: ""}},
		Accounts: []AccountConfig{{Address: "a"}, {Address: "a"}},
	})
	if len(problems) != 3 {
		t.Errorf("Expected 3 problems, got %v", problems)
	}
}

func TestFavoritesPath(t *testing.T) {
	if got := FavoritesPath(GlobalConfig{}, "/home/u/.acctview.json"); got != "/home/u/.acctview.favorites.json" {
		t.Errorf("unexpected path %s", got)
	}
	if got := FavoritesPath(GlobalConfig{FavoritesPath: "/tmp/f.json"}, "/x.json"); got != "/tmp/f.json" {
		t.Errorf("unexpected path %s", got)
	}
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenv, []byte("ACCTVIEW_FAVORITES_BACKEND=redis\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ACCTVIEW_LOG_LEVEL", "debug")
	t.Cleanup(func() { _ = os.Unsetenv("ACCTVIEW_FAVORITES_BACKEND") })

	g := DefaultGlobalConfig()
	if err := ApplyEnv(&g, dotenv); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if g.LogLevel != "debug" {
		t.Errorf("Expected debug, got %s", g.LogLevel)
	}
	if g.FavoritesBackend != "redis" {
		t.Errorf("Expected redis from dotenv, got %s", g.FavoritesBackend)
	}
	if g.PollIntervalSeconds != 30 {
		t.Errorf("Expected untouched poll interval, got %d", g.PollIntervalSeconds)
	}
}

func TestApplyEnv_MissingDotenv(t *testing.T) {
	g := DefaultGlobalConfig()
	if err := ApplyEnv(&g, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing dotenv should be ignored: %v", err)
	}
}

func TestSaveConfig_PermissionError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	tmpDir := t.TempDir()
	if err := os.Chmod(tmpDir, 0500); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chmod(tmpDir, 0700) }()

	cfg := Config{Chains: []ChainConfig{{Name: "Eth", RPCURLs: []string{"http://eth"}}}}
	if err := SaveConfig(cfg, filepath.Join(tmpDir, "config.json")); err == nil {
		t.Error("Expected permission error, got nil")
	}
}
