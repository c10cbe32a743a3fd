package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/proofback/proofback-cli/internal/constants"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.PlatformURL != constants.DefaultPlatformURL {
		t.Errorf("expected default PlatformURL to be %s, got %s", constants.DefaultPlatformURL, cfg.PlatformURL)
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("expected default ProxyMode to be no-proxy, got %s", cfg.ProxyMode)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	cfg := &Config{
		PlatformURL: "https://staging.proofback.io",
		Token:       "pb-token-12345",
		ProxyMode:   "basic",
		ProxyHost:   "proxy.corp.example",
		ProxyPort:   3128,
		ProxyUser:   "jdoe",
		NoProxy:     ".internal.example",
	}

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.PlatformURL != cfg.PlatformURL {
		t.Errorf("PlatformURL = %s, want %s", loaded.PlatformURL, cfg.PlatformURL)
	}
	if loaded.Token != cfg.Token {
		t.Errorf("Token = %s, want %s", loaded.Token, cfg.Token)
	}
	if loaded.ProxyMode != "basic" || loaded.ProxyHost != "proxy.corp.example" || loaded.ProxyPort != 3128 {
		t.Errorf("proxy settings did not round-trip: %+v", loaded)
	}
	if loaded.NoProxy != ".internal.example" {
		t.Errorf("NoProxy = %s, want .internal.example", loaded.NoProxy)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadConfig should not fail on missing file: %v", err)
	}
	if cfg.PlatformURL != constants.DefaultPlatformURL {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestConfigFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on Windows")
	}

	configPath := filepath.Join(t.TempDir(), "config")
	if err := SaveConfig(&Config{PlatformURL: "https://x", Token: "secret"}, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestWriteReadRemoveTokenFile(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")

	if err := WriteTokenFile(tokenPath, "pb-abc-123"); err != nil {
		t.Fatalf("WriteTokenFile failed: %v", err)
	}

	token, err := ReadTokenFile(tokenPath)
	if err != nil {
		t.Fatalf("ReadTokenFile failed: %v", err)
	}
	if token != "pb-abc-123" {
		t.Errorf("token = %q, want pb-abc-123", token)
	}

	if err := RemoveTokenFile(tokenPath); err != nil {
		t.Fatalf("RemoveTokenFile failed: %v", err)
	}
	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("token file should be gone")
	}

	// Removing twice is not an error
	if err := RemoveTokenFile(tokenPath); err != nil {
		t.Errorf("RemoveTokenFile on missing file: %v", err)
	}
}

func TestResolveTokenPriority(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	if err := WriteTokenFile(tokenPath, "from-file"); err != nil {
		t.Fatalf("WriteTokenFile failed: %v", err)
	}

	cfg := &Config{Token: "from-config"}

	// Explicit flag wins over everything
	if got := ResolveToken("from-flag", tokenPath, cfg); got != "from-flag" {
		t.Errorf("flag should win, got %q", got)
	}

	// Token file beats config
	if got := ResolveToken("", tokenPath, cfg); got != "from-file" {
		t.Errorf("token file should win over config, got %q", got)
	}

	// Environment is the last resort. Point HOME at an empty directory so
	// a developer's real token file cannot interfere.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", t.TempDir())
	t.Setenv(constants.TokenEnvVar, "from-env")
	if got := ResolveToken("", "", nil); got != "from-env" {
		t.Errorf("env should be used when nothing else is set, got %q", got)
	}
}

func TestResolveTokenSource(t *testing.T) {
	token, source := ResolveTokenSource("explicit", "", nil)
	if token != "explicit" || source != "flag" {
		t.Errorf("got (%q, %q), want (explicit, flag)", token, source)
	}

	tokenPath := filepath.Join(t.TempDir(), "token")
	if err := WriteTokenFile(tokenPath, "tf"); err != nil {
		t.Fatal(err)
	}
	token, source = ResolveTokenSource("", tokenPath, nil)
	if token != "tf" || source != "token-file-flag" {
		t.Errorf("got (%q, %q), want (tf, token-file-flag)", token, source)
	}
}
