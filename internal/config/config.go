// Package config provides configuration management for the Proofback CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/proofback/proofback-cli/internal/constants"
)

// Config holds the client configuration.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\proofback\config
//   - Unix: ~/.config/proofback/config
//
// INI format:
//
//	[proofback]
//	platform_url = https://app.proofback.io
//	token = <bearer-token>
//
//	[proxy]
//	mode = no-proxy | system | basic | ntlm
//	host = proxy.corp.example
//	port = 8080
//	user = jdoe
//	no_proxy = .internal.example,10.0.0.0/8
type Config struct {
	// Platform connection settings
	PlatformURL string `ini:"platform_url"`
	Token       string `ini:"token"`

	// Proxy settings
	ProxyMode     string `ini:"mode"`
	ProxyHost     string `ini:"host"`
	ProxyPort     int    `ini:"port"`
	ProxyUser     string `ini:"user"`
	ProxyPassword string `ini:"-"` // never persisted
	NoProxy       string `ini:"no_proxy"`
	ProxyWarmup   bool   `ini:"warmup"`
}

// Validation errors
var (
	ErrMissingPlatformURL = errors.New("platform_url is required")
	ErrMissingToken       = errors.New("no session token found - run 'proofback-cli login' first")
)

// DefaultConfigDir returns the configuration directory.
//   - Windows: %USERPROFILE%\.config\proofback
//   - Unix: ~/.config/proofback
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", constants.AppName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", constants.AppName), nil
}

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		PlatformURL: constants.DefaultPlatformURL,
		ProxyMode:   "no-proxy",
	}
}

// LoadConfig loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil // Return defaults if we can't determine path
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	mainSection := iniFile.Section(constants.AppName)
	cfg.PlatformURL = mainSection.Key("platform_url").MustString(cfg.PlatformURL)
	cfg.Token = mainSection.Key("token").String()

	proxySection := iniFile.Section("proxy")
	cfg.ProxyMode = proxySection.Key("mode").MustString("no-proxy")
	cfg.ProxyHost = proxySection.Key("host").String()
	cfg.ProxyPort = proxySection.Key("port").MustInt(0)
	cfg.ProxyUser = proxySection.Key("user").String()
	cfg.NoProxy = proxySection.Key("no_proxy").String()
	cfg.ProxyWarmup = proxySection.Key("warmup").MustBool(false)

	return cfg, nil
}

// SaveConfig saves configuration to an INI file.
// Creates parent directories if they don't exist. The token is stored in the
// file, so permissions are restricted to the owner.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	mainSection, err := iniFile.NewSection(constants.AppName)
	if err != nil {
		return fmt.Errorf("failed to create %s section: %w", constants.AppName, err)
	}
	mainSection.Key("platform_url").SetValue(cfg.PlatformURL)
	if cfg.Token != "" {
		mainSection.Key("token").SetValue(cfg.Token)
	}

	proxySection, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxySection.Key("mode").SetValue(cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		proxySection.Key("host").SetValue(cfg.ProxyHost)
		proxySection.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	}
	if cfg.ProxyUser != "" {
		proxySection.Key("user").SetValue(cfg.ProxyUser)
	}
	if cfg.NoProxy != "" {
		proxySection.Key("no_proxy").SetValue(cfg.NoProxy)
	}
	if cfg.ProxyWarmup {
		proxySection.Key("warmup").SetValue("true")
	}

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Restrict permissions (token is sensitive)
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks connection settings before API calls.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.PlatformURL) == "" {
		return ErrMissingPlatformURL
	}
	return nil
}
