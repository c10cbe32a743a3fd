package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/proofback/proofback-cli/internal/constants"
)

// The session token is persisted under a single well-known path and cleared
// on logout or when the server rejects it. It is the only client state that
// survives a restart.

// DefaultTokenPath returns the path of the persisted session token
// (~/.config/proofback/token). Returns "" if the home directory cannot be
// determined.
func DefaultTokenPath() string {
	dir, err := DefaultConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "token")
}

// ReadTokenFile reads a bearer token from a file, trimming whitespace.
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteTokenFile persists a bearer token with owner-only permissions,
// using tmp+rename for atomicity.
func WriteTokenFile(path, token string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set token permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// RemoveTokenFile deletes the persisted token. Missing file is not an error.
func RemoveTokenFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// ResolveToken returns a session token by checking multiple sources in
// priority order:
//
//  1. Provided token parameter (if non-empty) - e.g., from --token flag
//  2. Token file at tokenFilePath (if provided) - e.g., from --token-file flag
//  3. Default token file (~/.config/proofback/token) - created by 'login'
//  4. Config file token entry
//  5. PROOFBACK_API_TOKEN environment variable
//
// Returns empty string if no token found in any source.
func ResolveToken(token, tokenFilePath string, cfg *Config) string {
	if token != "" {
		return token
	}

	if tokenFilePath != "" {
		if t, err := ReadTokenFile(tokenFilePath); err == nil && t != "" {
			return t
		}
	}

	if path := DefaultTokenPath(); path != "" {
		if t, err := ReadTokenFile(path); err == nil && t != "" {
			return t
		}
	}

	if cfg != nil && cfg.Token != "" {
		return cfg.Token
	}

	return os.Getenv(constants.TokenEnvVar)
}

// ResolveTokenSource returns the token and a description of where it came
// from, for --verbose diagnostics. Priority matches ResolveToken.
func ResolveTokenSource(token, tokenFilePath string, cfg *Config) (string, string) {
	if token != "" {
		return token, "flag"
	}
	if tokenFilePath != "" {
		if t, err := ReadTokenFile(tokenFilePath); err == nil && t != "" {
			return t, "token-file-flag"
		}
	}
	if path := DefaultTokenPath(); path != "" {
		if t, err := ReadTokenFile(path); err == nil && t != "" {
			return t, "token-file"
		}
	}
	if cfg != nil && cfg.Token != "" {
		return cfg.Token, "config"
	}
	if t := os.Getenv(constants.TokenEnvVar); t != "" {
		return t, "environment"
	}
	return "", ""
}
