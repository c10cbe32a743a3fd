package cli

import (
	"fmt"

	"github.com/proofback/proofback-cli/internal/api"
	"github.com/proofback/proofback-cli/internal/config"
	"github.com/proofback/proofback-cli/internal/session"
)

// loadConfig loads the config file honoring the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if platformURL != "" {
		cfg.PlatformURL = platformURL
	}
	return cfg, nil
}

// newSession builds the session from the resolved token sources. The session
// persists to the default token file unless an explicit token flag was used.
func newSession(cfg *config.Config) *session.Session {
	resolved := config.ResolveToken(token, tokenFile, cfg)

	tokenPath := config.DefaultTokenPath()
	if token != "" || tokenFile != "" {
		// Explicit credentials are session-only: never overwrite the
		// persisted token of a normal login.
		tokenPath = ""
	}
	return session.New(resolved, tokenPath, nil)
}

// getAPIClient is the standard way for commands to reach the platform:
// config, session and client wired together with error wrapping.
func getAPIClient() (*api.Client, *session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	sess := newSession(cfg)
	client, err := api.NewClient(cfg, sess)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, sess, nil
}

// requireAuth fails fast with a friendly message when no token is present.
func requireAuth(sess *session.Session) error {
	if !sess.Authenticated() {
		return config.ErrMissingToken
	}
	return nil
}
