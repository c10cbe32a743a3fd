package api

import (
	"context"
	"fmt"

	"github.com/proofback/proofback-cli/internal/models"
)

// CurrentUser fetches the profile behind the session token. Also used as the
// cheap credential check on login.
func (c *Client) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.get(ctx, "/users/me", &profile); err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return &profile, nil
}
