package api

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"

	"github.com/proofback/proofback-cli/internal/models"
)

// Administrative endpoints. All of these answer 403 for non-admin accounts,
// which surfaces as ErrForbidden.

// GetAdminStats fetches the platform-wide aggregate counters.
func (c *Client) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	if err := c.get(ctx, "/admin/stats", &stats); err != nil {
		return nil, fmt.Errorf("failed to get admin statistics: %w", err)
	}
	return &stats, nil
}

// ListUsers fetches the full user roster with per-user usage counters.
func (c *Client) ListUsers(ctx context.Context) ([]models.PlatformUser, error) {
	var result struct {
		Users []models.PlatformUser `json:"users"`
	}
	if err := c.get(ctx, "/admin/users", &result); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return result.Users, nil
}

// ListActivity fetches the recent platform activity feed, newest first.
func (c *Client) ListActivity(ctx context.Context) ([]models.ActivityEntry, error) {
	var result struct {
		Activity []models.ActivityEntry `json:"activity"`
	}
	if err := c.get(ctx, "/admin/activity", &result); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return result.Activity, nil
}

// ToggleUserActive flips a user's active flag and returns the user's new
// state as the server reports it.
func (c *Client) ToggleUserActive(ctx context.Context, userID string) (*models.PlatformUser, error) {
	resp, err := c.doRequest(ctx, nethttp.MethodPut, "/admin/users/"+url.PathEscape(userID)+"/toggle-active", nil)
	if err != nil {
		return nil, err
	}

	var user models.PlatformUser
	if err := decodeResponse(resp, &user); err != nil {
		return nil, fmt.Errorf("failed to toggle user %s: %w", userID, err)
	}
	return &user, nil
}

// DeleteUser permanently removes a user and all their data.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	resp, err := c.doRequest(ctx, nethttp.MethodDelete, "/admin/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, nil); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", userID, err)
	}
	return nil
}
