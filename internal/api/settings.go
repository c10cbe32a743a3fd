package api

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/url"

	"github.com/proofback/proofback-cli/internal/models"
)

// ListSettings fetches every configuration entry visible to the caller,
// grouped by category in the server's canonical order.
func (c *Client) ListSettings(ctx context.Context) ([]models.SettingEntry, error) {
	var result struct {
		Settings []models.SettingEntry `json:"settings"`
	}
	if err := c.get(ctx, "/settings", &result); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return result.Settings, nil
}

// UpdateSetting writes a new value for one key and returns the entry as the
// server now holds it. The value must already be canonical JSON for the
// key's declared type.
func (c *Client) UpdateSetting(ctx context.Context, key string, value json.RawMessage) (*models.SettingEntry, error) {
	body := struct {
		Value json.RawMessage `json:"value"`
	}{Value: value}

	resp, err := c.doRequest(ctx, nethttp.MethodPut, "/settings/"+url.PathEscape(key), body)
	if err != nil {
		return nil, err
	}

	var entry models.SettingEntry
	if err := decodeResponse(resp, &entry); err != nil {
		return nil, fmt.Errorf("failed to update setting %s: %w", key, err)
	}
	return &entry, nil
}

// ResetSetting restores one key to its server-side default and returns the
// resulting entry.
func (c *Client) ResetSetting(ctx context.Context, key string) (*models.SettingEntry, error) {
	resp, err := c.doRequest(ctx, nethttp.MethodPost, "/settings/"+url.PathEscape(key)+"/reset", nil)
	if err != nil {
		return nil, err
	}

	var entry models.SettingEntry
	if err := decodeResponse(resp, &entry); err != nil {
		return nil, fmt.Errorf("failed to reset setting %s: %w", key, err)
	}
	return &entry, nil
}
