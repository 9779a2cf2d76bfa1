package user

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/festivo/messaging-service/internal/config"
	"github.com/festivo/messaging-service/internal/model"
)

// Client resolves already-authenticated identities to display profiles. The
// identity itself is opaque to the messaging core.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.UserHub.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.UserHub.Timeout,
		},
	}
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) GetUserInfo(ctx context.Context, userID string) (*model.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/users/%s", c.baseURL, userID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // .

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info model.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if info.ID == "" {
		info.ID = userID
	}

	return &info, nil
}
