package dune

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("dune: api key not configured")

// UserStats is on-chain/engagement analytics for one account.
type UserStats struct {
	FID             int64    `json:"fid"`
	EngagementScore float64  `json:"engagement_score"`
	OnchainScore    float64  `json:"onchain_score"`
	WalletAddress   string   `json:"wallet_address"`
	Labels          []string `json:"labels"`
}

// TrendingUser is one row of the trending-accounts feed.
type TrendingUser struct {
	FID             int64   `json:"fid"`
	Fname           string  `json:"fname"`
	DisplayName     string  `json:"display_name"`
	FollowerCount   int     `json:"follower_count"`
	EngagementScore float64 `json:"engagement_score"`
	OnchainScore    float64 `json:"onchain_score"`
}

// Client talks to the analytics API's Farcaster endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.dune.com/api"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool { return c.apiKey != "" }

func (c *Client) get(ctx context.Context, url string, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	req.Header.Set("X-Dune-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("dune api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetUserStats returns per-FID analytics from the echo farcaster endpoint.
func (c *Client) GetUserStats(ctx context.Context, fid int64) (*UserStats, error) {
	var out UserStats
	u := c.baseURL + "/echo/v1/farcaster/user/" + strconv.FormatInt(fid, 10)
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTrendingUsers returns trending accounts by engagement and on-chain activity.
func (c *Client) GetTrendingUsers(ctx context.Context, limit int) ([]TrendingUser, error) {
	var out []TrendingUser
	u := fmt.Sprintf("%s/echo/v1/farcaster/trends/users?limit=%d", c.baseURL, limit)
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWalletLabels returns behavior labels for a wallet (e.g. "Whale",
// "DEX Trader"). Best-effort; an empty slice is a normal answer.
func (c *Client) GetWalletLabels(ctx context.Context, address string) ([]string, error) {
	var out struct {
		Labels []string `json:"labels"`
	}
	u := c.baseURL + "/echo/v1/beta/balance/" + address
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Labels, nil
}
