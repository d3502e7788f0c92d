package openrank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Score is a graph-propagated trust score. Raw scores are tiny (most users
// fall in 0..0.01); display scales multiply by 1000.
type Score struct {
	FID   int64   `json:"fid"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank,omitempty"`
}

// Typed provider failures. The API is normally keyless, but gateways in
// front of it can still reject by auth or plan tier.
var (
	ErrUnauthorized   = errors.New("openrank: request rejected as unauthorized")
	ErrPlanRestricted = errors.New("openrank: endpoint not available on this plan")
)

// Client talks to the OpenRank graph-reputation API. The API is keyless.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://graph.cast.k3l.io"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetScores returns global scores for the given FIDs. The endpoint takes a
// bare JSON array of FIDs.
func (c *Client) GetScores(ctx context.Context, fids []int64) ([]Score, error) {
	body, _ := json.Marshal(fids)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scores", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusErr(resp.StatusCode); err != nil {
		return nil, err
	}
	var raw struct {
		Result []Score `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw.Result, nil
}

// GlobalRankings returns the top accounts by global score.
func (c *Client) GlobalRankings(ctx context.Context, limit int) ([]Score, error) {
	return c.rankings(ctx, fmt.Sprintf("%s/rankings/global?limit=%d", c.baseURL, limit))
}

// FollowerRankings ranks a user's followers by score.
func (c *Client) FollowerRankings(ctx context.Context, fid int64, limit int) ([]Score, error) {
	return c.rankings(ctx, fmt.Sprintf("%s/rankings/followers/%d?limit=%d", c.baseURL, fid, limit))
}

// FollowingRankings ranks the accounts a user follows by score.
func (c *Client) FollowingRankings(ctx context.Context, fid int64, limit int) ([]Score, error) {
	return c.rankings(ctx, fmt.Sprintf("%s/rankings/following/%d?limit=%d", c.baseURL, fid, limit))
}

func (c *Client) rankings(ctx context.Context, url string) ([]Score, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusErr(resp.StatusCode); err != nil {
		return nil, err
	}
	var raw struct {
		Result []Score `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw.Result, nil
}

func statusErr(code int) error {
	switch {
	case code == http.StatusPaymentRequired:
		return ErrPlanRestricted
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code >= 400:
		return fmt.Errorf("openrank api status %d", code)
	}
	return nil
}

// Tier maps a raw score to a display tier on the score*1000 scale.
func Tier(score float64) string {
	s := score * 1000
	switch {
	case s >= 100:
		return "Legendary"
	case s >= 50:
		return "Elite"
	case s >= 20:
		return "Influential"
	case s >= 10:
		return "Established"
	case s >= 5:
		return "Growing"
	case s >= 1:
		return "Active"
	default:
		return "New"
	}
}
