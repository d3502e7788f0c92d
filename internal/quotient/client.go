package quotient

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

// Typed provider failures. Auth and plan rejections are persistent, so the
// caller reports them distinctly from transient errors.
var (
	ErrNotConfigured  = errors.New("quotient: api key not configured")
	ErrUnauthorized   = errors.New("quotient: api key rejected")
	ErrPlanRestricted = errors.New("quotient: endpoint not available on this plan")
)

// Reputation is one user's engagement-quality score.
type Reputation struct {
	FID        int64   `json:"fid"`
	Score      float64 `json:"quotient_score"`
	Rank       int     `json:"rank"`
	Tier       string  `json:"tier"`
	Percentile float64 `json:"percentile"`
}

// Client fetches engagement-reputation scores in batches.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.quotient.social"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool { return c.apiKey != "" }

// GetUserReputations returns scores for up to 1000 FIDs per request.
func (c *Client) GetUserReputations(ctx context.Context, fids []int64) ([]Reputation, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if len(fids) == 0 {
		return nil, nil
	}
	if len(fids) > 1000 {
		fids = fids[:1000]
	}
	body, _ := json.Marshal(map[string]any{"fids": fids, "api_key": c.apiKey})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/user-reputation", bytes.NewReader(body))
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
		Users []struct {
			FID        int64   `json:"fid"`
			Score      float64 `json:"quotient_score"`
			Alt        float64 `json:"score"`
			Rank       int     `json:"rank"`
			Tier       string  `json:"tier"`
			Percentile float64 `json:"percentile"`
		} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]Reputation, 0, len(raw.Users))
	for _, u := range raw.Users {
		score := u.Score
		if score == 0 {
			score = u.Alt
		}
		tier := u.Tier
		if tier == "" {
			tier = Tier(score)
		}
		out = append(out, Reputation{
			FID:        u.FID,
			Score:      score,
			Rank:       u.Rank,
			Tier:       tier,
			Percentile: u.Percentile,
		})
	}
	return out, nil
}

func statusErr(code int) error {
	switch {
	case code == http.StatusPaymentRequired:
		return ErrPlanRestricted
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code >= 400:
		return fmt.Errorf("quotient api status %d", code)
	}
	return nil
}

// Tier maps a score in [0,1] to its label band.
func Tier(score float64) string {
	switch {
	case score >= 0.9:
		return "Exceptional"
	case score >= 0.8:
		return "Elite"
	case score >= 0.7:
		return "Influential"
	case score >= 0.6:
		return "Active"
	case score >= 0.5:
		return "Casual"
	default:
		return "Inactive"
	}
}
