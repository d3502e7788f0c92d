package talent

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

// Typed provider failures. Auth and plan rejections are persistent, so the
// caller reports them distinctly from transient errors.
var (
	ErrNotConfigured  = errors.New("talent: api key not configured")
	ErrUnauthorized   = errors.New("talent: api key rejected")
	ErrPlanRestricted = errors.New("talent: endpoint not available on this plan")
)

// Passport is the subset of the builder passport we consume.
type Passport struct {
	Score      int
	PassportID string
	Verified   bool
}

// Client fetches builder-reputation passports. Calls are best-effort
// enrichment and carry a short timeout.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.talentprotocol.com/api/v2"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 3 * time.Second},
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool { return c.apiKey != "" }

// GetPassport returns the builder passport for a FID, nil when the account
// has none, or ErrNotConfigured when no key is set. A nil passport means the
// builder-score rules simply do not apply.
func (c *Client) GetPassport(ctx context.Context, fid int64) (*Passport, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	u := c.baseURL + "/passports/" + strconv.FormatInt(fid, 10)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := statusErr(resp.StatusCode); err != nil {
		return nil, err
	}
	var raw struct {
		Passport struct {
			Score      int    `json:"score"`
			PassportID string `json:"passport_id"`
			Verified   bool   `json:"verified"`
		} `json:"passport"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return &Passport{
		Score:      raw.Passport.Score,
		PassportID: raw.Passport.PassportID,
		Verified:   raw.Passport.Verified,
	}, nil
}

func statusErr(code int) error {
	switch {
	case code == http.StatusPaymentRequired:
		return ErrPlanRestricted
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code >= 400:
		return fmt.Errorf("talent api status %d", code)
	}
	return nil
}
