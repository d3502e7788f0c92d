package neynar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fidscope/internal/metrics"
	"fidscope/internal/model"
)

// API defines the methods we use from the social-graph provider.
type API interface {
	GetUsersByFIDs(ctx context.Context, fids []int64) ([]model.UserProfile, error)
	GetFollowing(ctx context.Context, fid int64, cursor string, limit int) ([]model.UserProfile, string, error)
	GetUserCasts(ctx context.Context, fid int64, limit int) ([]model.Cast, error)
}

// Typed upstream failures. Plan restriction is surfaced separately so the
// caller can offer a degraded manual-input path instead of a hard failure.
var (
	ErrPlanRestricted = errors.New("neynar: endpoint requires a paid plan")
	ErrUnauthorized   = errors.New("neynar: unauthorized")
)

// Client is an API-key client for the Neynar v2 Farcaster API.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.neynar.com/v2/farcaster"
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("NEYNAR_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("NEYNAR_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api_key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

// rawUser is the wire shape shared by the user endpoints.
type rawUser struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PfpURL      string `json:"pfp_url"`
	Profile     struct {
		Bio struct {
			Text string `json:"text"`
		} `json:"bio"`
	} `json:"profile"`
	FollowerCount  int      `json:"follower_count"`
	FollowingCount int      `json:"following_count"`
	Verifications  []string `json:"verifications"`
	PowerBadge     bool     `json:"power_badge"`
	Score          float64  `json:"score"`
	Experimental   struct {
		NeynarUserScore float64 `json:"neynar_user_score"`
	} `json:"experimental"`
}

func (r rawUser) profile() model.UserProfile {
	score := r.Score
	if score == 0 {
		score = r.Experimental.NeynarUserScore
	}
	return model.UserProfile{
		FID:               r.FID,
		Username:          r.Username,
		DisplayName:       r.DisplayName,
		PfpURL:            r.PfpURL,
		Bio:               r.Profile.Bio.Text,
		FollowerCount:     r.FollowerCount,
		FollowingCount:    r.FollowingCount,
		VerifiedAddresses: r.Verifications,
		PowerBadge:        r.PowerBadge,
		Score:             score,
	}
}

// GetUsersByFIDs fetches profiles in bulk. The endpoint accepts up to 100 FIDs.
func (c *Client) GetUsersByFIDs(ctx context.Context, fids []int64) ([]model.UserProfile, error) {
	if len(fids) == 0 {
		return nil, nil
	}
	if len(fids) > 100 {
		fids = fids[:100]
	}
	parts := make([]string, len(fids))
	for i, f := range fids {
		parts[i] = strconv.FormatInt(f, 10)
	}
	u := fmt.Sprintf("%s/user/bulk?fids=%s", c.baseURL, strings.Join(parts, ","))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusErr(resp.StatusCode); err != nil {
		return nil, err
	}
	var raw struct {
		Users []rawUser `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]model.UserProfile, 0, len(raw.Users))
	for _, d := range raw.Users {
		out = append(out, d.profile())
	}
	return out, nil
}

// GetFollowing returns one page of accounts the user follows plus the cursor
// for the next page ("" when exhausted).
func (c *Client) GetFollowing(ctx context.Context, fid int64, cursor string, limit int) ([]model.UserProfile, string, error) {
	u := fmt.Sprintf("%s/following?fid=%d&limit=%d", c.baseURL, fid, clamp(limit, 1, 100))
	if cursor != "" {
		u += "&cursor=" + cursor
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if err := statusErr(resp.StatusCode); err != nil {
		return nil, "", err
	}
	// Each entry is either {user: {...}} or a bare user object depending on
	// API version; tolerate both.
	var raw struct {
		Users []struct {
			rawUser
			User *rawUser `json:"user"`
		} `json:"users"`
		Next struct {
			Cursor string `json:"cursor"`
		} `json:"next"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, "", err
	}
	out := make([]model.UserProfile, 0, len(raw.Users))
	for _, d := range raw.Users {
		if d.User != nil {
			out = append(out, d.User.profile())
		} else {
			out = append(out, d.rawUser.profile())
		}
	}
	return out, raw.Next.Cursor, nil
}

// GetUserCasts returns a bounded sample of the user's recent casts.
func (c *Client) GetUserCasts(ctx context.Context, fid int64, limit int) ([]model.Cast, error) {
	u := fmt.Sprintf("%s/feed/user/casts?fid=%d&limit=%d", c.baseURL, fid, clamp(limit, 1, 25))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusErr(resp.StatusCode); err != nil {
		return nil, err
	}
	var raw struct {
		Casts []struct {
			Hash      string    `json:"hash"`
			Text      string    `json:"text"`
			Timestamp time.Time `json:"timestamp"`
			Reactions struct {
				LikesCount   int `json:"likes_count"`
				RecastsCount int `json:"recasts_count"`
			} `json:"reactions"`
			Replies struct {
				Count int `json:"count"`
			} `json:"replies"`
		} `json:"casts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]model.Cast, 0, len(raw.Casts))
	for _, d := range raw.Casts {
		out = append(out, model.Cast{
			Hash:      d.Hash,
			Text:      d.Text,
			Timestamp: d.Timestamp,
			Likes:     d.Reactions.LikesCount,
			Recasts:   d.Reactions.RecastsCount,
			Replies:   d.Replies.Count,
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
		return fmt.Errorf("neynar api status %d", code)
	}
	return nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	var lastStatus int
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				lastStatus = resp.StatusCode
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				metrics.IncAPIRetry(req.URL.Path)
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				// jitter +/-20%
				jitter := time.Duration(float64(wait) * 0.2)
				if jitter > 0 {
					wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	if lastErr == nil {
		return nil, fmt.Errorf("request failed after %d attempts: last status %d", c.maxAttempts, lastStatus)
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}
