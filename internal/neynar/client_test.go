package neynar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// helper to create client with injected http client
func newTestClient(ts *httptest.Server) *Client {
	c := NewClient(ts.URL, "test")
	c.httpClient = ts.Client()
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	return c
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"users":[]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if _, err := c.GetUsersByFIDs(context.Background(), []int64{3}); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts)
	}
}

func TestDoWithRetryReportsLastStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, err := c.GetUsersByFIDs(context.Background(), []int64{3})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !strings.Contains(err.Error(), "last status 429") {
		t.Fatalf("error should name the exhausting status, got: %v", err)
	}
}

func TestPlanRestrictionIsTyped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, _, err := c.GetFollowing(context.Background(), 3, "", 20)
	if !errors.Is(err, ErrPlanRestricted) {
		t.Fatalf("expected ErrPlanRestricted, got %v", err)
	}
}

func TestGetUsersByFIDsMapsProfile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fids"); got != "3,194" {
			t.Errorf("unexpected fids param: %s", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"users":[{
			"fid":3,"username":"dwr","display_name":"Dan",
			"pfp_url":"https://img/p.png",
			"profile":{"bio":{"text":"Co-founder."}},
			"follower_count":600000,"following_count":1400,
			"verifications":["0x6ce0"],
			"power_badge":true,
			"experimental":{"neynar_user_score":0.97}
		}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	users, err := c.GetUsersByFIDs(context.Background(), []int64{3, 194})
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	u := users[0]
	if u.FID != 3 || u.Bio != "Co-founder." || !u.PowerBadge || len(u.VerifiedAddresses) != 1 {
		t.Fatalf("profile mapping wrong: %+v", u)
	}
	if u.Score != 0.97 {
		t.Fatalf("expected experimental score fallback, got %f", u.Score)
	}
}

func TestGetFollowingUnwrapsNestedUsers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"users":[
			{"user":{"fid":10,"username":"nested"}},
			{"fid":11,"username":"bare"}
		],"next":{"cursor":"abc"}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	users, cursor, err := c.GetFollowing(context.Background(), 3, "", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].Username != "nested" || users[1].Username != "bare" {
		t.Fatalf("unwrap wrong: %+v", users)
	}
	if cursor != "abc" {
		t.Fatalf("cursor: %s", cursor)
	}
}
