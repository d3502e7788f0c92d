package dune

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUnconfigured(t *testing.T) {
	c := NewClient("", "")
	if _, err := c.GetUserStats(context.Background(), 3); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGetUserStats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Dune-Api-Key"); got != "key" {
			t.Errorf("missing api key header, got %q", got)
		}
		if r.URL.Path != "/echo/v1/farcaster/user/3" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"fid":3,"engagement_score":0.8,"onchain_score":0.6,"wallet_address":"0x6ce0","labels":["Whale"]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key")
	c.httpClient = ts.Client()
	stats, err := c.GetUserStats(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if stats.EngagementScore != 0.8 || len(stats.Labels) != 1 {
		t.Fatalf("stats mapping wrong: %+v", stats)
	}
}

func TestGetWalletLabels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/echo/v1/beta/balance/0x6ce0" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"labels":["DEX Trader","Whale"]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key")
	c.httpClient = ts.Client()
	labels, err := c.GetWalletLabels(context.Background(), "0x6ce0")
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 2 || labels[0] != "DEX Trader" {
		t.Fatalf("labels wrong: %v", labels)
	}
}

func TestTrendingUsers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit param: %s", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"fid":3,"fname":"dwr","follower_count":600000,"engagement_score":0.9}]`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key")
	c.httpClient = ts.Client()
	users, err := c.GetTrendingUsers(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Fname != "dwr" {
		t.Fatalf("trending mapping wrong: %+v", users)
	}
}
