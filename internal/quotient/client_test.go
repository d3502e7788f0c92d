package quotient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetUserReputationsUnconfigured(t *testing.T) {
	c := NewClient("", "")
	if _, err := c.GetUserReputations(context.Background(), []int64{3}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGetUserReputationsDecodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			FIDs   []int64 `json:"fids"`
			APIKey string  `json:"api_key"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.APIKey != "key" {
			t.Errorf("bad request body: %s", body)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"users":[
			{"fid":3,"quotient_score":0.91,"rank":40,"percentile":99.2},
			{"fid":10,"score":0.55}
		]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key")
	c.httpClient = ts.Client()
	reps, err := c.GetUserReputations(context.Background(), []int64{3, 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(reps) != 2 {
		t.Fatalf("expected 2 reputations, got %d", len(reps))
	}
	if reps[0].Score != 0.91 || reps[0].Tier != "Exceptional" {
		t.Fatalf("primary score field wrong: %+v", reps[0])
	}
	if reps[1].Score != 0.55 || reps[1].Tier != "Casual" {
		t.Fatalf("alt score fallback wrong: %+v", reps[1])
	}
}

func TestGetUserReputationsRejectionsAreTyped(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusPaymentRequired, ErrPlanRestricted},
	}
	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
		}))
		c := NewClient(ts.URL, "key")
		c.httpClient = ts.Client()
		_, err := c.GetUserReputations(context.Background(), []int64{3})
		ts.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.code, tc.want, err)
		}
	}
}

func TestGetUserReputationsEmptyInput(t *testing.T) {
	c := NewClient("", "key")
	reps, err := c.GetUserReputations(context.Background(), nil)
	if err != nil || reps != nil {
		t.Fatalf("empty input should short-circuit, got %v %v", reps, err)
	}
}

func TestTierBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.95, "Exceptional"},
		{0.85, "Elite"},
		{0.75, "Influential"},
		{0.65, "Active"},
		{0.55, "Casual"},
		{0.1, "Inactive"},
	}
	for _, tc := range cases {
		if got := Tier(tc.score); got != tc.want {
			t.Errorf("Tier(%f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
