package openrank

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetScoresPostsBareArray(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var fids []int64
		if err := json.Unmarshal(body, &fids); err != nil {
			t.Errorf("body is not a bare fid array: %s", body)
		}
		if len(fids) != 2 || fids[0] != 3 {
			t.Errorf("unexpected fids: %v", fids)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":[{"fid":3,"score":0.0421,"rank":12}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.httpClient = ts.Client()
	scores, err := c.GetScores(context.Background(), []int64{3, 194})
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 1 || scores[0].Score != 0.0421 || scores[0].Rank != 12 {
		t.Fatalf("score mapping wrong: %+v", scores)
	}
}

func TestRankingsPaths(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.httpClient = ts.Client()
	ctx := context.Background()

	if _, err := c.GlobalRankings(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/rankings/global" {
		t.Fatalf("global path: %s", gotPath)
	}
	if _, err := c.FollowerRankings(ctx, 3, 10); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/rankings/followers/3" {
		t.Fatalf("followers path: %s", gotPath)
	}
	if _, err := c.FollowingRankings(ctx, 3, 10); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/rankings/following/3" {
		t.Fatalf("following path: %s", gotPath)
	}
}

func TestTierBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.2, "Legendary"},
		{0.06, "Elite"},
		{0.025, "Influential"},
		{0.012, "Established"},
		{0.006, "Growing"},
		{0.002, "Active"},
		{0.0003, "New"},
	}
	for _, tc := range cases {
		if got := Tier(tc.score); got != tc.want {
			t.Errorf("Tier(%f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
