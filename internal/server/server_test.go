package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fidscope/internal/inspect"
	"fidscope/internal/model"
	"fidscope/internal/neynar"
)

type fakeSocial struct {
	users []model.UserProfile
	err   error
}

func (f *fakeSocial) GetUsersByFIDs(ctx context.Context, fids []int64) ([]model.UserProfile, error) {
	return f.users, f.err
}

func (f *fakeSocial) GetFollowing(ctx context.Context, fid int64, cursor string, limit int) ([]model.UserProfile, string, error) {
	return f.users, "", f.err
}

func (f *fakeSocial) GetUserCasts(ctx context.Context, fid int64, limit int) ([]model.Cast, error) {
	return nil, nil
}

func newTestServer(social *fakeSocial) *Server {
	svc := inspect.NewService(social, nil, nil, 10)
	return New(":0", svc, nil, nil, nil)
}

func TestHandleInspect(t *testing.T) {
	s := newTestServer(&fakeSocial{users: []model.UserProfile{{
		FID:      3,
		Username: "dwr",
		PfpURL:   "https://img/p.png",
		Bio:      "Co-founder of Farcaster.",
	}}})

	req := httptest.NewRequest(http.MethodGet, "/api/inspect?fids=3&batch=true", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	var report inspect.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Summary.Total != 1 || report.Results[0].Profile.FID != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestHandleInspectRejectsBadFIDs(t *testing.T) {
	s := newTestServer(&fakeSocial{})
	for _, q := range []string{"", "fids=abc", "fid=-3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/inspect?"+q, nil)
		rec := httptest.NewRecorder()
		s.http.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestHandleInspectPlanRestriction(t *testing.T) {
	s := newTestServer(&fakeSocial{err: neynar.ErrPlanRestricted})
	req := httptest.NewRequest(http.MethodGet, "/api/inspect?fids=3", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	var body struct {
		ManualMode bool `json:"manual_mode"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.ManualMode {
		t.Fatal("expected manual_mode hint")
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeSocial{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
}

func TestOpenRankUnconfigured(t *testing.T) {
	s := newTestServer(&fakeSocial{})
	req := httptest.NewRequest(http.MethodGet, "/api/openrank?fids=3", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
