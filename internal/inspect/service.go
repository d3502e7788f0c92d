package inspect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"fidscope/internal/dune"
	"fidscope/internal/metrics"
	"fidscope/internal/model"
	"fidscope/internal/neynar"
	"fidscope/internal/reputation"
)

// MaxBatch bounds one inspection request.
const MaxBatch = 100

// Spam-score thresholds for the coarse status banding.
const (
	spamThreshold   = 50
	reviewThreshold = 30
)

type aggregator interface {
	Fetch(ctx context.Context, fids []int64, opts reputation.Opts) (map[int64]model.ExternalReputation, []reputation.Status)
}

type walletAPI interface {
	Configured() bool
	GetWalletLabels(ctx context.Context, address string) ([]string, error)
	GetUserStats(ctx context.Context, fid int64) (*dune.UserStats, error)
}

// Options controls how much optional enrichment a scan performs.
type Options struct {
	// Batch skips the expensive per-account extras (activity sample, builder
	// lookup, wallet labels, onchain stats) so bulk requests stay fast.
	Batch bool
}

// Result pairs one account's verdict with its pass-through profile fields.
type Result struct {
	Profile      model.UserProfile       `json:"profile"`
	Verdict      model.ReputationVerdict `json:"verdict"`
	Status       string                  `json:"status"` // Healthy | Suspicious | Spam
	NeedsReview  bool                    `json:"needs_review"`
	WalletLabels []string                `json:"wallet_labels,omitempty"`
	OnchainStats *dune.UserStats         `json:"onchain_stats,omitempty"`
}

// Summary aggregates one scan's statuses.
type Summary struct {
	Total       int `json:"total"`
	Spam        int `json:"spam"`
	Suspicious  int `json:"suspicious"`
	Healthy     int `json:"healthy"`
	NeedsReview int `json:"needs_review"`
}

// Report is the full outcome of a scan, including how each reputation
// provider fared so callers can tell degraded results from complete ones.
type Report struct {
	Results   []Result            `json:"results"`
	Summary   Summary             `json:"summary"`
	Providers []reputation.Status `json:"providers,omitempty"`
	// NextCursor is set by following scans when more pages remain.
	NextCursor string `json:"next_cursor,omitempty"`
}

// Service orchestrates profile fetch, enrichment, and scoring. The scoring
// itself is pure; Service owns only the plumbing around it.
type Service struct {
	social     neynar.API
	rep        aggregator
	wallet     walletAPI
	castSample int
}

func NewService(social neynar.API, rep *reputation.Aggregator, wallet *dune.Client, castSample int) *Service {
	s := &Service{social: social, castSample: castSample}
	if rep != nil {
		s.rep = rep
	}
	if wallet != nil {
		s.wallet = wallet
	}
	if s.castSample <= 0 {
		s.castSample = 10
	}
	return s
}

// InspectFIDs scores a batch of accounts. FIDs that do not resolve are
// omitted from the results, never failing the batch.
func (s *Service) InspectFIDs(ctx context.Context, fids []int64, opts Options) (*Report, error) {
	if len(fids) == 0 {
		return nil, fmt.Errorf("no fids given")
	}
	if len(fids) > MaxBatch {
		return nil, fmt.Errorf("at most %d fids per request, got %d", MaxBatch, len(fids))
	}
	start := time.Now()
	metrics.ScanRuns.Inc()

	profiles, err := s.social.GetUsersByFIDs(ctx, fids)
	if err != nil {
		metrics.ScanErrors.Inc()
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}

	reps, statuses := s.fetchReputation(ctx, profiles, opts)

	report := &Report{Providers: statuses}
	for _, p := range profiles {
		var act *model.ActivitySignals
		if !opts.Batch {
			act = s.sampleActivity(ctx, p.FID)
		}
		rep := reps[p.FID]
		res := score(p, act, rep)
		if !opts.Batch {
			res.WalletLabels = s.walletLabels(ctx, p)
			res.OnchainStats = s.onchainStats(ctx, p.FID)
		}
		report.add(res)
	}
	metrics.ObserveScanDuration(start)
	return report, nil
}

// InspectFollowing scores one page of the accounts a user follows. This is
// the quick path: no activity sample, no builder lookup.
func (s *Service) InspectFollowing(ctx context.Context, fid int64, cursor string, limit int) (*Report, error) {
	start := time.Now()
	metrics.ScanRuns.Inc()

	profiles, next, err := s.social.GetFollowing(ctx, fid, cursor, limit)
	if err != nil {
		metrics.ScanErrors.Inc()
		return nil, fmt.Errorf("fetch following: %w", err)
	}

	reps, statuses := s.fetchReputation(ctx, profiles, Options{Batch: true})

	report := &Report{Providers: statuses, NextCursor: next}
	for _, p := range profiles {
		report.add(score(p, nil, reps[p.FID]))
	}
	// Worst offenders first.
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].Verdict.SpamScore > report.Results[j].Verdict.SpamScore
	})
	metrics.ObserveScanDuration(start)
	return report, nil
}

func (s *Service) fetchReputation(ctx context.Context, profiles []model.UserProfile, opts Options) (map[int64]model.ExternalReputation, []reputation.Status) {
	if s.rep == nil {
		return nil, nil
	}
	fids := make([]int64, len(profiles))
	for i, p := range profiles {
		fids[i] = p.FID
	}
	return s.rep.Fetch(ctx, fids, reputation.Opts{SkipBuilder: opts.Batch})
}

// sampleActivity fetches a bounded recent-cast sample. Failure means no
// sample: the activity rules then do not apply, rather than firing falsely.
func (s *Service) sampleActivity(ctx context.Context, fid int64) *model.ActivitySignals {
	casts, err := s.social.GetUserCasts(ctx, fid, s.castSample)
	if err != nil {
		log.Debug().Int64("fid", fid).Err(err).Msg("cast sample unavailable")
		return nil
	}
	act := &model.ActivitySignals{RecentCastCount: len(casts)}
	for _, c := range casts {
		if c.Timestamp.IsZero() {
			continue
		}
		t := c.Timestamp
		if act.LastActivity == nil || t.After(*act.LastActivity) {
			act.LastActivity = &t
		}
	}
	return act
}

func (s *Service) walletLabels(ctx context.Context, p model.UserProfile) []string {
	if s.wallet == nil || !s.wallet.Configured() || len(p.VerifiedAddresses) == 0 {
		return nil
	}
	labels, err := s.wallet.GetWalletLabels(ctx, p.VerifiedAddresses[0])
	if err != nil {
		log.Debug().Int64("fid", p.FID).Err(err).Msg("wallet labels unavailable")
		return nil
	}
	return labels
}

// onchainStats fetches per-account analytics for full scans. Best-effort:
// a miss leaves the field empty.
func (s *Service) onchainStats(ctx context.Context, fid int64) *dune.UserStats {
	if s.wallet == nil || !s.wallet.Configured() {
		return nil
	}
	stats, err := s.wallet.GetUserStats(ctx, fid)
	if err != nil {
		log.Debug().Int64("fid", fid).Err(err).Msg("onchain stats unavailable")
		return nil
	}
	return stats
}

// score assembles the verdict for one account from whatever signals are
// present. rep fields absent means the corresponding rules do not apply.
func score(p model.UserProfile, act *model.ActivitySignals, rep model.ExternalReputation) Result {
	spamScore, labels := model.CalculateSpamScore(p, act, &rep)

	engagement := p.Score
	if rep.EngagementScore != nil {
		engagement = *rep.EngagementScore
	}
	builder := 0.0
	if rep.BuilderScore != nil {
		builder = float64(*rep.BuilderScore)
	}

	var last *time.Time
	if act != nil {
		last = act.LastActivity
	}
	days := model.CalculateInactivityDays(last)

	verdict := model.ReputationVerdict{
		SpamScore:      spamScore,
		SpamLabels:     labels,
		TrustLevel:     model.CalculateTrustLevel(engagement, builder, p.PowerBadge),
		InactivityDays: days,
		ActivityStatus: model.ActivityStatus(days),
		AccountAge:     model.EstimateAccountAge(p.FID),
	}

	status := "Healthy"
	switch {
	case spamScore >= spamThreshold:
		status = "Spam"
		metrics.SpamDetected.Inc()
	case spamScore >= reviewThreshold:
		status = "Suspicious"
	}
	metrics.AccountsScored.Inc()

	return Result{
		Profile:     p,
		Verdict:     verdict,
		Status:      status,
		NeedsReview: spamScore >= reviewThreshold,
	}
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	r.Summary.Total++
	r.Summary.Spam += b2i(res.Status == "Spam")
	r.Summary.Suspicious += b2i(res.Status == "Suspicious")
	r.Summary.Healthy += b2i(res.Status == "Healthy")
	r.Summary.NeedsReview += b2i(res.NeedsReview)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
