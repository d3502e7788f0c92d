package reputation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"fidscope/internal/metrics"
	"fidscope/internal/model"
	"fidscope/internal/openrank"
	"fidscope/internal/quotient"
	"fidscope/internal/talent"
)

// State classifies a provider call outcome. Failures are tolerated: they
// degrade the richness of the merged record, never the batch.
type State string

const (
	StateOK             State = "ok"
	StateUnconfigured   State = "unconfigured"
	StateUnauthorized   State = "unauthorized"
	StatePlanRestricted State = "plan_restricted"
	StateTimeout        State = "timeout"
	StateOpen           State = "circuit_open"
	StateError          State = "error"
)

// Status reports how one provider fared for a batch.
type Status struct {
	Provider string `json:"provider"`
	State    State  `json:"state"`
	Error    string `json:"error,omitempty"`
}

// Narrow views of the provider clients, so tests can fake them.
type builderAPI interface {
	Configured() bool
	GetPassport(ctx context.Context, fid int64) (*talent.Passport, error)
}

type graphAPI interface {
	GetScores(ctx context.Context, fids []int64) ([]openrank.Score, error)
}

type engagementAPI interface {
	Configured() bool
	GetUserReputations(ctx context.Context, fids []int64) ([]quotient.Reputation, error)
}

// Opts controls which optional signals a batch fetch pursues.
type Opts struct {
	// SkipBuilder drops the per-FID builder lookup; bulk callers use it to
	// keep large batches fast.
	SkipBuilder bool
}

// Aggregator fans out to the reputation providers for a batch of FIDs and
// merges whatever subset of signals succeeded. Any client may be nil
// (unconfigured). A flapping provider trips its circuit breaker and is
// skipped cheaply on later batches.
type Aggregator struct {
	builder    builderAPI
	graph      graphAPI
	engagement engagementAPI
	timeout    time.Duration
	breakers   map[string]*gobreaker.CircuitBreaker
}

func NewAggregator(builder *talent.Client, graph *openrank.Client, engagement *quotient.Client, timeout time.Duration) *Aggregator {
	a := &Aggregator{timeout: timeout, breakers: map[string]*gobreaker.CircuitBreaker{}}
	if builder != nil {
		a.builder = builder
	}
	if graph != nil {
		a.graph = graph
	}
	if engagement != nil {
		a.engagement = engagement
	}
	if a.timeout <= 0 {
		a.timeout = 3 * time.Second
	}
	for _, name := range []string{"talent", "openrank", "quotient"} {
		a.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}
	return a
}

// Fetch merges provider signals for the batch. It never returns an error:
// per-provider outcomes are reported in the status slice and missing signals
// stay absent in the merged records.
func (a *Aggregator) Fetch(ctx context.Context, fids []int64, opts Opts) (map[int64]model.ExternalReputation, []Status) {
	merged := make(map[int64]model.ExternalReputation, len(fids))
	if len(fids) == 0 {
		return merged, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var statuses []Status

	record := func(provider string, apply func(), err error) {
		st := a.classify(provider, err)
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, st)
		if err == nil {
			apply()
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		scores, err := a.fetchGraph(ctx, fids)
		record("openrank", func() {
			for fid, s := range scores {
				r := merged[fid]
				sc := s
				r.GraphScore = &sc
				merged[fid] = r
			}
		}, err)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		scores, err := a.fetchEngagement(ctx, fids)
		record("quotient", func() {
			for fid, s := range scores {
				r := merged[fid]
				sc := s
				r.EngagementScore = &sc
				merged[fid] = r
			}
		}, err)
	}()

	if !opts.SkipBuilder {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scores, err := a.fetchBuilder(ctx, fids)
			record("talent", func() {
				for fid, s := range scores {
					r := merged[fid]
					sc := s
					r.BuilderScore = &sc
					merged[fid] = r
				}
			}, err)
		}()
	}

	wg.Wait()
	return merged, statuses
}

func (a *Aggregator) fetchGraph(ctx context.Context, fids []int64) (map[int64]float64, error) {
	if a.graph == nil {
		return nil, errNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	res, err := a.execute("openrank", func() (any, error) {
		return a.graph.GetScores(ctx, fids)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]float64)
	for _, s := range res.([]openrank.Score) {
		out[s.FID] = s.Score
	}
	return out, nil
}

func (a *Aggregator) fetchEngagement(ctx context.Context, fids []int64) (map[int64]float64, error) {
	if a.engagement == nil || !a.engagement.Configured() {
		return nil, errNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	res, err := a.execute("quotient", func() (any, error) {
		return a.engagement.GetUserReputations(ctx, fids)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]float64)
	for _, r := range res.([]quotient.Reputation) {
		out[r.FID] = r.Score
	}
	return out, nil
}

// fetchBuilder looks passports up one FID at a time (the API has no batch
// endpoint), under a single deadline for the whole batch. Per-FID misses are
// skipped, not fatal.
func (a *Aggregator) fetchBuilder(ctx context.Context, fids []int64) (map[int64]int, error) {
	if a.builder == nil || !a.builder.Configured() {
		return nil, errNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout*time.Duration(len(fids)))
	defer cancel()
	res, err := a.execute("talent", func() (any, error) {
		out := make(map[int64]int)
		for _, fid := range fids {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			p, err := a.builder.GetPassport(ctx, fid)
			if err != nil {
				log.Debug().Int64("fid", fid).Err(err).Msg("builder passport lookup failed")
				continue
			}
			if p != nil {
				out[fid] = p.Score
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(map[int64]int), nil
}

func (a *Aggregator) execute(provider string, fn func() (any, error)) (any, error) {
	metrics.IncProviderRequest(provider)
	return a.breakers[provider].Execute(fn)
}

var errNotConfigured = errors.New("provider not configured")

func (a *Aggregator) classify(provider string, err error) Status {
	st := Status{Provider: provider, State: StateOK}
	switch {
	case err == nil:
		return st
	case errors.Is(err, errNotConfigured),
		errors.Is(err, talent.ErrNotConfigured),
		errors.Is(err, quotient.ErrNotConfigured):
		st.State = StateUnconfigured
	case errors.Is(err, talent.ErrUnauthorized),
		errors.Is(err, quotient.ErrUnauthorized),
		errors.Is(err, openrank.ErrUnauthorized):
		st.State = StateUnauthorized
	case errors.Is(err, talent.ErrPlanRestricted),
		errors.Is(err, quotient.ErrPlanRestricted),
		errors.Is(err, openrank.ErrPlanRestricted):
		st.State = StatePlanRestricted
	case errors.Is(err, context.DeadlineExceeded):
		st.State = StateTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		st.State = StateOpen
	default:
		st.State = StateError
	}
	st.Error = err.Error()
	metrics.IncProviderFailure(provider, string(st.State))
	if st.State != StateUnconfigured {
		log.Warn().Str("provider", provider).Str("state", string(st.State)).Err(err).Msg("reputation provider degraded")
	}
	return st
}
