package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fidscope/internal/inspect"
	"fidscope/internal/store/scanstore"
)

// RunWatchOnce rescans the watchlist in quick mode and persists the report,
// building up per-account verdict history over time.
func RunWatchOnce(ctx context.Context, db *scanstore.DB, svc *inspect.Service, fids []int64) error {
	if len(fids) == 0 {
		return fmt.Errorf("empty watchlist")
	}
	report, err := svc.InspectFIDs(ctx, fids, inspect.Options{Batch: true})
	if err != nil {
		return err
	}
	if db != nil {
		if _, err := db.RecordScan(ctx, time.Now().UTC(), watchQuery(fids), report); err != nil {
			return fmt.Errorf("record scan: %w", err)
		}
	}
	log.Info().
		Int("total", report.Summary.Total).
		Int("spam", report.Summary.Spam).
		Int("needs_review", report.Summary.NeedsReview).
		Msg("watch scan")
	return nil
}

// RunWatchLoop runs RunWatchOnce on a ticker until ctx is cancelled.
func RunWatchLoop(ctx context.Context, db *scanstore.DB, svc *inspect.Service, fids []int64, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	if err := RunWatchOnce(ctx, db, svc, fids); err != nil {
		log.Error().Err(err).Msg("watch scan failed")
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("watch loop stop")
			return ctx.Err()
		case <-t.C:
			if err := RunWatchOnce(ctx, db, svc, fids); err != nil {
				log.Error().Err(err).Msg("watch scan failed")
			}
		}
	}
}

func watchQuery(fids []int64) string {
	parts := make([]string, len(fids))
	for i, f := range fids {
		parts[i] = strconv.FormatInt(f, 10)
	}
	return "watch:" + strings.Join(parts, ",")
}
