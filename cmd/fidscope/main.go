package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fidscope/internal/cmdlog"
	"fidscope/internal/config"
	"fidscope/internal/dune"
	"fidscope/internal/inspect"
	"fidscope/internal/jobs"
	"fidscope/internal/metrics"
	"fidscope/internal/neynar"
	"fidscope/internal/openrank"
	"fidscope/internal/quotient"
	"fidscope/internal/reputation"
	"fidscope/internal/server"
	"fidscope/internal/store/scanstore"
	"fidscope/internal/talent"
	"fidscope/internal/theme"
	"fidscope/internal/util"
)

func main() {
	setupLogging()
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "init":
		err = cmdlog.Run("init", cmdInit)
	case "inspect":
		err = cmdlog.Run("inspect", cmdInspect)
	case "following":
		err = cmdlog.Run("following", cmdFollowing)
	case "trending":
		err = cmdlog.Run("trending", cmdTrending)
	case "serve":
		err = cmdlog.Run("serve", cmdServe)
	case "watch":
		err = cmdlog.Run("watch", cmdWatch)
	case "history":
		err = cmdlog.Run("history", cmdHistory)
	default:
		printHelp()
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: fidscope <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./fidscope.yaml")
	fmt.Println("  inspect     Score one or more FIDs for spam/trust/inactivity")
	fmt.Println("  following   Scan the accounts a FID follows")
	fmt.Println("  trending    Show trending accounts from the analytics API")
	fmt.Println("  serve       Run the HTTP API")
	fmt.Println("  watch       Periodically rescan a watchlist into history")
	fmt.Println("  history     Show stored scan history")
}

func setupLogging() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if lvl, err := zerolog.ParseLevel(v); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

type app struct {
	cfg      config.Config
	svc      *inspect.Service
	graph    *openrank.Client
	quotient *quotient.Client
	dune     *dune.Client
}

func buildApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Providers.Neynar.APIKey == "" {
		fmt.Println("warning: missing NEYNAR_API_KEY; social graph calls will fail")
	}
	p := cfg.Providers
	social := neynar.NewClient(p.Neynar.BaseURL, p.Neynar.APIKey)
	builder := talent.NewClient(p.Talent.BaseURL, p.Talent.APIKey)
	graph := openrank.NewClient(p.OpenRank.BaseURL)
	quot := quotient.NewClient(p.Quotient.BaseURL, p.Quotient.APIKey)
	wallet := dune.NewClient(p.Dune.BaseURL, p.Dune.APIKey)
	agg := reputation.NewAggregator(builder, graph, quot, cfg.Enrichment.Timeout())
	return &app{
		cfg:      cfg,
		svc:      inspect.NewService(social, agg, wallet, cfg.Enrichment.CastSample),
		graph:    graph,
		quotient: quot,
		dune:     wallet,
	}, nil
}

func (a *app) openStore() *scanstore.DB {
	if a.cfg.Storage.DBPath == "" {
		return nil
	}
	db, err := scanstore.Open(a.cfg.Storage.DBPath)
	if err != nil {
		log.Warn().Err(err).Msg("scan history unavailable")
		return nil
	}
	return db
}

func cmdInit() error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./fidscope.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdInspect() error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	cfgPath := fs.String("config", "./fidscope.yaml", "config path")
	fidsArg := fs.String("fids", "", "comma-separated FIDs (max 100)")
	batch := fs.Bool("batch", false, "skip per-account enrichment for speed")
	asJSON := fs.Bool("json", false, "emit the full report as JSON")
	_ = fs.Parse(os.Args[2:])

	fids, err := inspect.ParseFIDList(*fidsArg)
	if err != nil {
		return err
	}
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	report, err := a.svc.InspectFIDs(ctx, fids, inspect.Options{Batch: *batch})
	if err != nil {
		if errors.Is(err, neynar.ErrPlanRestricted) {
			fmt.Println("The social graph API rejected this request for your plan tier.")
			fmt.Println("Consider inspecting individual FIDs manually, or upgrade the plan.")
		}
		return err
	}
	if db := a.openStore(); db != nil {
		defer db.Close()
		if _, err := db.RecordScan(ctx, time.Now().UTC(), *fidsArg, report); err != nil {
			log.Warn().Err(err).Msg("scan history write failed")
		}
	}
	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	printReport(report)
	return nil
}

func cmdFollowing() error {
	fs := flag.NewFlagSet("following", flag.ExitOnError)
	cfgPath := fs.String("config", "./fidscope.yaml", "config path")
	fid := fs.Int64("fid", 0, "FID whose following list to scan")
	cursor := fs.String("cursor", "", "pagination cursor from a previous page")
	limit := fs.Int("limit", 100, "accounts per page (max 100)")
	asJSON := fs.Bool("json", false, "emit the full report as JSON")
	_ = fs.Parse(os.Args[2:])

	if *fid <= 0 {
		return fmt.Errorf("fid is required")
	}
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	report, err := a.svc.InspectFollowing(context.Background(), *fid, *cursor, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	printReport(report)
	if report.NextCursor != "" {
		fmt.Println("More pages: -cursor", report.NextCursor)
	}
	return nil
}

func cmdTrending() error {
	fs := flag.NewFlagSet("trending", flag.ExitOnError)
	cfgPath := fs.String("config", "./fidscope.yaml", "config path")
	limit := fs.Int("limit", 20, "rows to fetch")
	_ = fs.Parse(os.Args[2:])

	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	users, err := a.dune.GetTrendingUsers(context.Background(), *limit)
	if err != nil {
		return err
	}
	for i, u := range users {
		name := u.DisplayName
		if name == "" {
			name = u.Fname
		}
		fmt.Printf("%2d. fid=%-8d %-24s followers=%-8d engagement=%.2f onchain=%.2f\n",
			i+1, u.FID, util.Truncate(name, 24), u.FollowerCount, u.EngagementScore, u.OnchainScore)
	}
	return nil
}

func cmdServe() error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "./fidscope.yaml", "config path")
	addr := fs.String("addr", "", "listen address (overrides config)")
	_ = fs.Parse(os.Args[2:])

	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	listen := a.cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}
	db := a.openStore()
	if db != nil {
		defer db.Close()
	}
	metrics.StartServer(a.cfg.Server.MetricsAddr)

	srv := server.New(listen, a.svc, a.graph, a.quotient, db)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	theme.PrintBanner()
	log.Info().Str("addr", listen).Msg("serving")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func cmdWatch() error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := fs.String("config", "./fidscope.yaml", "config path")
	fidsArg := fs.String("fids", "", "watchlist override, comma-separated")
	once := fs.Bool("once", false, "run a single scan and exit")
	_ = fs.Parse(os.Args[2:])

	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	fids := a.cfg.Watch.FIDs
	if *fidsArg != "" {
		fids, err = inspect.ParseFIDList(*fidsArg)
		if err != nil {
			return err
		}
	}
	if len(fids) == 0 {
		return fmt.Errorf("no watchlist configured (watch.fids or -fids)")
	}
	db := a.openStore()
	if db != nil {
		defer db.Close()
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		return jobs.RunWatchOnce(ctx, db, a.svc, fids)
	}
	interval := time.Duration(a.cfg.Watch.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	err = jobs.RunWatchLoop(ctx, db, a.svc, fids, interval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func cmdHistory() error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := fs.String("config", "./fidscope.yaml", "config path")
	fid := fs.Int64("fid", 0, "show verdict history for one FID")
	scanID := fs.Int64("scan", 0, "show verdicts of one stored scan")
	limit := fs.Int("limit", 20, "rows to show")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.DBPath == "" {
		return fmt.Errorf("storage.dbPath not configured")
	}
	db, err := scanstore.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()

	switch {
	case *fid > 0:
		rows, err := db.FIDHistory(ctx, *fid, *limit)
		if err != nil {
			return err
		}
		for _, v := range rows {
			fmt.Printf("fid=%-8d @%-20s score=%-3d trust=%-8s labels=%v\n",
				v.FID, v.Username, v.SpamScore, v.Trust, v.Labels)
		}
	case *scanID > 0:
		rows, err := db.ScanVerdicts(ctx, *scanID)
		if err != nil {
			return err
		}
		for _, v := range rows {
			fmt.Printf("fid=%-8d @%-20s score=%-3d trust=%-8s age=%q labels=%v\n",
				v.FID, v.Username, v.SpamScore, v.Trust, v.AgeLabel, v.Labels)
		}
	default:
		scans, err := db.RecentScans(ctx, *limit)
		if err != nil {
			return err
		}
		for _, s := range scans {
			fmt.Printf("#%-4d %s total=%-4d spam=%-3d suspicious=%-3d healthy=%-3d %s\n",
				s.ID, s.TS.Format(time.DateTime), s.Total, s.Spam, s.Suspicious, s.Healthy,
				util.Truncate(s.Query, 40))
		}
	}
	return nil
}

func printReport(report *inspect.Report) {
	for _, res := range report.Results {
		v := res.Verdict
		fmt.Printf("fid=%-8d @%-20s %-10s spam=%-3d trust=%-8s age=%q inactive=%s\n",
			res.Profile.FID, util.Truncate(res.Profile.Username, 20), res.Status,
			v.SpamScore, v.TrustLevel, v.AccountAge.Label, v.ActivityStatus)
		if len(v.SpamLabels) > 0 {
			fmt.Printf("  reasons: %v\n", v.SpamLabels)
		}
		if bio := util.NormalizeWhitespace(res.Profile.Bio); bio != "" {
			fmt.Printf("  bio: %s\n", util.Truncate(bio, 80))
		}
		if len(res.WalletLabels) > 0 {
			fmt.Printf("  wallet: %v\n", res.WalletLabels)
		}
		if st := res.OnchainStats; st != nil {
			fmt.Printf("  onchain: engagement=%.2f onchain=%.2f\n", st.EngagementScore, st.OnchainScore)
		}
	}
	s := report.Summary
	fmt.Printf("total=%d spam=%d suspicious=%d healthy=%d needs_review=%d\n",
		s.Total, s.Spam, s.Suspicious, s.Healthy, s.NeedsReview)
	for _, p := range report.Providers {
		if p.State != reputation.StateOK {
			fmt.Printf("note: provider %s degraded (%s)\n", p.Provider, p.State)
		}
	}
}
