package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/auth"
	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/connection"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/messaging"
	"github.com/yourusername/linkedin-connect/internal/search"
	"github.com/yourusername/linkedin-connect/internal/stealth"
	"github.com/yourusername/linkedin-connect/internal/storage"
)

const (
	AppVersion = "1.0.0"
)

func main() {
	os.Exit(guard(run))
}

// guard turns a panic escaping fn into a logged failure and exit code 1. fn's own
// deferred cleanup has already run by then.
func guard(fn func() int) (code int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Errorw("Unexpected failure", "panic", r, "stack", string(debug.Stack()))
			fmt.Fprintln(os.Stderr, "Error: unexpected failure, see the log for details")
			code = 1
		}
	}()
	return fn()
}

// run executes the pipeline once and returns the process exit code. Deferred
// cleanup runs on every path, including interrupts.
func run() int {
	displayWarningBanner()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log, err := logger.Init(cfg.Logging.Level, cfg.Logging.ToFile, cfg.Logging.FilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush log file: %v\n", err)
		}
	}()

	log.Infow("LinkedIn connect started", "version", AppVersion)
	log.Warn("This tool is for EDUCATIONAL purposes only and violates LinkedIn's Terms of Service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infow("Initializing database...", "path", cfg.Database.Path)
	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Errorw("Failed to initialize database", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	printLedgerStats(ctx, store, log)

	log.Info("Launching browser with stealth mode...")
	session, err := browser.Launch(browser.Options{
		Headless:    cfg.Browser.Headless,
		ProfileDir:  cfg.Browser.ProfileDir,
		PageTimeout: cfg.GetPageLoadTimeout(),
		Typist: stealth.Typist{
			Speed:    cfg.GetTypingSpeed(),
			TypoRate: cfg.Stealth.TypoRate,
		},
	}, logger.Component("browser"))
	if err != nil {
		log.Errorw("Failed to launch browser", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warnw("Failed to close browser cleanly", "error", err)
		}
	}()

	page := session.Page()

	log.Info("Authenticating with LinkedIn...")
	authenticator := auth.NewAuthenticator(auth.NewRodLogin(page),
		cfg.GetSessionProbeTimeout(), cfg.GetLoginTimeout(), logger.Component("auth"))
	if !authenticator.Login(ctx, cfg.Credentials.Email, cfg.Credentials.Password) {
		log.Error("Authentication failed")
		fmt.Fprintln(os.Stderr, "Error: login failed, see the log for details")
		return 1
	}

	runID, err := store.StartRun(ctx)
	if err != nil {
		log.Errorw("Failed to start run", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log = log.With("run_id", runID)

	criteria := search.CriteriaFromConfig(cfg)

	log.Info("Phase 1: Searching for profiles...")
	scanner := search.NewScanner(
		search.NewRodResults(page, cfg.GetPageLoadTimeout()),
		logger.Component("search"),
		search.WithLedger(store),
		search.WithMaxPages(cfg.Search.MaxPages),
		search.WithPagePause(cfg.GetPagePauseRange()),
	)
	candidates := scanner.Scan(ctx, criteria)
	if len(candidates) == 0 {
		log.Warn("No profiles found in search")
	}

	log.Info("Phase 2: Sending connection requests...")
	breakMin, breakMax := cfg.GetBreakRange()
	pacer := stealth.NewPacer(stealth.PacerOptions{
		MinDelay:    cfg.GetMinRequestDelay(),
		MaxDelay:    cfg.GetMaxRequestDelay(),
		BreakEvery:  cfg.Delays.BreakEvery,
		BreakMin:    breakMin,
		BreakMax:    breakMax,
		BreakChance: cfg.Delays.BreakChance,
	})
	dispatcher := connection.NewDispatcher(
		connection.NewRodProfile(page, cfg.GetPageLoadTimeout()/3),
		messaging.NewComposer(logger.Component("messaging")),
		pacer,
		criteria.NoteTemplate,
		logger.Component("connection"),
		connection.WithLedger(store, runID),
		connection.WithDailyLimit(cfg.Limits.DailyRequests),
		connection.WithDryRun(cfg.Connection.DryRun),
	)
	outcome := dispatcher.Dispatch(ctx, candidates, criteria.MaxCandidates)

	// The run row is closed even after an interrupt
	finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.FinishRun(finishCtx, runID, len(candidates), outcome.Attempted, outcome.Succeeded); err != nil {
		log.Warnw("Failed to finish run", "error", err)
	}

	log.Infow("Run completed",
		"profiles_found", len(candidates),
		"attempted", outcome.Attempted,
		"succeeded", outcome.Succeeded,
	)

	fmt.Println()
	fmt.Printf("Total profiles found: %d\n", len(candidates))
	fmt.Printf("Successful requests sent: %d\n", outcome.Succeeded)
	if cfg.Connection.DryRun {
		fmt.Println("(dry run: no request was actually sent)")
	}

	if err := ctx.Err(); err != nil {
		log.Warn("Interrupted before completion")
		return 130
	}
	return 0
}

func printLedgerStats(ctx context.Context, store *storage.Store, log *zap.SugaredLogger) {
	stats, err := store.GetStats(ctx)
	if err != nil {
		log.Warnw("Failed to read database statistics", "error", err)
		return
	}

	last := "never"
	if !stats.LastSentAt.IsZero() {
		last = humanize.Time(stats.LastSentAt)
	}
	log.Infow("Database statistics",
		"total_runs", humanize.Comma(int64(stats.TotalRuns)),
		"total_profiles", humanize.Comma(int64(stats.TotalCandidates)),
		"total_requests", humanize.Comma(int64(stats.TotalSent)),
		"failed_requests", humanize.Comma(int64(stats.TotalFailed)),
		"requests_today", stats.SentToday,
		"last_request", last,
	)
}

// displayWarningBanner displays a warning about the tool's purpose
func displayWarningBanner() {
	banner := `
╔════════════════════════════════════════════════════════════════════════════╗
║                                                                            ║
║                    ⚠️  WARNING - EDUCATIONAL USE ONLY ⚠️                    ║
║                                                                            ║
║  This LinkedIn automation tool is a PROOF-OF-CONCEPT for educational       ║
║  and demonstration purposes ONLY.                                          ║
║                                                                            ║
║  ❌ This tool VIOLATES LinkedIn's Terms of Service                         ║
║  ❌ Using this on real accounts may result in ACCOUNT BAN                  ║
║                                                                            ║
║  ✅ Use ONLY on test/dummy accounts                                        ║
║                                                                            ║
╚════════════════════════════════════════════════════════════════════════════╝

Press Ctrl+C at any time to stop.
`
	fmt.Println(banner)

	// Only give the reader time when someone is actually watching
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return
	}
	fmt.Println("Starting in 5 seconds...")
	for i := 5; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(1 * time.Second)
	}
	fmt.Println()
}
