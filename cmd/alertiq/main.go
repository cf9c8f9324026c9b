// Command alertiq processes alert emails: it polls Gmail for unread
// alerts, classifies each one with Gemini, notifies the responsible
// team, and records the outcome in a CSV audit log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alertiq/internal/bootstrap"
	"alertiq/internal/server"
	"alertiq/internal/shared/config"
	"alertiq/internal/shared/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		mode        = flag.String("mode", "once", "run mode: once, daemon, test, stats, cleanup")
		once        = flag.Bool("once", false, "shorthand for --mode once")
		daemon      = flag.Bool("daemon", false, "shorthand for --mode daemon")
		test        = flag.Bool("test", false, "shorthand for --mode test")
		interval    = flag.Int("interval", 0, "override check interval in minutes")
		cleanupDays = flag.Int("cleanup-days", 90, "audit retention in days for cleanup mode")
		logLevel    = flag.String("log-level", "", "override log level: DEBUG, INFO, WARN, ERROR")
	)
	flag.Parse()

	*mode = resolveMode(*mode, *daemon, *once, *test)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *interval > 0 {
		cfg.CheckInterval = time.Duration(*interval) * time.Minute
	}

	if err := telemetry.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, *cleanupDays)
	if err != nil {
		telemetry.Error("startup.failed", map[string]any{"error": err.Error()})
		return 1
	}

	switch *mode {
	case "once":
		return runOnce(ctx, app)
	case "daemon":
		return runDaemon(ctx, app)
	case "test":
		return runTest(ctx, app)
	case "stats":
		return runStats(app)
	case "cleanup":
		return runCleanup(app, *cleanupDays)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		return 1
	}
}

// resolveMode applies the shorthand flags over --mode. When several are
// set, daemon wins over once, once over test.
func resolveMode(mode string, daemon, once, test bool) string {
	switch {
	case daemon:
		return "daemon"
	case once:
		return "once"
	case test:
		return "test"
	}
	return mode
}

func runOnce(ctx context.Context, app *bootstrap.App) int {
	if app.Scheduler.RunOnce(ctx) {
		return 0
	}
	return 1
}

func runDaemon(ctx context.Context, app *bootstrap.App) int {
	app.Scheduler.Start(ctx)

	var srv *server.Server
	if port := app.Config.StatusPort; port != "" {
		srv = server.New(port, app.Scheduler, func() any { return app.Store.Stats() })
		go func() {
			if err := srv.Start(); err != nil {
				telemetry.Error("server.failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	<-ctx.Done()
	telemetry.Info("daemon.shutdown", nil)

	app.Scheduler.Stop()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			telemetry.Warn("server.shutdown_failed", map[string]any{"error": err.Error()})
		}
	}
	return 0
}

func runTest(ctx context.Context, app *bootstrap.App) int {
	results := app.Processor.TestConnections(ctx)

	ok := true
	fmt.Println("Connectivity test:")
	for _, component := range []string{"email_reader", "classifier", "email_sender", "audit_store"} {
		status := "OK"
		if !results[component] {
			status = "FAILED"
			ok = false
		}
		fmt.Printf("  %-14s %s\n", component, status)
	}
	if !ok {
		return 1
	}
	return 0
}

func runStats(app *bootstrap.App) int {
	stats := app.Store.Stats()

	fmt.Println("Processing statistics:")
	fmt.Printf("  total processed: %d\n", stats.TotalProcessed)
	fmt.Printf("  successful:      %d\n", stats.Successful)
	fmt.Printf("  failed:          %d\n", stats.Failed)
	fmt.Printf("  success rate:    %.1f%%\n", stats.SuccessRate)
	fmt.Printf("  last 24h:        %d\n", stats.Recent24h)
	if len(stats.ActionBreakdown) > 0 {
		fmt.Println("  by action:")
		for action, count := range stats.ActionBreakdown {
			fmt.Printf("    %-8s %d\n", action, count)
		}
	}
	if len(stats.TeamDistribution) > 0 {
		fmt.Println("  by team:")
		for team, count := range stats.TeamDistribution {
			fmt.Printf("    %s: %d\n", team, count)
		}
	}
	return 0
}

func runCleanup(app *bootstrap.App, days int) int {
	removed := app.Store.Cleanup(days)
	fmt.Printf("removed %d audit records older than %d days\n", removed, days)
	return 0
}
