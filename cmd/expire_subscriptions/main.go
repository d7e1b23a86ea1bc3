// Cron entry point: expires ended subscriptions and optionally reaps pending payments
// the gateway never confirmed.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"placarcerto-be/internal/bootstrap"
	"placarcerto-be/internal/config"
	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/pkg/database"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()

	reapPending := flag.Duration("reap-pending", cfg.Billing.PendingPaymentMaxAge, "fail pending payments older than this, 0 disables")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline for the run")
	dryRun := flag.Bool("dry-run", false, "only print the configuration and exit")
	flag.Parse()

	color.Cyan("⏰ Subscription sweep")
	color.White("  reap pending older than: %s", durationOrOff(*reapPending))
	if *dryRun {
		color.Yellow("  dry run, nothing changed")
		return
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.Debug)
	if err != nil {
		log.Fatalf("Error: Failed to connect to database: %v", err)
	}

	container, err := bootstrap.NewContainer(db, cfg, sysLogger, bootstrap.WithBlockingNotifications())
	if err != nil {
		log.Fatalf("Error: bootstrap failed: %v", err)
	}
	defer container.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	failed := false
	now := time.Now().UTC()

	expired, err := container.SweepService.ExpireSubscriptions(ctx, now)
	if err != nil {
		color.Red("✗ expire subscriptions: %v", err)
		failed = true
	}
	color.Green("✓ %d subscription(s) expired", expired)

	if *reapPending > 0 {
		reaped, err := container.SweepService.ReapStalePayments(ctx, now, *reapPending)
		if err != nil {
			color.Red("✗ reap pending payments: %v", err)
			failed = true
		}
		color.Green("✓ %d stale payment(s) failed, %d confirmed by the gateway, %d left pending",
			reaped.Failed, reaped.Completed, reaped.Skipped)
	}

	if failed {
		container.Close()
		os.Exit(1)
	}
}

func durationOrOff(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	return d.String()
}
