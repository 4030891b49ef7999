package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cropwatch-hq/agromet-harvester/internal/app"
	"github.com/cropwatch-hq/agromet-harvester/internal/config"
	"github.com/cropwatch-hq/agromet-harvester/internal/logger"
)

const dateFormat = "2006-01-02"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "backfill failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		startArg = flag.String("start", "", "first day to backfill (YYYY-MM-DD, inclusive)")
		endArg   = flag.String("end", "", "day after the last one to backfill (YYYY-MM-DD, defaults to today)")
	)
	flag.Parse()

	start, end, err := parseRange(*startArg, *endArg)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backfill, err := app.NewBackfill(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize backfill", "error", err)
		return err
	}

	if err := backfill.Run(ctx, start, end); err != nil {
		return fmt.Errorf("backfill run: %w", err)
	}

	return nil
}

func parseRange(startArg, endArg string) (time.Time, time.Time, error) {
	if startArg == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("-start is required (YYYY-MM-DD)")
	}
	start, err := time.ParseInLocation(dateFormat, startArg, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse -start: %w", err)
	}

	end := time.Now().UTC()
	if endArg != "" {
		end, err = time.ParseInLocation(dateFormat, endArg, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -end: %w", err)
		}
	}
	return start, end, nil
}
