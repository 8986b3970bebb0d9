package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jordanlanch/rivalscope/config"
	"github.com/jordanlanch/rivalscope/pkg/logger"
	"github.com/jordanlanch/rivalscope/pkg/storage"
	"github.com/jordanlanch/rivalscope/pkg/testdata"
)

func main() {
	users := flag.Int("users", 5, "number of demo users")
	completed := flag.Int("researches", 3, "completed researches (with report) per user")
	pending := flag.Int("pending", 1, "pending auto-find researches per user")
	failed := flag.Int("failed", 1, "failed researches per user")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	advanced := flag.Bool("advanced", true, "include advanced-tier users")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, "console"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	if cfg.StorageDriver == "memory" {
		log.Fatal("seeding the memory store has no lasting effect; set STORAGE_DRIVER=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := storage.Open(ctx, cfg.StorageDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.Close()

	start := time.Now()
	result, err := testdata.Seed(ctx, store, testdata.SeedConfig{
		Users:                *users,
		ResearchesPerUser:    *completed,
		PendingPerUser:       *pending,
		FailedPerUser:        *failed,
		Seed:                 *seed,
		IncludeAdvancedUsers: *advanced,
	})
	if err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}

	for _, u := range result.Users {
		log.Info("demo user",
			zap.String("username", u.Username),
			zap.String("email", u.Email),
			zap.String("tier", string(u.SubscriptionTier)))
	}
	log.Info("seed complete",
		zap.Int("users", len(result.Users)),
		zap.Int("researches", result.Researches),
		zap.Int("reports", result.Reports),
		zap.String("password", testdata.DefaultPassword),
		zap.Duration("took", time.Since(start)))
}
