// Command gatepayctl inspects and operates on gateway instruments and
// operations from the command line.
package main

import (
	"fmt"
	"os"

	"gatepay/internal/config"
	"gatepay/internal/gateways"
	"gatepay/internal/logging"
	"gatepay/internal/repositories"
	"gatepay/internal/repositories/cache"
	"gatepay/internal/services/payment"

	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	config.LoadEnv()

	rootCmd := newRootCmd(openService, os.Stdout)
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openService builds the payment service from the same environment the
// server reads. Actions are journaled when a database is configured.
func openService(cmd *cobraContext) (payment.Service, func(), error) {
	logger, err := logging.NewLogger("gatepayctl", config.GetEnv("ENV", "development"))
	if err != nil {
		return nil, nil, err
	}
	if !cmd.verbose {
		logger = zap.NewNop()
	}

	store, redisCache, err := cache.Open(cmd.ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){}
	if redisCache != nil {
		closers = append(closers, func() { _ = redisCache.Close() })
	}
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	gwCfg, err := gateways.LoadConfig()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	registry, err := gateways.New(gwCfg, gateways.Options{Logger: logger, Cache: store})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var journal payment.Journal = repositories.NoopJournal{}
	if dbCfg, enabled := repositories.DBConfigFromEnv(); enabled {
		db, err := repositories.Open(dbCfg, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
		journal = repositories.NewJournalRepository(db)
	}

	return payment.NewService(registry, journal, nil), cleanup, nil
}
