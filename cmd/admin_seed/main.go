// Command admin_seed creates an API client allowed to request tokens.
package main

import (
	"context"
	"errors"
	"fmt"

	"gatepay/internal/config"
	"gatepay/internal/logging"
	"gatepay/internal/models"
	"gatepay/internal/repositories"
	"gatepay/internal/services/auth"
	"gatepay/internal/utils"

	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()
	logger := logging.MustNewLogger("gatepay-admin-seed", config.GetEnv("ENV", "development"))
	defer func() { _ = logger.Sync() }()

	clientID := config.GetEnv("SEED_CLIENT_ID", "")
	if clientID == "" {
		logger.Fatal("SEED_CLIENT_ID must be set in environment")
	}
	secret := config.GetEnv("SEED_CLIENT_SECRET", "")
	generated := secret == ""
	if generated {
		secret = utils.MustGenerateSecureCode()
	}

	dbCfg, enabled := repositories.DBConfigFromEnv()
	if !enabled {
		logger.Fatal("DB_HOST must be set in environment")
	}
	db, err := repositories.Open(dbCfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("failed to close database connection", zap.Error(err))
			}
		}
	}()

	ctx := context.Background()
	clients := repositories.NewAPIClientRepository(db, nil)

	if _, err := clients.GetByClientID(ctx, clientID); err == nil {
		logger.Info("API client already exists", zap.String("client_id", clientID))
		return
	} else if !errors.Is(err, repositories.ErrAPIClientNotFound) {
		logger.Fatal("failed to look up API client", zap.Error(err))
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		logger.Fatal("failed to hash secret", zap.Error(err))
	}
	client := &models.APIClient{
		ClientID:     clientID,
		SecretHash:   hash,
		Name:         config.GetEnv("SEED_CLIENT_NAME", clientID),
		Scopes:       config.GetEnv("SEED_CLIENT_SCOPES", models.ScopePaymentsRead+" "+models.ScopePaymentsWrite),
		TokenVersion: 1,
	}
	if err := clients.Create(ctx, client); err != nil {
		logger.Fatal("failed to create API client", zap.Error(err))
	}

	logger.Info("API client created", zap.String("client_id", clientID), zap.String("scopes", client.Scopes))
	if generated {
		// Printed once; only the hash is stored.
		fmt.Printf("client_secret=%s\n", secret)
	}
}
