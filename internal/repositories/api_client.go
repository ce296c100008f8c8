package repositories

import (
	"context"
	"errors"
	"fmt"

	"gatepay/internal/models"
	"gatepay/internal/repositories/cache"

	"gorm.io/gorm"
)

type APIClientRepository interface {
	Create(ctx context.Context, client *models.APIClient) error
	GetByClientID(ctx context.Context, clientID string) (*models.APIClient, error)
	// IncrementTokenVersion revokes every token issued to the client.
	IncrementTokenVersion(ctx context.Context, clientID string) error
	SetDisabled(ctx context.Context, clientID string, disabled bool) error
}

type apiClientRepository struct {
	db    *gorm.DB
	cache cache.Store
}

// NewAPIClientRepository creates the repository. store caches lookups made
// on every authenticated request and may be nil.
func NewAPIClientRepository(db *gorm.DB, store cache.Store) APIClientRepository {
	return &apiClientRepository{db: db, cache: store}
}

func apiClientKey(clientID string) string {
	return cache.GenerateKey("api_client", "client_id", clientID)
}

func (r *apiClientRepository) Create(ctx context.Context, client *models.APIClient) error {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		return fmt.Errorf("%w: create api client: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *apiClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.APIClient, error) {
	if r.cache != nil {
		var cached models.APIClient
		if found, err := r.cache.Get(ctx, apiClientKey(clientID), &cached); err == nil && found {
			return &cached, nil
		}
	}

	var client models.APIClient
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAPIClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get api client: %v", ErrDatabaseOperation, err)
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, apiClientKey(clientID), &client)
	}
	return &client, nil
}

func (r *apiClientRepository) IncrementTokenVersion(ctx context.Context, clientID string) error {
	return r.update(ctx, clientID, "token_version", gorm.Expr("token_version + 1"))
}

func (r *apiClientRepository) SetDisabled(ctx context.Context, clientID string, disabled bool) error {
	return r.update(ctx, clientID, "disabled", disabled)
}

func (r *apiClientRepository) update(ctx context.Context, clientID, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.APIClient{}).
		Where("client_id = ?", clientID).
		Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("%w: update api client: %v", ErrDatabaseOperation, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAPIClientNotFound
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, apiClientKey(clientID))
	}
	return nil
}
