package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatepay/internal/models"
	"gatepay/internal/repositories"
	"gatepay/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
)

const DefaultTokenTTL = 15 * time.Minute

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Scopes      []string  `json:"scopes"`
}

type Service interface {
	// Issue exchanges client credentials for an access token.
	Issue(ctx context.Context, clientID, secret string) (*Token, error)
	// Parse validates a token and checks it has not been revoked.
	Parse(ctx context.Context, token string) (*models.ClientClaims, error)
	// Revoke invalidates every token issued to the client.
	Revoke(ctx context.Context, clientID string) error
}

type Config struct {
	Secret   []byte
	TokenTTL time.Duration
	Logger   *zap.Logger
}

type service struct {
	clients repositories.APIClientRepository
	secret  []byte
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(clients repositories.APIClientRepository, cfg Config) Service {
	if clients == nil {
		panic("api client repository is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &service{
		clients: clients,
		secret:  cfg.Secret,
		ttl:     cfg.TokenTTL,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// HashSecret bcrypt-hashes an API client secret for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

func (s *service) Issue(ctx context.Context, clientID, secret string) (*Token, error) {
	client, err := s.clients.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrAPIClientNotFound) {
			s.logger.Info("token request for unknown client", zap.String("client_id", clientID))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if client.Disabled {
		s.logger.Info("token request for disabled client", zap.String("client_id", clientID))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)); err != nil {
		s.logger.Info("token request with wrong secret", zap.String("client_id", clientID))
		return nil, ErrInvalidCredentials
	}

	scopes := models.ParseScopes(client.Scopes)
	token, expires, err := utils.GenerateToken(models.ClientClaims{
		ClientID:     client.ClientID,
		Scopes:       scopes,
		TokenVersion: client.TokenVersion,
	}, s.secret, s.ttl, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Token{AccessToken: token, TokenType: "Bearer", ExpiresAt: expires, Scopes: scopes}, nil
}

func (s *service) Parse(ctx context.Context, token string) (*models.ClientClaims, error) {
	claims, err := utils.ParseToken(token, s.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	client, err := s.clients.GetByClientID(ctx, claims.ClientID)
	if err != nil {
		if errors.Is(err, repositories.ErrAPIClientNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if client.Disabled || client.TokenVersion != claims.TokenVersion {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *service) Revoke(ctx context.Context, clientID string) error {
	return s.clients.IncrementTokenVersion(ctx, clientID)
}
