package auth

import (
	"context"
	"testing"
	"time"

	"gatepay/internal/models"
	"gatepay/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClients struct {
	mock.Mock
}

func (m *MockClients) Create(ctx context.Context, c *models.APIClient) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockClients) GetByClientID(ctx context.Context, id string) (*models.APIClient, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.APIClient)
	return c, args.Error(1)
}

func (m *MockClients) IncrementTokenVersion(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClients) SetDisabled(ctx context.Context, id string, disabled bool) error {
	return m.Called(ctx, id, disabled).Error(0)
}

func apiClient(t *testing.T, secret string) *models.APIClient {
	t.Helper()
	hash, err := HashSecret(secret)
	require.NoError(t, err)
	return &models.APIClient{
		ClientID:     "shop",
		SecretHash:   hash,
		Scopes:       "payments:read payments:write",
		TokenVersion: 1,
	}
}

func TestService_IssueAndParse(t *testing.T) {
	ctx := context.Background()
	clients := new(MockClients)
	client := apiClient(t, "s3cret")
	clients.On("GetByClientID", mock.Anything, "shop").Return(client, nil)

	svc := NewService(clients, Config{Secret: []byte("test-secret"), TokenTTL: time.Minute})

	tok, err := svc.Issue(ctx, "shop", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, []string{models.ScopePaymentsRead, models.ScopePaymentsWrite}, tok.Scopes)

	claims, err := svc.Parse(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "shop", claims.ClientID)
	assert.True(t, claims.HasScope(models.ScopePaymentsWrite))

	client.TokenVersion = 2
	_, err = svc.Parse(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestService_IssueRejects(t *testing.T) {
	ctx := context.Background()
	clients := new(MockClients)
	disabled := apiClient(t, "s3cret")
	disabled.ClientID = "old"
	disabled.Disabled = true
	clients.On("GetByClientID", mock.Anything, "shop").Return(apiClient(t, "s3cret"), nil)
	clients.On("GetByClientID", mock.Anything, "old").Return(disabled, nil)
	clients.On("GetByClientID", mock.Anything, "ghost").Return(nil, repositories.ErrAPIClientNotFound)

	svc := NewService(clients, Config{Secret: []byte("test-secret")})

	_, err := svc.Issue(ctx, "shop", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Issue(ctx, "old", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Issue(ctx, "ghost", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_ParseRejectsForeignTokens(t *testing.T) {
	ctx := context.Background()
	clients := new(MockClients)
	clients.On("GetByClientID", mock.Anything, "shop").Return(apiClient(t, "s3cret"), nil)

	issuer := NewService(clients, Config{Secret: []byte("one")})
	tok, err := issuer.Issue(ctx, "shop", "s3cret")
	require.NoError(t, err)

	verifier := NewService(clients, Config{Secret: []byte("two")})
	_, err = verifier.Parse(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.Parse(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	clients := new(MockClients)
	clients.On("GetByClientID", mock.Anything, "shop").Return(apiClient(t, "s3cret"), nil)

	svc := NewService(clients, Config{Secret: []byte("k"), TokenTTL: time.Minute}).(*service)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tok, err := svc.Issue(ctx, "shop", "s3cret")
	require.NoError(t, err)
	_, err = svc.Parse(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Revoke(t *testing.T) {
	clients := new(MockClients)
	clients.On("IncrementTokenVersion", mock.Anything, "shop").Return(nil).Once()

	svc := NewService(clients, Config{Secret: []byte("k")})
	require.NoError(t, svc.Revoke(context.Background(), "shop"))
	clients.AssertExpectations(t)
}
