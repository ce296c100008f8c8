package repositories

import (
	"context"
	"sync"

	"gatepay/internal/models"
)

// StaticAPIClients is an in-memory APIClientRepository for deployments
// without a database, seeded from configuration at startup.
type StaticAPIClients struct {
	mu      sync.RWMutex
	clients map[string]models.APIClient
}

var _ APIClientRepository = (*StaticAPIClients)(nil)

func NewStaticAPIClients(clients ...models.APIClient) *StaticAPIClients {
	s := &StaticAPIClients{clients: make(map[string]models.APIClient, len(clients))}
	for _, c := range clients {
		if c.TokenVersion == 0 {
			c.TokenVersion = 1
		}
		s.clients[c.ClientID] = c
	}
	return s
}

func (s *StaticAPIClients) Create(_ context.Context, client *models.APIClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if client.TokenVersion == 0 {
		client.TokenVersion = 1
	}
	s.clients[client.ClientID] = *client
	return nil
}

func (s *StaticAPIClients) GetByClientID(_ context.Context, clientID string) (*models.APIClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, ErrAPIClientNotFound
	}
	return &c, nil
}

func (s *StaticAPIClients) IncrementTokenVersion(_ context.Context, clientID string) error {
	return s.update(clientID, func(c *models.APIClient) { c.TokenVersion++ })
}

func (s *StaticAPIClients) SetDisabled(_ context.Context, clientID string, disabled bool) error {
	return s.update(clientID, func(c *models.APIClient) { c.Disabled = disabled })
}

func (s *StaticAPIClients) update(clientID string, fn func(*models.APIClient)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return ErrAPIClientNotFound
	}
	fn(&c)
	s.clients[clientID] = c
	return nil
}
