package vendorapi

import (
	"sync"

	"climate_bridge/internal/models"
)

// Pool hands out one client per vendor account so every caller using the same
// credentials shares a single cached token. Clients live for the process
// lifetime; there is no eviction.
type Pool struct {
	cfg Config // template: Email/Password are filled per account

	mu      sync.Mutex
	clients map[string]*Client
}

// NewPool validates the shared settings once and returns an empty pool.
func NewPool(cfg Config) (*Pool, error) {
	// Probe the config by building a throwaway client.
	if _, err := New(cfg); err != nil {
		return nil, err
	}
	return &Pool{
		cfg:     cfg,
		clients: make(map[string]*Client),
	}, nil
}

// Get returns the client for the given credentials, creating it on first use.
func (p *Pool) Get(creds models.VendorCredentials) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[creds.Email]; ok {
		return client, nil
	}

	cfg := p.cfg
	cfg.Email = creds.Email
	cfg.Password = creds.Password
	client, err := New(cfg)
	if err != nil {
		return nil, err
	}
	p.clients[creds.Email] = client
	return client, nil
}

// Size reports how many accounts have live clients.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
