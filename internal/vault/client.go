package vault

import (
	"context"
	"fmt"
	"sync"

	"forex-entry-bot/config"

	"github.com/hashicorp/vault/api"
)

// Credentials are the broker API credentials stored in Vault.
type Credentials struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
}

// Client wraps the HashiCorp Vault client. When Vault is disabled the
// client degrades to an in-memory store so local runs work without a
// Vault server.
type Client struct {
	client *api.Client
	config config.VaultConfig

	mu    sync.RWMutex
	cache map[string]*Credentials
}

// NewClient creates a Vault client per the configuration.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	c := &Client{config: cfg, cache: make(map[string]*Credentials)}
	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	c.client = client
	return c, nil
}

// StoreCredentials writes broker credentials for a named account.
func (c *Client) StoreCredentials(ctx context.Context, account string, creds Credentials) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cache[account] = &creds
		c.mu.Unlock()
		return nil
	}

	data := map[string]interface{}{
		"data": map[string]interface{}{
			"api_key":    creds.APIKey,
			"secret_key": creds.SecretKey,
		},
	}
	if _, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(account), data); err != nil {
		return fmt.Errorf("failed to store credentials in vault: %w", err)
	}

	c.mu.Lock()
	c.cache[account] = &creds
	c.mu.Unlock()
	return nil
}

// GetCredentials reads broker credentials for a named account, serving
// from cache when possible.
func (c *Client) GetCredentials(ctx context.Context, account string) (*Credentials, error) {
	c.mu.RLock()
	if cached, ok := c.cache[account]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("credentials for %q not found and vault is disabled", account)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath(account))
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no credentials stored for %q", account)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected secret layout for %q", account)
	}

	creds := &Credentials{}
	if v, ok := data["api_key"].(string); ok {
		creds.APIKey = v
	}
	if v, ok := data["secret_key"].(string); ok {
		creds.SecretKey = v
	}

	c.mu.Lock()
	c.cache[account] = creds
	c.mu.Unlock()
	return creds, nil
}

func (c *Client) secretPath(account string) string {
	return fmt.Sprintf("%s/data/%s/%s", c.config.MountPath, c.config.SecretPath, account)
}
