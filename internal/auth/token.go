package auth

import (
	"fmt"

	"golang.org/x/oauth2"

	"github.com/semmy-space/shelf/internal/secrets"
	"github.com/semmy-space/shelf/internal/transport"
)

// TokenKey is the store key holding the API credential.
const TokenKey = "token"

// CredentialSource implements oauth2.TokenSource over the encrypted store.
// Every call reads the store again, so a login or logout is picked up by the
// next request without rebuilding any client.
type CredentialSource struct {
	store *secrets.SecureStore
}

// NewCredentialSource creates a source reading TokenKey from store.
func NewCredentialSource(store *secrets.SecureStore) *CredentialSource {
	return &CredentialSource{store: store}
}

// Token implements oauth2.TokenSource.Token().
// Returns transport.ErrNoCredential when nothing usable is stored.
func (c *CredentialSource) Token() (*oauth2.Token, error) {
	value, ok := c.store.GetString(TokenKey)
	if !ok || value == "" {
		return nil, transport.ErrNoCredential
	}

	return &oauth2.Token{
		AccessToken: value,
		TokenType:   "Bearer",
	}, nil
}

// Present reports whether a credential is stored.
func (c *CredentialSource) Present() bool {
	_, err := c.Token()
	return err == nil
}

// Save stores the token issued by a successful login.
func (c *CredentialSource) Save(token string) error {
	if err := c.store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Clear removes the stored token (used by logout).
func (c *CredentialSource) Clear() error {
	if err := c.store.Remove(TokenKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
