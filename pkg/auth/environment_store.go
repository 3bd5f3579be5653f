package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvServiceKey = "HIRAFETCH_SERVICE_KEY"
	EnvAuthMode   = "HIRAFETCH_AUTH_MODE"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and always answers as the default credential.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve builds a credential from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	key := os.Getenv(EnvServiceKey)
	if key == "" {
		return nil, ErrCredentialsNotFound
	}

	if name == "" {
		name = DefaultName
	}

	return &Credential{
		Name:         name,
		ServiceKey:   key,
		AuthMode:     os.Getenv(EnvAuthMode),
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential if the key variable is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if the key variable is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvServiceKey) != ""
}
