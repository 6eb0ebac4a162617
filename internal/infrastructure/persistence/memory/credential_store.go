// Package memory provides a process-local credential store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
)

var _ repository.CredentialRepository = (*CredentialStore)(nil)

// CredentialStore keeps the credential record in memory. It is lost on restart.
type CredentialStore struct {
	mu   sync.RWMutex
	cred models.SigningCredential
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

func (s *CredentialStore) Load(ctx context.Context) (*models.SigningCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.cred
	return &c, nil
}

func (s *CredentialStore) Save(ctx context.Context, cred *models.SigningCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = *cred
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = models.SigningCredential{}
	return nil
}

func (s *CredentialStore) Ping(ctx context.Context) error { return nil }
