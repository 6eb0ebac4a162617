package bootstrap

import (
	"context"
	"time"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
)

// instrumentedStore records latency and errors of every store call.
type instrumentedStore struct {
	next    repository.CredentialRepository
	driver  string
	metrics service.Metrics
}

// InstrumentStore wraps store so each operation is reported to metrics under driver.
func InstrumentStore(store repository.CredentialRepository, driver string, metrics service.Metrics) repository.CredentialRepository {
	if metrics == nil {
		return store
	}
	return &instrumentedStore{next: store, driver: driver, metrics: metrics}
}

func (s *instrumentedStore) Load(ctx context.Context) (*models.SigningCredential, error) {
	start := time.Now()
	cred, err := s.next.Load(ctx)
	s.metrics.RecordStoreOperation(s.driver, "load", time.Since(start), err)
	return cred, err
}

func (s *instrumentedStore) Save(ctx context.Context, cred *models.SigningCredential) error {
	start := time.Now()
	err := s.next.Save(ctx, cred)
	s.metrics.RecordStoreOperation(s.driver, "save", time.Since(start), err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context) error {
	start := time.Now()
	err := s.next.Delete(ctx)
	s.metrics.RecordStoreOperation(s.driver, "delete", time.Since(start), err)
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
