package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueToken(ctx context.Context, keyID, teamID, privateKey string, ttl time.Duration) (*models.IssuedToken, error) {
	args := m.Called(ctx, keyID, teamID, privateKey, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IssuedToken), args.Error(1)
}

func (m *MockTokenIssuer) ValidateCredentials(ctx context.Context, keyID, teamID, privateKey string) error {
	args := m.Called(ctx, keyID, teamID, privateKey)
	return args.Error(0)
}

func (m *MockTokenIssuer) TrialIssue(ctx context.Context, keyID, teamID, privateKey string) (*models.IssuedToken, error) {
	args := m.Called(ctx, keyID, teamID, privateKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IssuedToken), args.Error(1)
}

type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) Load(ctx context.Context) (*models.SigningCredential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SigningCredential), args.Error(1)
}

func (m *MockCredentialRepository) Save(ctx context.Context, cred *models.SigningCredential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialRepository) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCredentialRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockIntegrityService struct {
	mock.Mock
}

func (m *MockIntegrityService) Create(action string) string {
	args := m.Called(action)
	return args.String(0)
}

func (m *MockIntegrityService) Verify(action, token string) bool {
	args := m.Called(action, token)
	return args.Bool(0)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) Allow(ctx context.Context, scope constants.RateLimitScope, identifier string) (bool, int, time.Time, error) {
	args := m.Called(ctx, scope, identifier)
	return args.Bool(0), args.Int(1), args.Get(2).(time.Time), args.Error(3)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordTokenIssue(kind string, success bool, duration time.Duration, errorCode string) {
	m.Called(kind, success, duration, errorCode)
}

func (m *MockMetrics) RecordCredentialValidation(success bool, errorCode string) {
	m.Called(success, errorCode)
}

func (m *MockMetrics) RecordIntegrityRejection(action string) {
	m.Called(action)
}

func (m *MockMetrics) RecordRateLimitHit(scope string) {
	m.Called(scope)
}

func (m *MockMetrics) RecordStoreOperation(driver, operation string, duration time.Duration, err error) {
	m.Called(driver, operation, duration, err)
}

func (m *MockMetrics) SetCredentialStatus(authorized bool) {
	m.Called(authorized)
}
