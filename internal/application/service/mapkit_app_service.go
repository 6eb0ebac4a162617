// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	domainService "github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

const (
	issueKindRender = "render"
	issueKindTrial  = "trial"
)

// MapKitAppService defines the use cases exposed over HTTP, gRPC and the CLI.
type MapKitAppService interface {
	// IssueRenderToken signs a one hour token from the stored credentials.
	IssueRenderToken(ctx context.Context) (*dto.TokenResponse, error)

	// TestCredentials signs a 60 second trial token from request-supplied credentials.
	TestCredentials(ctx context.Context, req *dto.TestCredentialsRequest) (*dto.TokenResponse, error)

	// SaveSettings persists credentials, validating them when all three are present.
	SaveSettings(ctx context.Context, req *dto.SaveSettingsRequest) (*dto.SettingsResponse, error)

	// GetSettings returns the stored settings without the private key.
	GetSettings(ctx context.Context) (*dto.SettingsResponse, error)

	// DeleteSettings wipes the stored credentials.
	DeleteSettings(ctx context.Context) error

	// CreateNonce returns an integrity token for the admin action.
	CreateNonce(ctx context.Context) *dto.NonceResponse
}

// mapKitAppServiceImpl is the concrete implementation of MapKitAppService
type mapKitAppServiceImpl struct {
	issuer    domainService.TokenIssuer
	store     repository.CredentialRepository
	integrity domainService.IntegrityService
	audit     domainService.AuditService
	metrics   domainService.Metrics
	tracer    trace.Tracer
	logger    logger.Logger
}

// NewMapKitAppService creates a new instance of MapKitAppService
func NewMapKitAppService(
	issuer domainService.TokenIssuer,
	store repository.CredentialRepository,
	integrity domainService.IntegrityService,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	log logger.Logger,
) MapKitAppService {
	if metrics == nil {
		metrics = domainService.NoopMetrics{}
	}
	return &mapKitAppServiceImpl{
		issuer:    issuer,
		store:     store,
		integrity: integrity,
		audit:     audit,
		metrics:   metrics,
		tracer:    otel.Tracer(constants.ServiceName + "/application"),
		logger:    log.WithComponent("mapkit_app_service"),
	}
}

// IssueRenderToken implements MapKitAppService.
func (s *mapKitAppServiceImpl) IssueRenderToken(ctx context.Context) (*dto.TokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "MapKitAppService.IssueRenderToken")
	defer span.End()
	start := time.Now()

	cred, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to load credentials", err)
		return nil, s.failIssue(ctx, span, issueKindRender, start, errors.ErrServiceUnavailable("credential store unavailable").WithCause(err), nil)
	}
	if !cred.Complete() {
		return nil, s.failIssue(ctx, span, issueKindRender, start, errors.ErrNotConfigured(), cred)
	}
	span.SetAttributes(attribute.String("mapkit.key_id", cred.KeyID))

	tok, err := s.issuer.IssueToken(ctx, cred.KeyID, cred.TeamID, cred.PrivateKey, constants.RenderTokenTTL)
	if err != nil {
		return nil, s.failIssue(ctx, span, issueKindRender, start, err, cred)
	}

	s.metrics.RecordTokenIssue(issueKindRender, true, time.Since(start), "")
	return dto.NewTokenResponse(tok), nil
}

func (s *mapKitAppServiceImpl) failIssue(ctx context.Context, span trace.Span, kind string, start time.Time, err error, cred *models.SigningCredential) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.RecordTokenIssue(kind, false, time.Since(start), string(errors.Code(err)))

	if kind == issueKindRender {
		s.logger.Warn(ctx, "Rendering token not issued", logger.Error(err))
		event := models.NewAuditEvent(constants.AuditEventRenderTokenFailed, models.AuditOutcomeFailure, err.Error()).
			WithErrorCode(errors.Code(err))
		if cred != nil {
			event.WithCredential(cred.KeyID, cred.TeamID)
		}
		s.logAudit(ctx, event)
	}
	return err
}

// TestCredentials implements MapKitAppService.
func (s *mapKitAppServiceImpl) TestCredentials(ctx context.Context, req *dto.TestCredentialsRequest) (*dto.TokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "MapKitAppService.TestCredentials")
	defer span.End()
	start := time.Now()

	if err := s.checkIntegrity(ctx, req.Nonce); err != nil {
		return nil, s.failIssue(ctx, span, issueKindTrial, start, err, nil)
	}

	tok, err := s.issuer.TrialIssue(ctx, req.KeyID, req.TeamID, req.PrivateKey)
	event := models.NewAuditEvent(constants.AuditEventCredentialsTested, models.AuditOutcomeSuccess, "credentials tested").
		WithActor(actorFrom(ctx)).
		WithCredential(req.KeyID, req.TeamID)
	if err != nil {
		if errors.IsCode(err, constants.ErrCodeSignature) {
			if mkErr, ok := errors.As(err); ok {
				mkErr.WithStatus(http.StatusUnprocessableEntity)
			}
		}
		event.Outcome = models.AuditOutcomeFailure
		event.Message = err.Error()
		event.WithErrorCode(errors.Code(err))
		s.logAudit(ctx, event)
		return nil, s.failIssue(ctx, span, issueKindTrial, start, err, nil)
	}
	s.logAudit(ctx, event)

	s.metrics.RecordTokenIssue(issueKindTrial, true, time.Since(start), "")
	return dto.NewTokenResponse(tok), nil
}

// SaveSettings implements MapKitAppService.
func (s *mapKitAppServiceImpl) SaveSettings(ctx context.Context, req *dto.SaveSettingsRequest) (*dto.SettingsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "MapKitAppService.SaveSettings")
	defer span.End()

	if err := s.checkIntegrity(ctx, req.Nonce); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cred := (&models.SigningCredential{
		PrivateKey: req.PrivateKey,
		KeyID:      req.KeyID,
		TeamID:     req.TeamID,
	}).Sanitized()
	cred.Status = models.CredentialStatusUnset

	var validationErr error
	if cred.Complete() {
		validationErr = s.issuer.ValidateCredentials(ctx, cred.KeyID, cred.TeamID, cred.PrivateKey)
		if validationErr == nil {
			cred.Status = models.CredentialStatusAuthorized
		} else {
			s.logger.Warn(ctx, "Saved credentials failed validation",
				logger.String("key_id", cred.KeyID),
				logger.String("team_id", cred.TeamID),
				logger.Error(validationErr),
			)
		}
		s.metrics.RecordCredentialValidation(validationErr == nil, string(errors.Code(validationErr)))
	}

	if err := s.store.Save(ctx, cred); err != nil {
		s.logger.Error(ctx, "Failed to save credentials", err)
		span.RecordError(err)
		return nil, errors.ErrServiceUnavailable("credential store unavailable").WithCause(err)
	}
	s.metrics.SetCredentialStatus(cred.Authorized())

	event := models.NewAuditEvent(constants.AuditEventSettingsSaved, models.AuditOutcomeSuccess, "settings saved").
		WithActor(actorFrom(ctx)).
		WithCredential(cred.KeyID, cred.TeamID)
	if validationErr != nil {
		event.Outcome = models.AuditOutcomeFailure
		event.Message = validationErr.Error()
		event.WithErrorCode(errors.Code(validationErr))
	}
	s.logAudit(ctx, event)

	s.logger.Info(ctx, "MapKit settings saved",
		logger.String("key_id", cred.KeyID),
		logger.String("status", string(cred.Status)),
	)

	return &dto.SettingsResponse{
		Settings:        cred.Redacted(),
		ValidationError: dto.NewErrorDTO(validationErr),
	}, nil
}

// GetSettings implements MapKitAppService.
func (s *mapKitAppServiceImpl) GetSettings(ctx context.Context) (*dto.SettingsResponse, error) {
	cred, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to load credentials", err)
		return nil, errors.ErrServiceUnavailable("credential store unavailable").WithCause(err)
	}
	return &dto.SettingsResponse{Settings: cred.Redacted()}, nil
}

// DeleteSettings implements MapKitAppService.
func (s *mapKitAppServiceImpl) DeleteSettings(ctx context.Context) error {
	if err := s.store.Delete(ctx); err != nil {
		s.logger.Error(ctx, "Failed to delete credentials", err)
		return errors.ErrServiceUnavailable("credential store unavailable").WithCause(err)
	}
	s.metrics.SetCredentialStatus(false)
	s.logAudit(ctx, models.NewAuditEvent(constants.AuditEventSettingsDeleted, models.AuditOutcomeSuccess, "settings deleted").
		WithActor(actorFrom(ctx)))
	s.logger.Info(ctx, "MapKit settings deleted")
	return nil
}

// CreateNonce implements MapKitAppService.
func (s *mapKitAppServiceImpl) CreateNonce(ctx context.Context) *dto.NonceResponse {
	return &dto.NonceResponse{
		Nonce:  s.integrity.Create(constants.IntegrityActionAdmin),
		Action: constants.IntegrityActionAdmin,
	}
}

func (s *mapKitAppServiceImpl) checkIntegrity(ctx context.Context, nonce string) error {
	if nonce != "" && s.integrity.Verify(constants.IntegrityActionAdmin, nonce) {
		return nil
	}
	s.metrics.RecordIntegrityRejection(constants.IntegrityActionAdmin)
	s.logger.Warn(ctx, "Request rejected by integrity check")
	s.logAudit(ctx, models.NewAuditEvent(constants.AuditEventIntegrityRejected, models.AuditOutcomeFailure, "invalid security token").
		WithActor(actorFrom(ctx)).
		WithErrorCode(constants.ErrCodeIntegrityCheckFailed))
	return errors.ErrIntegrityCheckFailed()
}

// logAudit never fails the caller; audit sink outages are logged only.
func (s *mapKitAppServiceImpl) logAudit(ctx context.Context, event *models.AuditEvent) {
	if s.audit == nil {
		return
	}
	ip, _ := ctx.Value(constants.ContextKeyClientIP).(string)
	traceID, _ := ctx.Value(constants.ContextKeyTraceID).(string)
	event.WithContextInfo(ip, traceID)
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Error(ctx, "Failed to record audit event", err, logger.String("event_type", string(event.Type)))
	}
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(constants.ContextKeyActor).(string); ok {
		return actor
	}
	return ""
}
