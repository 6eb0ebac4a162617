// Package monitoring provides adapters to connect the domain's metrics interface with a concrete implementation like Prometheus.
package monitoring

import (
	"time"

	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// MetricsAdapter implements the domain's service.Metrics interface, sending metrics to a Prometheus backend.
// MetricsAdapter 实现了域的 service.Metrics 接口，将指标发送到 Prometheus 后端。
type MetricsAdapter struct {
	metrics *Metrics
}

// NewMetricsAdapter creates a new adapter that wraps a concrete Prometheus Metrics object.
// NewMetricsAdapter 创建一个包装具体 Prometheus Metrics 对象的新适配器。
func NewMetricsAdapter(metrics *Metrics) service.Metrics {
	return &MetricsAdapter{metrics: metrics}
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordTokenIssue 记录令牌签发。
func (a *MetricsAdapter) RecordTokenIssue(kind string, success bool, duration time.Duration, errorCode string) {
	a.metrics.TokenIssueRequests.WithLabelValues(kind, result(success), errorCode).Inc()
	a.metrics.TokenIssueLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCredentialValidation 记录凭证校验。
func (a *MetricsAdapter) RecordCredentialValidation(success bool, errorCode string) {
	a.metrics.CredentialValidations.WithLabelValues(result(success), errorCode).Inc()
}

// RecordIntegrityRejection 记录完整性校验失败。
func (a *MetricsAdapter) RecordIntegrityRejection(action string) {
	a.metrics.IntegrityRejections.WithLabelValues(action).Inc()
}

// RecordRateLimitHit 记录速率限制命中。
func (a *MetricsAdapter) RecordRateLimitHit(scope string) {
	a.metrics.RecordRateLimitHit(constants.RateLimitScope(scope))
}

// RecordStoreOperation 记录存储操作。
func (a *MetricsAdapter) RecordStoreOperation(driver, operation string, duration time.Duration, err error) {
	a.metrics.StoreOperations.WithLabelValues(driver, operation).Observe(duration.Seconds())
	if err != nil {
		a.metrics.StoreErrors.WithLabelValues(driver, operation).Inc()
	}
}

// SetCredentialStatus 更新凭证状态。
func (a *MetricsAdapter) SetCredentialStatus(authorized bool) {
	if authorized {
		a.metrics.CredentialAuthorized.Set(1)
		return
	}
	a.metrics.CredentialAuthorized.Set(0)
}
