package service

import (
	"time"
)

// Metrics defines the interface for collecting business metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集业务指标的接口。
type Metrics interface {
	// RecordTokenIssue records one issuance attempt. kind is "render" or "trial".
	// RecordTokenIssue 记录一次令牌签发尝试。
	RecordTokenIssue(kind string, success bool, duration time.Duration, errorCode string)

	// RecordCredentialValidation records the outcome of a settings save validation.
	// RecordCredentialValidation 记录凭证校验结果。
	RecordCredentialValidation(success bool, errorCode string)

	// RecordIntegrityRejection records a request rejected for a bad nonce.
	// RecordIntegrityRejection 记录因 nonce 无效被拒绝的请求。
	RecordIntegrityRejection(action string)

	// RecordRateLimitHit records an event when a rate limit is triggered.
	// RecordRateLimitHit 记录触发速率限制的事件。
	RecordRateLimitHit(scope string)

	// RecordStoreOperation records the latency and error status of a credential store call.
	// RecordStoreOperation 记录凭证存储调用的延迟和错误状态。
	RecordStoreOperation(driver, operation string, duration time.Duration, err error)

	// SetCredentialStatus exposes whether the stored credentials are authorized.
	// SetCredentialStatus 更新凭证授权状态仪表盘。
	SetCredentialStatus(authorized bool)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) RecordTokenIssue(string, bool, time.Duration, string) {}
func (NoopMetrics) RecordCredentialValidation(bool, string) {}
func (NoopMetrics) RecordIntegrityRejection(string) {}
func (NoopMetrics) RecordRateLimitHit(string) {}
func (NoopMetrics) RecordStoreOperation(string, string, time.Duration, error) {}
func (NoopMetrics) SetCredentialStatus(bool) {}
