package directory

import (
	"context"
	"errors"
	"net"
	"net/url"

	"projecthub/pkg/circuitbreaker"
)

// ClassifyError 判断目录调用错误是否是暂时性的
// Returns: (isTransient, errorType)
func ClassifyError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	// 熔断器打开 - 暂时性，等熔断恢复
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return true, "circuit_open"
	}

	// 调用方取消 - 不是目录的问题
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 500 {
			return true, "server_error"
		}
		// 401/403 等通常是凭证问题，重试没有意义
		return false, "client_error"
	}

	// Network errors - 暂时性
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true, "network_error"
	}

	return false, "unknown_error"
}
