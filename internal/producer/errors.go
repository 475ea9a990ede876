package producer

import (
	"fmt"
	"strings"
)

const (
	// CredentialPrefix is the literal prefix every valid API credential
	// carries.
	CredentialPrefix = "AIza"

	// MinCredentialLen is the minimum accepted credential length.
	MinCredentialLen = 30
)

// ConfigReason identifies which credential check failed.
type ConfigReason string

const (
	ReasonCredentialMissing ConfigReason = "credential_missing"
	ReasonCredentialPrefix  ConfigReason = "credential_prefix"
	ReasonCredentialShort   ConfigReason = "credential_short"
)

// ConfigError is a fatal configuration problem. It is raised before any
// producer call is attempted and is never retried.
type ConfigError struct {
	Reason ConfigReason
}

func (e *ConfigError) Error() string {
	switch e.Reason {
	case ReasonCredentialMissing:
		return "configuration error: no API credential configured"
	case ReasonCredentialPrefix:
		return fmt.Sprintf("configuration error: credential does not start with %q", CredentialPrefix)
	case ReasonCredentialShort:
		return fmt.Sprintf("configuration error: credential shorter than %d characters", MinCredentialLen)
	default:
		return "configuration error: " + string(e.Reason)
	}
}

// ValidateCredential checks an API credential against the producer
// contract. The three failure modes are distinct so callers can report
// exactly which check failed.
func ValidateCredential(key string) error {
	if key == "" {
		return &ConfigError{Reason: ReasonCredentialMissing}
	}
	if !strings.HasPrefix(key, CredentialPrefix) {
		return &ConfigError{Reason: ReasonCredentialPrefix}
	}
	if len(key) < MinCredentialLen {
		return &ConfigError{Reason: ReasonCredentialShort}
	}
	return nil
}

// TransientError is a retryable upstream failure: rate limiting, server
// errors, or an empty response body.
type TransientError struct {
	Status  int
	Message string
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient producer error (status %d): %s", e.Status, e.Message)
	}
	return "transient producer error: " + e.Message
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	switch code {
	case 429:
		return true
	case 500, 502, 503, 504:
		return true
	default:
		return code >= 520 && code <= 524 // CDN-level errors
	}
}
