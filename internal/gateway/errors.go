package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind classifies a remote failure for the retry manager.
type Kind int

const (
	// KindOffline means no network; the operation stays queued and is not
	// counted as a failure
	KindOffline Kind = iota
	// KindTransient means timeout, 5xx, or connection reset; retried with backoff
	KindTransient
	// KindConflict means an optimistic version check failed; routed to the
	// conflict resolver
	KindConflict
	// KindPermanent means 401/403/404/validation; never retried
	KindPermanent
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindOffline:
		return "offline"
	case KindTransient:
		return "transient"
	case KindConflict:
		return "conflict"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error is a classified remote failure.
type Error struct {
	Err        error
	Message    string
	Kind       Kind
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s error (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ConflictError reports a failed version check together with the remote
// side's current state, so the resolver can work without another fetch.
type ConflictError struct {
	RemoteUpdatedAt time.Time
	RemoteData      []byte
	RemoteVersion   uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: remote version %d", e.RemoteVersion)
}

// KindOf classifies an error using the taxonomy. Unclassified errors are
// treated as transient so they stay inside the retry budget.
func KindOf(err error) Kind {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return KindConflict
	}

	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}

	if isOffline(err) {
		return KindOffline
	}

	return KindTransient
}

// IsConflict reports whether err carries a version conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsConflict extracts the conflict detail, if any.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	ok := errors.As(err, &ce)
	return ce, ok
}

// IsNotFound reports whether err is a permanent 404. Deletes treat this as
// success: the remote record is already gone.
func IsNotFound(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.StatusCode == http.StatusNotFound
}

// classifyStatus maps an HTTP status to a failure kind.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound,
		status == http.StatusUnprocessableEntity,
		status == http.StatusBadRequest:
		return KindPermanent
	case status == http.StatusTooManyRequests:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}

// isOffline detects the no-network condition from transport errors.
func isOffline(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	return false
}

// isTimeout detects a per-operation timeout, treated as transient.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
