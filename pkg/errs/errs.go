// Package errs provides the error taxonomy used across the cluster state
// cache. It is a leaf package with no internal dependencies so that every
// other package (filestate, partition, access, oplock, bytelock, ...) can
// depend on it without creating import cycles.
package errs

import "fmt"

// Code identifies the kind of error that occurred. It is not a Go error type
// itself; it is carried inside CacheError so callers can branch on kind
// without type-asserting a specific struct per error.
type Code int

const (
	// SharingViolation indicates a share-mode intersection failed.
	SharingViolation Code = iota + 1

	// FileExists indicates a CREATE disposition on an already-open file.
	FileExists

	// AccessDenied indicates an impersonation or ACL-equivalent failure, or
	// a persistent cluster error surfaced to the caller.
	AccessDenied

	// ExistingOpLock indicates an oplock is already present and incompatible
	// with the one being added.
	ExistingOpLock

	// LockConflict indicates a byte-range lock overlaps with a different
	// owner's lock.
	LockConflict

	// NotLocked indicates a remove of a non-existent byte-range lock.
	NotLocked

	// DeferFailed indicates the deferred-request queue rejected a request.
	DeferFailed

	// OplockBreakTimeout indicates a break did not acknowledge in time.
	OplockBreakTimeout

	// ClusterTransient indicates task dispatch failed transiently (owner
	// changed mid-flight, interrupted wait). Retried once by the runtime
	// before being surfaced.
	ClusterTransient

	// ConfigInvalid indicates a startup-time configuration error.
	ConfigInvalid

	// Fatal indicates the partition map is unreachable; the cache declares
	// itself down until restart.
	Fatal
)

// String returns a human-readable name for the error code.
func (c Code) String() string {
	switch c {
	case SharingViolation:
		return "SharingViolation"
	case FileExists:
		return "FileExists"
	case AccessDenied:
		return "AccessDenied"
	case ExistingOpLock:
		return "ExistingOpLock"
	case LockConflict:
		return "LockConflict"
	case NotLocked:
		return "NotLocked"
	case DeferFailed:
		return "DeferFailed"
	case OplockBreakTimeout:
		return "OplockBreakTimeout"
	case ClusterTransient:
		return "ClusterTransient"
	case ConfigInvalid:
		return "ConfigInvalid"
	case Fatal:
		return "Fatal"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Reason is a sub-code attached to SharingViolation errors, per the grant
// policy table in spec §4.7.
type Reason int

const (
	// ReasonNone is used when no specific reason applies.
	ReasonNone Reason = iota
	// ReasonExclusive means the current holder's shared_access is NONE.
	ReasonExclusive
	// ReasonSharingMismatch means (S AND Q) != Q.
	ReasonSharingMismatch
	// ReasonWriteDisallowed means read/write requested while S has WRITE,
	// which is allowed but denies an oplock grant.
	ReasonWriteDisallowed
	// ReasonRequesterExclusive means the requester's shared_access is NONE.
	ReasonRequesterExclusive
)

func (r Reason) String() string {
	switch r {
	case ReasonExclusive:
		return "exclusive"
	case ReasonSharingMismatch:
		return "sharing mismatch"
	case ReasonWriteDisallowed:
		return "write disallowed"
	case ReasonRequesterExclusive:
		return "requester wants exclusive"
	default:
		return "none"
	}
}

// CacheError is the concrete error type returned by every operation in the
// cluster state cache's public API.
type CacheError struct {
	Code    Code
	Message string
	Path    string
	Reason  Reason
	Cause   error
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	base := e.Code.String()
	if e.Message != "" {
		base = fmt.Sprintf("%s: %s", base, e.Message)
	}
	if e.Path != "" {
		base = fmt.Sprintf("%s (path: %s)", base, e.Path)
	}
	if e.Cause != nil {
		base = fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As.
func (e *CacheError) Unwrap() error { return e.Cause }

// New creates a CacheError with the given code and message.
func New(code Code, message string) *CacheError {
	return &CacheError{Code: code, Message: message}
}

// NewSharingViolation creates a SharingViolation error with a reason.
func NewSharingViolation(path string, reason Reason) *CacheError {
	return &CacheError{
		Code:    SharingViolation,
		Message: "sharing mode disallows access",
		Path:    path,
		Reason:  reason,
	}
}

// NewFileExists creates a FileExists error for a CREATE on an open file.
func NewFileExists(path string) *CacheError {
	return &CacheError{Code: FileExists, Message: "file already open", Path: path}
}

// NewAccessDenied creates an AccessDenied error.
func NewAccessDenied(reason string) *CacheError {
	return &CacheError{Code: AccessDenied, Message: reason}
}

// NewExistingOpLock creates an ExistingOpLock error.
func NewExistingOpLock(path string) *CacheError {
	return &CacheError{Code: ExistingOpLock, Message: "oplock not available", Path: path}
}

// NewLockConflict creates a LockConflict error.
func NewLockConflict(path string) *CacheError {
	return &CacheError{Code: LockConflict, Message: "byte-range lock conflict", Path: path}
}

// NewNotLocked creates a NotLocked error.
func NewNotLocked(path string) *CacheError {
	return &CacheError{Code: NotLocked, Message: "no matching byte-range lock", Path: path}
}

// NewDeferFailed creates a DeferFailed error.
func NewDeferFailed(path, reason string) *CacheError {
	return &CacheError{Code: DeferFailed, Message: reason, Path: path}
}

// NewOplockBreakTimeout creates an OplockBreakTimeout error.
func NewOplockBreakTimeout(path string) *CacheError {
	return &CacheError{Code: OplockBreakTimeout, Message: "oplock break timed out", Path: path}
}

// NewClusterTransient wraps a transient cluster dispatch failure.
func NewClusterTransient(path string, cause error) *CacheError {
	return &CacheError{Code: ClusterTransient, Message: "task dispatch failed", Path: path, Cause: cause}
}

// NewConfigInvalid creates a ConfigInvalid error.
func NewConfigInvalid(message string) *CacheError {
	return &CacheError{Code: ConfigInvalid, Message: message}
}

// NewFatal wraps a fatal, unreachable-partition-map error.
func NewFatal(cause error) *CacheError {
	return &CacheError{Code: Fatal, Message: "partition map unreachable", Cause: cause}
}

// Is returns true if err carries the given code.
func Is(err error, code Code) bool {
	var ce *CacheError
	if ce = AsCacheError(err); ce == nil {
		return false
	}
	return ce.Code == code
}

// AsCacheError extracts a *CacheError from err, or nil if it isn't one.
func AsCacheError(err error) *CacheError {
	ce, _ := err.(*CacheError)
	return ce
}
