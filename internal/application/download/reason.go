package download

// Stage is the last gate a download request passed
type Stage int

const (
	StageUnauthenticated Stage = iota
	StageTokenValidated
	StageRightChecked
	StageBundleResolved
	StageURLIssued
)

// String returns the stage name used in logs
func (s Stage) String() string {
	switch s {
	case StageUnauthenticated:
		return "unauthenticated"
	case StageTokenValidated:
		return "token_validated"
	case StageRightChecked:
		return "right_checked"
	case StageBundleResolved:
		return "bundle_resolved"
	case StageURLIssued:
		return "url_issued"
	default:
		return "unknown"
	}
}

// Reason says why a download request was rejected. Callers may collapse several
// reasons into one response; the distinction stays available for logs and metrics.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoAuthorization
	ReasonNotAuthorized
	ReasonInsufficientRight
	ReasonInvariantViolation
	ReasonSignerFailure
)

// String returns the reason name used in logs
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoAuthorization:
		return "no_authorization"
	case ReasonNotAuthorized:
		return "not_authorized"
	case ReasonInsufficientRight:
		return "insufficient_right"
	case ReasonInvariantViolation:
		return "internal_invariant_violation"
	case ReasonSignerFailure:
		return "signer_failure"
	default:
		return "unknown"
	}
}

// ServerSide reports whether the rejection is a server fault rather than a caller fault
func (r Reason) ServerSide() bool {
	return r == ReasonInvariantViolation || r == ReasonSignerFailure
}

// Rejection is the error returned when a request fails a gate
type Rejection struct {
	Reason Reason
	// Stage is the last gate the request passed.
	Stage Stage
	// AppID is set for rights rejections so the caller can echo it.
	AppID string
	cause error
}

// Error implements the error interface
func (r *Rejection) Error() string {
	msg := "download rejected: " + r.Reason.String()
	if r.cause != nil {
		msg += ": " + r.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (r *Rejection) Unwrap() error {
	return r.cause
}

// NoAuthorization rejects a request that carries no bearer token
func NoAuthorization() *Rejection {
	return reject(ReasonNoAuthorization, StageUnauthenticated, nil)
}

func reject(reason Reason, stage Stage, cause error) *Rejection {
	return &Rejection{Reason: reason, Stage: stage, cause: cause}
}
