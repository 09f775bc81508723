// Package errs defines the error taxonomy of the aggregation core: kinds
// to be matched with errors.Is/As, not type switches on concrete HTTP or
// provider error structs. Every component maps its boundary errors into one
// of these before they leave the package.
package errs

import "errors"

// Kind is one of the seven error categories spec'd for the core.
type Kind int

const (
	// KindTransientSource: network timeout, 5xx, rate-limit. Retried
	// locally with bounded backoff, then the circuit breaker opens.
	KindTransientSource Kind = iota
	// KindPermanentSource: 4xx other than rate-limit, parse failure, bad
	// credentials. No retry; scraper skipped for this request.
	KindPermanentSource
	// KindProviderAuth: debrid provider returned unauthorized.
	KindProviderAuth
	// KindProviderQuota: debrid provider returned limit-exceeded.
	KindProviderQuota
	// KindProviderContent: magnet rejected, non-retryable hash.
	KindProviderContent
	// KindDataIntegrity: info-hash length wrong, missing required field.
	KindDataIntegrity
	// KindValidation: user preference vector malformed.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransientSource:
		return "transient_source"
	case KindPermanentSource:
		return "permanent_source"
	case KindProviderAuth:
		return "provider_auth"
	case KindProviderQuota:
		return "provider_quota"
	case KindProviderContent:
		return "provider_content"
	case KindDataIntegrity:
		return "data_integrity"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// errors.As without depending on which component produced it.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, errs.TransientSource) style sentinel checks by
// comparing Kind, since every concrete *Error instance is otherwise unique.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Cause == nil && t.Msg == ""
}

func New(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Msg: msg, Cause: cause}
}

// Sentinels usable with errors.Is(err, errs.TransientSource).
var (
	TransientSource = &Error{Kind: KindTransientSource}
	PermanentSource = &Error{Kind: KindPermanentSource}
	ProviderAuth    = &Error{Kind: KindProviderAuth}
	ProviderQuota   = &Error{Kind: KindProviderQuota}
	ProviderContent = &Error{Kind: KindProviderContent}
	DataIntegrity   = &Error{Kind: KindDataIntegrity}
	Validation      = &Error{Kind: KindValidation}
)

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, reporting ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
