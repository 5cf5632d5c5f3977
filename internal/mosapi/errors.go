package mosapi

import "fmt"

// Kind classifies a mosapi.Error into one of a small closed set of
// named failure modes, so callers can branch on failure kind without
// parsing error strings.
type Kind string

const (
	KindTransport           Kind = "transport"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindIPNotAllowed        Kind = "ip_not_allowed"
	KindRateLimited         Kind = "rate_limited"
	KindUnauthorized        Kind = "unauthorized"
	KindNotFound            Kind = "not_found"
	KindBadRequest          Kind = "bad_request"
	KindParse               Kind = "parse_error"
	KindGeneric             Kind = "mosapi_error"
)

// Error is the single error type returned by every layer of the MoSAPI
// client. Kind lets callers branch on failure mode without type
// assertions; Err carries the underlying cause, if any.
type Error struct {
	Kind       Kind
	Message    string
	ResultCode string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mosapi: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("mosapi: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// FromResultCode builds a BadRequest-kind error from a MoSAPI error
// envelope's resultCode, classifying the well-known date-validation
// codes with a clearer message than the raw code.
func FromResultCode(resultCode, message string) *Error {
	switch resultCode {
	case "2012":
		return &Error{Kind: KindBadRequest, ResultCode: resultCode, Message: "Date order is invalid: " + message}
	case "2013", "2014":
		return &Error{Kind: KindBadRequest, ResultCode: resultCode, Message: "Date syntax is invalid: " + message}
	default:
		return &Error{Kind: KindBadRequest, ResultCode: resultCode, Message: fmt.Sprintf("Bad Request (code: %s): %s", resultCode, message)}
	}
}
