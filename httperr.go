package webserv

import "fmt"

// Kind classifies a parse/protocol failure so a single boundary in the
// connection handler can turn it into the right synthesized error
// response. No error crosses that boundary: everything becomes a status
// code and a canned page.
type Kind uint8

const (
	KindNone Kind = iota
	KindMalformed
	KindUnsupportedMethod
	KindHeaderTooLarge
	KindBodyTooLarge
	KindChunkedEncoding
	KindMissingHost
	KindUnsupportedVersion
	KindUnsupportedTransferEncoding
	KindURITooLong
	KindNotFound
	KindForbidden
	KindInternal
	KindTimeout
	KindGatewayTimeout
)

var kindNames = map[Kind]string{
	KindNone:                        "none",
	KindMalformed:                   "malformed_request",
	KindUnsupportedMethod:           "unsupported_method",
	KindHeaderTooLarge:              "header_too_large",
	KindBodyTooLarge:                "body_too_large",
	KindChunkedEncoding:             "chunked_encoding_error",
	KindMissingHost:                 "missing_host",
	KindUnsupportedVersion:          "unsupported_version",
	KindUnsupportedTransferEncoding: "unsupported_transfer_encoding",
	KindURITooLong:                  "uri_too_long",
	KindNotFound:                    "not_found",
	KindForbidden:                   "forbidden",
	KindInternal:                    "internal",
	KindTimeout:                     "timeout",
	KindGatewayTimeout:              "gateway_timeout",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Status maps a Kind to the status code its synthesized response carries.
func (k Kind) Status() ErrorCode {
	switch k {
	case KindMalformed, KindChunkedEncoding:
		return StatusBadRequest
	case KindUnsupportedMethod, KindUnsupportedTransferEncoding:
		return StatusNotImplemented
	case KindHeaderTooLarge:
		return StatusRequestHeaderFieldsTooLarge
	case KindBodyTooLarge:
		return StatusPayloadTooLarge
	case KindMissingHost:
		return StatusBadRequest
	case KindUnsupportedVersion:
		return StatusHTTPVersionNotSup
	case KindURITooLong:
		return StatusURITooLong
	case KindNotFound:
		return StatusNotFound
	case KindForbidden:
		return StatusForbidden
	case KindTimeout:
		return StatusRequestTimeout
	case KindGatewayTimeout:
		return StatusGatewayTimeout
	default:
		return StatusInternalServerError
	}
}

// Error is the error value carried through the parser and connection
// handler: a Kind plus a human-readable detail, never a stack of wrapped
// exception types.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("webserv: %s", e.Kind)
	}
	return fmt.Sprintf("webserv: %s: %s", e.Kind, e.Detail)
}

// NewError constructs an *Error of the given kind.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// AsError reports whether err is a *Error, returning it. Wrapped errors
// are not unwrapped.
func AsError(err error) (*Error, bool) {
	he, ok := err.(*Error)
	return he, ok
}
