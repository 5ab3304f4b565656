package webserv

import "fmt"

// ErrorCode is a validated HTTP status code in the range 100..599. Despite
// the name it represents every status code, not only error ones; the error
// predicates below carve out the ranges.
type ErrorCode int

// Status code categories, as ranges.
const (
	StatusInformationalMin = 100
	StatusInformationalMax = 199
	StatusSuccessMin       = 200
	StatusSuccessMax       = 299
	StatusRedirectionMin   = 300
	StatusRedirectionMax   = 399
	StatusClientErrorMin   = 400
	StatusClientErrorMax   = 499
	StatusServerErrorMin   = 500
	StatusServerErrorMax   = 599
)

// Common status codes used throughout the server.
const (
	StatusOK                          ErrorCode = 200
	StatusCreated                     ErrorCode = 201
	StatusNoContent                   ErrorCode = 204
	StatusMovedPermanently            ErrorCode = 301
	StatusFound                       ErrorCode = 302
	StatusSeeOther                    ErrorCode = 303
	StatusNotModified                 ErrorCode = 304
	StatusTemporaryRedirect           ErrorCode = 307
	StatusPermanentRedirect           ErrorCode = 308
	StatusBadRequest                  ErrorCode = 400
	StatusForbidden                   ErrorCode = 403
	StatusNotFound                    ErrorCode = 404
	StatusMethodNotAllowed            ErrorCode = 405
	StatusRequestTimeout              ErrorCode = 408
	StatusPayloadTooLarge             ErrorCode = 413
	StatusURITooLong                  ErrorCode = 414
	StatusRequestHeaderFieldsTooLarge ErrorCode = 431
	StatusInternalServerError         ErrorCode = 500
	StatusNotImplemented              ErrorCode = 501
	StatusGatewayTimeout              ErrorCode = 504
	StatusHTTPVersionNotSup           ErrorCode = 505
)

// NewErrorCode validates code and returns it as an ErrorCode, or an error if
// code falls outside the 100..599 range.
func NewErrorCode(code int) (ErrorCode, error) {
	if code < 100 || code > 599 {
		return 0, fmt.Errorf("webserv: status code out of range: %d", code)
	}
	return ErrorCode(code), nil
}

// IsInformational reports whether e is in the 1xx range.
func (e ErrorCode) IsInformational() bool { return e >= 100 && e <= 199 }

// IsSuccess reports whether e is in the 2xx range.
func (e ErrorCode) IsSuccess() bool { return e >= 200 && e <= 299 }

// IsRedirection reports whether e is in the 3xx range.
func (e ErrorCode) IsRedirection() bool { return e >= 300 && e <= 399 }

// IsClientError reports whether e is in the 4xx range.
func (e ErrorCode) IsClientError() bool { return e >= 400 && e <= 499 }

// IsServerError reports whether e is in the 5xx range.
func (e ErrorCode) IsServerError() bool { return e >= 500 && e <= 599 }

// IsError reports whether e is a 4xx or 5xx status.
func (e ErrorCode) IsError() bool { return e.IsClientError() || e.IsServerError() }

// reasonPhrases maps well-known status codes to their reason phrase. Codes
// not present here fall back to a generic phrase per category.
var reasonPhrases = map[ErrorCode]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	206: "Partial Content",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	413: "Payload Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// Reason returns the reason phrase for e, falling back to a generic phrase
// derived from its category if e is not in the well-known table.
func (e ErrorCode) Reason() string {
	if r, ok := reasonPhrases[e]; ok {
		return r
	}
	switch {
	case e.IsInformational():
		return "Informational"
	case e.IsSuccess():
		return "Success"
	case e.IsRedirection():
		return "Redirection"
	case e.IsClientError():
		return "Client Error"
	case e.IsServerError():
		return "Server Error"
	default:
		return "Unknown"
	}
}

// String implements fmt.Stringer.
func (e ErrorCode) String() string {
	return fmt.Sprintf("%d %s", int(e), e.Reason())
}
