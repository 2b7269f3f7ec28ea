package bulk

import (
	"github.com/rs/zerolog"
)

// StatusClass groups response statuses by operator-relevant cause.
type StatusClass string

const (
	// StatusClassOK is any 2xx response.
	StatusClassOK StatusClass = "ok"

	// StatusClassAuth is 401 or 403: blocked or missing credentials.
	StatusClassAuth StatusClass = "auth"

	// StatusClassInvalid is 400 or 404: the request itself is wrong or stale.
	StatusClassInvalid StatusClass = "invalid"

	// StatusClassRateLimit is 429.
	StatusClassRateLimit StatusClass = "rate_limit"

	// StatusClassOther is any other non-2xx response.
	StatusClassOther StatusClass = "other"

	// StatusClassFailed is a request that produced no response at all.
	StatusClassFailed StatusClass = "transport_error"
)

// ClassifyStatus maps an HTTP status code to its StatusClass.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return StatusClassOK
	case code == 401 || code == 403:
		return StatusClassAuth
	case code == 400 || code == 404:
		return StatusClassInvalid
	case code == 429:
		return StatusClassRateLimit
	default:
		return StatusClassOther
	}
}

// logLevel returns the severity a non-2xx class is logged at.
func (c StatusClass) logLevel() zerolog.Level {
	switch c {
	case StatusClassOK:
		return zerolog.DebugLevel
	case StatusClassAuth:
		return zerolog.ErrorLevel
	case StatusClassInvalid, StatusClassRateLimit, StatusClassFailed:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
