package models

import (
	"fmt"
	"time"
)

// OutcomeKind tags the result of one submission exchange.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeBusinessRejected
	OutcomeTransportFailure
	OutcomeServerError
	OutcomeRateLimited
	OutcomeAuthInvalid
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeBusinessRejected:
		return "business_rejected"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeServerError:
		return "server_error"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeAuthInvalid:
		return "auth_invalid"
	}
	return "unknown"
}

// Outcome is the tagged result of submitting one record.
type Outcome struct {
	Kind OutcomeKind

	NewToken   string        // Success
	Message    string        // BusinessRejected, ServerError, TransportFailure reason
	HTTPStatus int           // ServerError
	Wait       time.Duration // RateLimited

	// Responded is true when the last exchange reached the server.
	Responded bool
	// Interrupted is true when the context was cancelled before a final answer.
	Interrupted bool
}

// StatusText renders the outcome for the record's status column.
func (o Outcome) StatusText() string {
	switch o.Kind {
	case OutcomeSuccess:
		return StatusSuccess
	case OutcomeBusinessRejected:
		return StatusFailedPrefix + " - " + o.Message
	case OutcomeServerError:
		if o.HTTPStatus == 400 {
			if o.Message != "" {
				return StatusFailedPrefix + " - " + o.Message
			}
			return StatusFailedPrefix + " - 400 Bad Request"
		}
		if o.Message != "" {
			return fmt.Sprintf("%s - HTTP %d: %s", StatusFailedPrefix, o.HTTPStatus, o.Message)
		}
		return fmt.Sprintf("%s - HTTP %d", StatusFailedPrefix, o.HTTPStatus)
	case OutcomeAuthInvalid:
		return StatusFailedPrefix + " - Refresh token error"
	case OutcomeTransportFailure:
		return StatusFailedPrefix + " - " + o.Message
	case OutcomeRateLimited:
		return StatusFailedPrefix + " - Rate limited"
	}
	return StatusFailedPrefix
}
