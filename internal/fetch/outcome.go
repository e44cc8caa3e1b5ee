// Package fetch implements the lightweight HTTP acquisition path: a
// single-attempt client with browser-like headers and a retrying wrapper
// that feeds proxy health back into the registry.
package fetch

import "encoding/json"

// OutcomeKind discriminates the tri-state result of one fetch attempt.
type OutcomeKind int

// Outcome kinds. Exactly one of body or error is populated per attempt.
const (
	// OutcomeSuccess means a 2xx response with a JSON body.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeGone means the resource legitimately does not exist (404).
	// Callers must not retry.
	OutcomeGone
	// OutcomeFailure covers network errors, timeouts and block statuses.
	OutcomeFailure
)

// Outcome is the result of a single fetch attempt.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	// Body is set only when Kind is OutcomeSuccess.
	Body json.RawMessage
	// Err is set only when Kind is OutcomeFailure.
	Err error
	// Retryable marks a failure worth another attempt (timeouts, connection
	// errors, 403/429/503).
	Retryable bool
	// ProxyAtFault marks a failure that should be scored against the proxy
	// the attempt went through.
	ProxyAtFault bool
}

func successOutcome(status int, body []byte) Outcome {
	return Outcome{Kind: OutcomeSuccess, StatusCode: status, Body: body}
}

func goneOutcome(status int) Outcome {
	return Outcome{Kind: OutcomeGone, StatusCode: status}
}

func failureOutcome(status int, err error, retryable, proxyAtFault bool) Outcome {
	return Outcome{
		Kind:         OutcomeFailure,
		StatusCode:   status,
		Err:          err,
		Retryable:    retryable,
		ProxyAtFault: proxyAtFault,
	}
}
