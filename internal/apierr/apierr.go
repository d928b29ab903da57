// Package apierr implements the error-kind-to-HTTP-status taxonomy and
// RFC 7807 problem+json serialization.
package apierr

import (
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
)

// Kind classifies a failure the way spec.md §7 requires.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindJSON         Kind = "BAD_REQUEST"
	KindAuth         Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindUpstream     Kind = "UPSTREAM"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindTooLarge     Kind = "TOO_LARGE"
	KindInternal     Kind = "INTERNAL"
)

type mapping struct {
	status int
	title  string
}

var kindMappings = map[Kind]mapping{
	KindValidation:  {http.StatusUnprocessableEntity, "Validation failed"},
	KindJSON:        {http.StatusBadRequest, "Malformed request body"},
	KindAuth:        {http.StatusUnauthorized, "Missing or invalid credential"},
	KindForbidden:   {http.StatusForbidden, "Forbidden"},
	KindNotFound:    {http.StatusNotFound, "Not found"},
	KindConflict:    {http.StatusConflict, "Conflict"},
	KindUpstream:    {http.StatusBadGateway, "Upstream error"},
	KindRateLimited: {http.StatusTooManyRequests, "Rate limited"},
	KindTooLarge:    {http.StatusRequestEntityTooLarge, "Payload too large"},
	KindInternal:    {http.StatusInternalServerError, "Internal error"},
}

// Error is the single error type returned by handlers; it carries enough
// structure to render a problem+json body.
type Error struct {
	Kind            Kind
	Detail          string
	Errors          []string
	Candidates      []string
	CandidatesTotal int
	cause           error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Detail + ": " + e.cause.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for e's Kind.
func (e *Error) Status() int {
	return kindMappings[e.Kind].status
}

// New constructs an Error of the given kind with a detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap constructs an Error of the given kind, wrapping cause with eris so
// the stack trace is preserved for logging.
func Wrap(kind Kind, cause error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, cause: eris.Wrap(cause, detail)}
}

// WithErrors attaches field-level validation messages.
func (e *Error) WithErrors(errs ...string) *Error {
	e.Errors = errs
	return e
}

// WithCandidates attaches a "did you mean" candidate list, e.g. for alias
// conflicts or fuzzy catalog lookups.
func (e *Error) WithCandidates(total int, candidates ...string) *Error {
	e.CandidatesTotal = total
	e.Candidates = candidates
	return e
}

// Problem is the RFC 7807 wire shape.
type Problem struct {
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Status          int      `json:"status"`
	Code            Kind     `json:"code"`
	Detail          string   `json:"detail"`
	RequestID       string   `json:"requestId"`
	Errors          []string `json:"errors,omitempty"`
	Candidates      []string `json:"candidates,omitempty"`
	CandidatesTotal int      `json:"candidatesTotal,omitempty"`
}

// ToProblem renders e as a Problem for a given request id.
func (e *Error) ToProblem(requestID string) Problem {
	m := kindMappings[e.Kind]
	return Problem{
		Type:            "about:blank",
		Title:           m.title,
		Status:          m.status,
		Code:            e.Kind,
		Detail:          e.Detail,
		RequestID:       requestID,
		Errors:          e.Errors,
		Candidates:      e.Candidates,
		CandidatesTotal: e.CandidatesTotal,
	}
}

// As attempts to extract an *Error from err's chain, falling back to an
// Internal-kind wrapper if err is not already an *apierr.Error.
func As(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Wrap(KindInternal, err, "internal error")
}
