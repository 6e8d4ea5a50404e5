// Package apperrors provides SocketAPI's standardized error taxonomy.
//
// Every in-band failure is reported to the offending session as an
// `error` frame; every startup failure is a plain Go error the caller of
// registry.Register / app.New can choose to treat as fatal.
package apperrors

import "fmt"

// Code is a machine-readable error identifier, UPPER_SNAKE_CASE by
// convention.
type Code string

const (
	CodeUnknownEndpoint    Code = "UNKNOWN_ENDPOINT"
	CodeInvalidParameters  Code = "INVALID_PARAMETERS"
	CodeHandlerFault       Code = "HANDLER_FAULT"
	CodeMalformedFrame     Code = "MALFORMED_FRAME"
	CodeDuplicateName      Code = "DUPLICATE_NAME"
	CodeCyclicDependency   Code = "CYCLIC_DEPENDENCY"
	CodeUnregistrable      Code = "UNREGISTRABLE_HANDLER"
	CodeForbiddenPeer      Code = "FORBIDDEN_PEER"
	CodeMalformedIngress   Code = "MALFORMED_INGRESS_BODY"
)

// SocketError is a structured error carrying both a machine code and the
// exact wire message reported for in-band failures.
type SocketError struct {
	Code    Code
	Message string
	Details string
}

func (e *SocketError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UnknownAction builds the exact message for an action frame naming an
// unregistered action.
func UnknownAction(name string) *SocketError {
	return &SocketError{
		Code:    CodeUnknownEndpoint,
		Message: fmt.Sprintf("Action '%s' not found.", name),
	}
}

// UnknownChannel builds the exact message for a subscribe frame naming an
// unregistered channel.
func UnknownChannel(name string) *SocketError {
	return &SocketError{
		Code:    CodeUnknownEndpoint,
		Message: fmt.Sprintf("Channel '%s' not found.", name),
	}
}

// InvalidParameters builds the exact message for a validation failure
// against the named endpoint (action or channel).
func InvalidParameters(endpoint string, details string) *SocketError {
	return &SocketError{
		Code:    CodeInvalidParameters,
		Message: fmt.Sprintf("Invalid parameters for action '%s'", endpoint),
		Details: details,
	}
}

// HandlerFault wraps a panic or error raised by a user-supplied handler.
// The wire message is deliberately generic; Details carries the real cause
// for the server-side log line only.
func HandlerFault(endpoint string, cause error) *SocketError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &SocketError{
		Code:    CodeHandlerFault,
		Message: "Internal error while processing request.",
		Details: details,
	}
}

// MalformedFrame reports a top-level frame shape the session loop could
// not classify (missing/invalid type, missing channel where required).
func MalformedFrame(details string) *SocketError {
	return &SocketError{
		Code:    CodeMalformedFrame,
		Message: "Malformed frame.",
		Details: details,
	}
}

// DuplicateName is a registration-time error: two endpoints of the same
// kind registered under the same name.
func DuplicateName(kind, name string) error {
	return &SocketError{
		Code:    CodeDuplicateName,
		Message: fmt.Sprintf("duplicate %s name %q", kind, name),
	}
}

// CyclicDependency is a registration-time error: an endpoint's dependency
// graph contains a cycle.
func CyclicDependency(endpoint string) error {
	return &SocketError{
		Code:    CodeCyclicDependency,
		Message: fmt.Sprintf("cyclic dependency graph rooted at %q", endpoint),
	}
}

// ForbiddenPeer is returned by the broadcast ingress when the caller's
// address is not in the configured allow-list.
func ForbiddenPeer(addr string) *SocketError {
	return &SocketError{
		Code:    CodeForbiddenPeer,
		Message: fmt.Sprintf("peer %q is not permitted to use the broadcast ingress", addr),
	}
}
