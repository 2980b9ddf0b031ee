package mail

import "fmt"

// ErrorType is the wire-level error taxonomy every tool-call failure is
// mapped into: {code, message, data:{error:{type, message, recoverable,
// data}}}. The shell (internal/mcpshell) owns the envelope; this package
// only needs to name the type and carry structured data.
type ErrorType string

const (
	ErrInvalidArgument    ErrorType = "INVALID_ARGUMENT"
	ErrInvalidThreadID    ErrorType = "INVALID_THREAD_ID"
	ErrInvalidTimestamp   ErrorType = "INVALID_TIMESTAMP"
	ErrInvalidLimit       ErrorType = "INVALID_LIMIT"
	ErrNotFound           ErrorType = "NOT_FOUND"
	ErrRecipientNotFound  ErrorType = "RECIPIENT_NOT_FOUND"
	ErrContactBlocked     ErrorType = "CONTACT_BLOCKED"
	ErrContactRequired    ErrorType = "CONTACT_REQUIRED"
	ErrNoRecipients       ErrorType = "NO_RECIPIENTS"
	ErrDiskFull           ErrorType = "DISK_FULL"
	ErrCircuitOpen        ErrorType = "CIRCUIT_OPEN"
	ErrTemporarilyLocked  ErrorType = "TEMPORARILY_LOCKED"
)

// Recoverable reports whether callers should treat this error type as
// transient/expected rather than a hard failure worth a full stack trace
// in operator-facing logs.
func (t ErrorType) Recoverable() bool {
	switch t {
	case ErrTemporarilyLocked, ErrCircuitOpen, ErrDiskFull, ErrContactRequired:
		return true
	default:
		return false
	}
}

// Error is the structured error the messaging engine returns. It carries
// enough to populate the wire envelope without the engine knowing
// anything about JSON-RPC or HTTP.
type Error struct {
	Type    ErrorType
	Message string
	Data    map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func newError(t ErrorType, msg string, data map[string]any) *Error {
	return &Error{Type: t, Message: msg, Data: data}
}

func invalidArgument(format string, args ...any) *Error {
	return newError(ErrInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// recipientNotFound builds the RECIPIENT_NOT_FOUND payload: the names
// that failed to resolve, plus name-prefix suggestions gathered by the
// caller (already-registered agents whose name starts with the same
// text).
func recipientNotFound(unknown []string, suggestions map[string][]string) *Error {
	return newError(ErrRecipientNotFound, fmt.Sprintf("Unknown recipient(s): %v. Available agents: see suggested_tool_calls.", unknown), map[string]any{
		"unknown_local":       unknown,
		"suggested_tool_calls": suggestionCalls(suggestions),
	})
}

func suggestionCalls(suggestions map[string][]string) []map[string]any {
	var calls []map[string]any
	for name, candidates := range suggestions {
		if len(candidates) == 0 {
			continue
		}
		calls = append(calls, map[string]any{
			"tool":   "register_agent",
			"reason": fmt.Sprintf("%q not found; did you mean one of %v?", name, candidates),
		})
	}
	return calls
}

// contactBlockedError matches the absolute block_all refusal.
func contactBlockedError(blocked []string) *Error {
	return newError(ErrContactBlocked, fmt.Sprintf("Blocked by recipient contact policy: %v", blocked), map[string]any{
		"recipients_blocked": blocked,
	})
}

// contactRequiredError matches the remedial require-approval refusal,
// carrying a suggested handshake the caller can retry with.
func contactRequiredError(blocked []string, autoContactAttempted []string) *Error {
	remedies := []string{"request_contact", "macro_contact_handshake"}
	suggested := make([]map[string]any, 0, len(blocked))
	for _, name := range blocked {
		suggested = append(suggested, map[string]any{
			"tool":   "request_contact",
			"reason": fmt.Sprintf("approval required before messaging %q", name),
		})
	}
	return newError(ErrContactRequired, fmt.Sprintf("Contact approval required for: %v", blocked), map[string]any{
		"recipients_blocked":    blocked,
		"remedies":              remedies,
		"auto_contact_attempted": autoContactAttempted,
		"suggested_tool_calls":   suggested,
	})
}

func sizeViolationError(v *SizeViolation, total int64) *Error {
	return newError(ErrInvalidArgument, fmt.Sprintf("%s exceeds size limit: %d > %d bytes", v.Field, v.SizeBytes, v.LimitBytes), map[string]any{
		"field":       v.Field,
		"size_bytes":  total,
		"limit_bytes": v.LimitBytes,
	})
}
