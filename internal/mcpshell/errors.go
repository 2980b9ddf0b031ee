// Package mcpshell is the thin MCP/JSON-RPC tool adapter: it registers
// the tool names and resource URIs named in the external interface,
// translates their JSON arguments into engine calls, and maps whatever
// comes back — engine value or structured error — into the wire
// envelope. It owns no business logic; every decision lives in the
// engine packages (mail, reservation, contact, search).
package mcpshell

import (
	"errors"

	"github.com/dicklesworth/agentmail/internal/mail"
	"github.com/dicklesworth/agentmail/internal/reservation"
	"github.com/dicklesworth/agentmail/internal/store"
)

// wireError is the {code, message, data:{error:{type, message,
// recoverable, data}}} shape every tool-call failure renders as.
type wireError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    wireErrorData  `json:"data"`
}

type wireErrorData struct {
	Error wireErrorInner `json:"error"`
}

type wireErrorInner struct {
	Type        string         `json:"type"`
	Message     string         `json:"message"`
	Recoverable bool           `json:"recoverable"`
	Data        map[string]any `json:"data,omitempty"`
}

// toWireError maps any error returned by the engine packages to the
// canonical wire taxonomy. Unrecognized errors become a redacted
// internal error rather than leaking implementation detail.
func toWireError(err error) *wireError {
	if err == nil {
		return nil
	}

	var mailErr *mail.Error
	if errors.As(err, &mailErr) {
		return &wireError{
			Code:    -32000,
			Message: mailErr.Message,
			Data: wireErrorData{Error: wireErrorInner{
				Type:        string(mailErr.Type),
				Message:     mailErr.Message,
				Recoverable: mailErr.Type.Recoverable(),
				Data:        mailErr.Data,
			}},
		}
	}

	switch {
	case errors.Is(err, reservation.ErrInvalidArgument):
		return simpleWireError("INVALID_ARGUMENT", err.Error(), false)
	case errors.Is(err, store.ErrNotFound):
		return simpleWireError("NOT_FOUND", err.Error(), false)
	case errors.Is(err, store.ErrConflict):
		return simpleWireError("CONFLICT", err.Error(), false)
	case errors.Is(err, store.ErrTemporarilyLocked):
		return simpleWireError("TEMPORARILY_LOCKED", err.Error(), true)
	case errors.Is(err, store.ErrCircuitOpen):
		return simpleWireError("CIRCUIT_OPEN", err.Error(), true)
	case errors.Is(err, store.ErrDiskFull):
		return simpleWireError("DISK_FULL", err.Error(), false)
	default:
		return simpleWireError("INTERNAL", "internal error", false)
	}
}

func simpleWireError(errType, message string, recoverable bool) *wireError {
	return &wireError{
		Code:    -32000,
		Message: message,
		Data: wireErrorData{Error: wireErrorInner{
			Type:        errType,
			Message:     message,
			Recoverable: recoverable,
		}},
	}
}
