package webdriver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wanmail/locate"
)

// Error codes shared by both protocol dialects.
const (
	CodeNoSuchElement   = "no such element"
	CodeStaleElement    = "stale element reference"
	CodeInvalidSelector = "invalid selector"
	CodeUnknownCommand  = "unknown command"
	CodeInvalidArgument = "invalid argument"
	CodeNoSuchSession   = "invalid session id"
	CodeTimeout         = "timeout"
	CodeJavascript      = "javascript error"
	CodeUnknown         = "unknown error"
)

// legacyCodes maps JSON Wire status numbers to W3C error codes.
var legacyCodes = map[int]string{
	6:  CodeNoSuchSession,
	7:  CodeNoSuchElement,
	9:  CodeUnknownCommand,
	10: CodeStaleElement,
	11: "element not interactable",
	12: "invalid element state",
	13: CodeUnknown,
	17: CodeJavascript,
	19: CodeInvalidSelector,
	21: CodeTimeout,
	23: "no such window",
	26: "unexpected alert open",
	27: "no such alert",
	28: "script timeout",
	32: CodeInvalidSelector,
}

// Error is an error reply from the remote end.
type Error struct {
	// Err is the W3C error code, e.g. "no such element". Legacy status
	// numbers are translated.
	Err        string
	Message    string
	Stacktrace string
	// HTTPCode is the HTTP status of the reply.
	HTTPCode int
	// LegacyCode is the JSON Wire status number, or 0 for W3C replies.
	LegacyCode int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "webdriver: " + e.Err
	}
	return fmt.Sprintf("webdriver: %s: %s", e.Err, e.Message)
}

// Is lets errors.Is match a stale element reference against locate.ErrStale.
func (e *Error) Is(target error) bool {
	return target == locate.ErrStale && e.Err == CodeStaleElement
}

// IsStale reports whether err is a stale element reference.
func IsStale(err error) bool {
	return errors.Is(err, locate.ErrStale)
}

// IsNoSuchElement reports whether err says the element was not found.
func IsNoSuchElement(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Err == CodeNoSuchElement
}

// decodeError reads an error reply in either dialect. It returns nil when
// buf does not hold an error.
func decodeError(buf []byte, httpCode int) *Error {
	var reply struct {
		Status *int
		Value  json.RawMessage
	}
	if err := json.Unmarshal(buf, &reply); err != nil {
		if httpCode >= 400 {
			return &Error{Err: CodeUnknown, Message: fmt.Sprintf("bad server reply status %d", httpCode), HTTPCode: httpCode}
		}
		return nil
	}

	var value struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		Stacktrace string `json:"stacktrace"`
	}
	// Value may be any JSON type on success.
	_ = json.Unmarshal(reply.Value, &value)

	if reply.Status != nil && *reply.Status != 0 {
		code, ok := legacyCodes[*reply.Status]
		if !ok {
			code = fmt.Sprintf("%s - %d", CodeUnknown, *reply.Status)
		}
		return &Error{Err: code, Message: value.Message, HTTPCode: httpCode, LegacyCode: *reply.Status}
	}
	if value.Error != "" {
		return &Error{Err: value.Error, Message: value.Message, Stacktrace: value.Stacktrace, HTTPCode: httpCode}
	}
	if httpCode >= 400 {
		return &Error{Err: CodeUnknown, Message: value.Message, HTTPCode: httpCode}
	}
	return nil
}
