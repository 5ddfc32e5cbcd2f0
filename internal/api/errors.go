package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	// KindTransport: the request never produced a response.
	KindTransport ErrorKind = iota + 1
	// KindStatus: the server answered with a non-200 HTTP status.
	KindStatus
	// KindApplication: HTTP 200 with a failure code in the envelope.
	KindApplication
	// KindDecode: the response body was not a valid envelope.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindApplication:
		return "application"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

type Error struct {
	Kind    ErrorKind
	Op      string // e.g. "POST /api/v1/categories"
	Status  int    // HTTP status, 0 for transport failures
	Code    int    // envelope code, 0 when absent
	Message string // envelope message or response body excerpt
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case KindApplication:
		return fmt.Sprintf("%s: code %d: %s", e.Op, e.Code, e.Message)
	case KindDecode:
		return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text shown in alerts.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTransport:
		return "Could not reach the server. Check your connection and try again."
	case KindApplication, KindStatus:
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("The server rejected the request (HTTP %d).", e.Status)
	}
	return "The server sent an unexpected response."
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// UserMessage extracts a displayable message from any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}
