package protocol

import (
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
)

const (
	CodeParseError     int64 = jsonrpc2.CodeParseError
	CodeInvalidRequest int64 = jsonrpc2.CodeInvalidRequest
	CodeMethodNotFound int64 = jsonrpc2.CodeMethodNotFound
	CodeInvalidParams  int64 = jsonrpc2.CodeInvalidParams
	CodeInternalError  int64 = jsonrpc2.CodeInternalError

	CodeUnavailable     int64 = -32001
	CodeNotConnected    int64 = -32002
	CodeMalformedOutput int64 = -32003
	CodeDownstream      int64 = -32004
)

// Fault is the typed error variant of every exchange with a specialist.
type Fault struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (f *Fault) Error() string {
	return f.Message
}

// Kind is a short stable name for the code, used in logs and metrics.
func (f *Fault) Kind() string {
	switch f.Code {
	case CodeParseError:
		return "parse_error"
	case CodeInvalidRequest:
		return "invalid_request"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeInvalidParams:
		return "invalid_params"
	case CodeUnavailable:
		return "unavailable"
	case CodeNotConnected:
		return "not_connected"
	case CodeMalformedOutput:
		return "malformed_output"
	case CodeDownstream:
		return "downstream"
	default:
		return "internal"
	}
}

func NewFault(code int64, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsFault returns err as a Fault, wrapping unknown errors as internal errors.
func AsFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{Code: CodeInternalError, Message: err.Error()}
}

// HasCode reports whether err carries a Fault with the given code.
func HasCode(err error, code int64) bool {
	var f *Fault
	return errors.As(err, &f) && f.Code == code
}

func (f *Fault) RPCError() *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: f.Code, Message: f.Message}
}

func FaultFromRPC(e *jsonrpc2.Error) *Fault {
	if e == nil {
		return nil
	}
	return &Fault{Code: e.Code, Message: e.Message}
}
