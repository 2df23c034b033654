// Package protocol defines the JSON frames exchanged with clients and maps
// invocations onto the chat operations. Both transports speak it.
package protocol

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"time"
)

type Kind string

const (
	KindInvoke Kind = "invoke"
	KindResult Kind = "result"
	KindEvent  Kind = "event"
)

// Frame is one message on the wire. Invocations carry positional args,
// results echo the invocation id, events carry the event name in Method.
type Frame struct {
	ID     string            `json:"id,omitempty"`
	Kind   Kind              `json:"kind"`
	Method string            `json:"method,omitempty"`
	Args   []json.RawMessage `json:"args,omitempty"`
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *Error            `json:"error,omitempty"`
	At     *time.Time        `json:"at,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// EventFrame encodes a domain event with its arguments in wire order.
func EventFrame(e domain.Event) (Frame, error) {
	args, err := encodeArgs(e.Positional())
	if err != nil {
		return Frame{}, fmt.Errorf("event %s: %w", e.Name, err)
	}
	at := e.At
	return Frame{ID: e.ID, Kind: KindEvent, Method: string(e.Name), Args: args, At: &at}, nil
}

// InvokeFrame builds a client invocation.
func InvokeFrame(id string, method Method, args ...any) (Frame, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return Frame{}, fmt.Errorf("invoke %s: %w", method, err)
	}
	return Frame{ID: id, Kind: KindInvoke, Method: string(method), Args: encoded}, nil
}

func ResultFrame(id string, method string, result any) (Frame, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: id, Kind: KindResult, Method: method, Result: raw}, nil
}

// ErrorFrame never leaks internal error text: unknown errors become a
// generic failure.
func ErrorFrame(id string, method string, err error) Frame {
	return Frame{
		ID:     id,
		Kind:   KindResult,
		Method: method,
		Error:  &Error{Code: errors.Code(err), Message: errors.Message(err)},
	}
}

// DecodeResult unmarshals the result of a completed invocation.
func (f Frame) DecodeResult(v any) error {
	if f.Error != nil {
		return f.Error
	}
	if len(f.Result) == 0 {
		return nil
	}
	return json.Unmarshal(f.Result, v)
}

// DecodeArgs unmarshals positional arguments into targets, in order.
// The count must match exactly.
func (f Frame) DecodeArgs(targets ...any) error {
	if len(f.Args) != len(targets) {
		return fmt.Errorf("%w: %s expects %d arguments, got %d",
			errors.ErrInvalidArgument, f.Method, len(targets), len(f.Args))
	}
	for i, raw := range f.Args {
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return fmt.Errorf("%w: argument %d of %s: %v", errors.ErrInvalidArgument, i, f.Method, err)
		}
	}
	return nil
}

func encodeArgs(args []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}
