package rpcgate

import (
	"context"
	"io"
	"reflect"
)

// Handler services one XML-RPC method. Invoke runs on its own goroutine;
// ctx is cancelled when the call times out or the client goes away.
type Handler interface {
	Invoke(ctx context.Context, params []any) (any, error)
}

// HandlerFunc adapts a plain function to [Handler].
type HandlerFunc func(ctx context.Context, params []any) (any, error)

func (f HandlerFunc) Invoke(ctx context.Context, params []any) (any, error) {
	return f(ctx, params)
}

// ErrorCoder is implemented by handler results that carry an application
// error code. The login method issues a session only when the code is zero.
type ErrorCoder interface {
	ErrorCode() int
}

// Codec converts between request bodies and calls, and between handler
// results and response bodies.
type Codec interface {
	DecodeCall(r io.Reader) (method string, params []any, err error)
	EncodeResponse(value any) ([]byte, error)
	EncodeFault(err error) ([]byte, error)
	ContentType() string
}

// Validator checks a serialized response before it is sent. A non-nil
// error replaces the response with a fixed 500 fault.
type Validator interface {
	Validate(body []byte) error
}

// ValidatorFunc adapts a plain function to [Validator].
type ValidatorFunc func(body []byte) error

func (f ValidatorFunc) Validate(body []byte) error {
	return f(body)
}

// Call is one decoded request.
type Call struct {
	Method     string
	Params     []any
	RemoteAddr string
}

// resultErrorCode extracts the application error code from a handler
// result. Supported shapes, in order: ErrorCoder, map[string]any with an
// "ErrorCode" key, and a struct (or pointer to one) with an integer
// ErrorCode field.
func resultErrorCode(v any) (int, bool) {
	switch r := v.(type) {
	case nil:
		return 0, false
	case ErrorCoder:
		return r.ErrorCode(), true
	case map[string]any:
		return intValue(r["ErrorCode"])
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return 0, false
	}
	field := rv.FieldByName("ErrorCode")
	if !field.IsValid() {
		return 0, false
	}
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(field.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(field.Uint()), true
	}
	return 0, false
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
