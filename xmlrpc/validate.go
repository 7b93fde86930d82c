package xmlrpc

import (
	"bytes"
	"fmt"
)

// ResponseValidator checks outgoing bodies against the methodResponse shape:
// exactly one of a single-param <params> or a <fault> struct carrying an int
// faultCode and a string faultString, with every value well-typed.
type ResponseValidator struct {
	// MaxBytes rejects bodies larger than this many bytes. Zero disables the check.
	MaxBytes int
}

// Validate returns nil when body is a well-formed methodResponse.
func (v ResponseValidator) Validate(body []byte) error {
	if v.MaxBytes > 0 && len(body) > v.MaxBytes {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, v.MaxBytes)
	}

	resp, err := parseResponse(bytes.NewReader(body))
	if err != nil {
		return err
	}
	if resp.Fault != nil {
		err := decodeFault(resp.Fault.Value)
		if _, ok := err.(*Fault); ok {
			return nil
		}
		return err
	}
	if _, err := resp.Params.Param[0].Value.decode(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
