package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedCall is returned when a request body is not a methodCall.
	ErrMalformedCall = errors.New("xmlrpc: malformed methodCall")
	// ErrMalformedResponse is returned when a body is not a methodResponse.
	ErrMalformedResponse = errors.New("xmlrpc: malformed methodResponse")
)

type xmlMethodCall struct {
	XMLName    xml.Name   `xml:"methodCall"`
	MethodName string     `xml:"methodName"`
	Params     []xmlParam `xml:"params>param"`
}

type xmlMethodResponse struct {
	XMLName xml.Name   `xml:"methodResponse"`
	Params  *xmlParams `xml:"params"`
	Fault   *xmlParam  `xml:"fault"`
}

type xmlParams struct {
	Param []xmlParam `xml:"param"`
}

type xmlParam struct {
	Value xmlValue `xml:"value"`
}

type xmlValue struct {
	Int      *string    `xml:"int"`
	I4       *string    `xml:"i4"`
	I8       *string    `xml:"i8"`
	Boolean  *string    `xml:"boolean"`
	String   *string    `xml:"string"`
	Double   *string    `xml:"double"`
	DateTime *string    `xml:"dateTime.iso8601"`
	Base64   *string    `xml:"base64"`
	Struct   *xmlStruct `xml:"struct"`
	Array    *xmlArray  `xml:"array"`
	Nil      *struct{}  `xml:"nil"`
	Text     string     `xml:",chardata"`
}

type xmlStruct struct {
	Members []xmlMember `xml:"member"`
}

type xmlMember struct {
	Name  string   `xml:"name"`
	Value xmlValue `xml:"value"`
}

type xmlArray struct {
	Values []xmlValue `xml:"data>value"`
}

// DecodeCall parses a methodCall from r.
func DecodeCall(r io.Reader) (string, []any, error) {
	var call xmlMethodCall
	if err := xml.NewDecoder(r).Decode(&call); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedCall, err)
	}

	method := strings.TrimSpace(call.MethodName)
	if method == "" {
		return "", nil, fmt.Errorf("%w: empty methodName", ErrMalformedCall)
	}

	params := make([]any, 0, len(call.Params))
	for i, p := range call.Params {
		v, err := p.Value.decode()
		if err != nil {
			return "", nil, fmt.Errorf("%w: param %d: %v", ErrMalformedCall, i, err)
		}
		params = append(params, v)
	}
	return method, params, nil
}

// DecodeResponse parses a methodResponse from r. A fault response is
// returned as a *Fault error.
func DecodeResponse(r io.Reader) (any, error) {
	resp, err := parseResponse(r)
	if err != nil {
		return nil, err
	}
	if resp.Fault != nil {
		return nil, decodeFault(resp.Fault.Value)
	}
	v, err := resp.Params.Param[0].Value.decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return v, nil
}

func parseResponse(r io.Reader) (*xmlMethodResponse, error) {
	var resp xmlMethodResponse
	if err := xml.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	switch {
	case resp.Fault != nil && resp.Params != nil:
		return nil, fmt.Errorf("%w: both params and fault present", ErrMalformedResponse)
	case resp.Fault == nil && resp.Params == nil:
		return nil, fmt.Errorf("%w: neither params nor fault present", ErrMalformedResponse)
	case resp.Params != nil && len(resp.Params.Param) != 1:
		return nil, fmt.Errorf("%w: expected exactly one param, got %d", ErrMalformedResponse, len(resp.Params.Param))
	}
	return &resp, nil
}

func decodeFault(v xmlValue) error {
	raw, err := v.decode()
	if err != nil {
		return fmt.Errorf("%w: fault: %v", ErrMalformedResponse, err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: fault is not a struct", ErrMalformedResponse)
	}
	code, ok := m["faultCode"].(int)
	if !ok {
		return fmt.Errorf("%w: fault missing int faultCode", ErrMalformedResponse)
	}
	msg, ok := m["faultString"].(string)
	if !ok {
		return fmt.Errorf("%w: fault missing string faultString", ErrMalformedResponse)
	}
	return &Fault{Code: code, String: msg}
}

func (v xmlValue) decode() (any, error) {
	switch {
	case v.Int != nil:
		return parseInt(*v.Int)
	case v.I4 != nil:
		return parseInt(*v.I4)
	case v.I8 != nil:
		return strconv.ParseInt(strings.TrimSpace(*v.I8), 10, 64)
	case v.Boolean != nil:
		switch strings.TrimSpace(*v.Boolean) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		default:
			return nil, fmt.Errorf("invalid boolean %q", *v.Boolean)
		}
	case v.String != nil:
		return *v.String, nil
	case v.Double != nil:
		return strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
	case v.DateTime != nil:
		return parseDateTime(*v.DateTime)
	case v.Base64 != nil:
		return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(*v.Base64), ""))
	case v.Struct != nil:
		out := make(map[string]any, len(v.Struct.Members))
		for _, m := range v.Struct.Members {
			mv, err := m.Value.decode()
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
			out[m.Name] = mv
		}
		return out, nil
	case v.Array != nil:
		out := make([]any, 0, len(v.Array.Values))
		for i, av := range v.Array.Values {
			decoded, err := av.decode()
			if err != nil {
				return nil, fmt.Errorf("array index %d: %w", i, err)
			}
			out = append(out, decoded)
		}
		return out, nil
	case v.Nil != nil:
		return nil, nil
	default:
		// An untyped <value> is a string.
		return v.Text, nil
	}
}

func parseInt(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{iso8601Form, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid dateTime.iso8601 %q", s)
}
