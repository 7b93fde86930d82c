// Package xmlrpc implements the XML-RPC wire format used by the router:
// methodCall decoding, methodResponse and fault encoding, and a structural
// validator for outgoing responses.
//
// # Type mapping
//
//	<int>, <i4>            int
//	<i8>                   int64
//	<boolean>              bool
//	<string>, bare text    string
//	<double>               float64
//	<dateTime.iso8601>     time.Time
//	<base64>               []byte
//	<struct>               map[string]any
//	<array>                []any
//	<nil/>                 nil
//
// Go structs are encoded as <struct> using exported field names, overridable
// with an `xmlrpc:"name"` tag (`xmlrpc:"-"` skips the field, `,omitempty`
// skips zero values).
//
// # Architecture boundaries
//
// This package knows nothing about sessions, cookies, or HTTP. The router
// consumes it through the Codec and Validator interfaces only.
package xmlrpc
