package xmlrpc

import "io"

// ContentType is the MIME type of every XML-RPC body.
const ContentType = "text/xml"

// Codec adapts the package-level functions to the router's codec contract.
// The zero value is ready to use.
type Codec struct{}

func (Codec) DecodeCall(r io.Reader) (string, []any, error) {
	return DecodeCall(r)
}

func (Codec) EncodeResponse(value any) ([]byte, error) {
	return EncodeResponse(value)
}

func (Codec) EncodeFault(err error) ([]byte, error) {
	return EncodeFault(err)
}

func (Codec) ContentType() string {
	return ContentType
}
