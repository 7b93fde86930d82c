package xmlrpc

import (
	"errors"
	"strconv"
)

// Fault codes follow the xmlrpc-epi interoperability conventions.
const (
	FaultParse          = -32700
	FaultInvalidRequest = -32600
	FaultMethodNotFound = -32601
	FaultInvalidParams  = -32602
	FaultInternal       = -32603
	FaultApplication    = -32500
	FaultTransport      = -32300
)

// Fault is an XML-RPC level error carried inside a methodResponse envelope.
type Fault struct {
	Code   int
	String string
}

func (f *Fault) Error() string {
	return "xmlrpc fault " + strconv.Itoa(f.Code) + ": " + f.String
}

// NewFault returns a *Fault with the given code and message.
func NewFault(code int, msg string) *Fault {
	return &Fault{Code: code, String: msg}
}

// AsFault converts err into a *Fault. Errors that already wrap a *Fault are
// unwrapped; anything else becomes a FaultApplication carrying err's text.
func AsFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) && f != nil {
		return f
	}
	return &Fault{Code: FaultApplication, String: err.Error()}
}
