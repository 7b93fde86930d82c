package rpcgate

import "context"

type callInfoContextKey struct{}

// CallInfo describes the call a handler is servicing.
type CallInfo struct {
	Method       string
	RemoteAddr   string
	SessionToken string
	Verdict      Verdict
}

func withCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoContextKey{}, info)
}

// CallInfoFromContext returns the call metadata attached by the router to a
// handler's context.
func CallInfoFromContext(ctx context.Context) (CallInfo, bool) {
	if ctx == nil {
		return CallInfo{}, false
	}
	info, ok := ctx.Value(callInfoContextKey{}).(CallInfo)
	return info, ok
}
