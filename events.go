package rpcgate

import (
	"context"
	"time"

	"github.com/MrEthical07/rpcgate/internal/audit"
)

// Diagnostic event types.
const (
	EventNotFound         = "NotFound"
	EventNotLogin         = "Not Login"
	EventParseError       = "ParseError"
	EventMethodNotAllowed = "MethodNotAllowed"
	EventInvalidResponse  = "InvalidResponse"
	EventCallTimeout      = "CallTimeout"
	EventHandlerPanic     = "HandlerPanic"
	EventLoginThrottled   = "LoginThrottled"
)

type (
	// Event is a diagnostic record emitted for rejected or abnormal calls.
	Event = audit.Event
	// EventSink receives events from the router's dispatcher goroutine.
	EventSink = audit.Sink
	// EventSinkFunc adapts a function to EventSink.
	EventSinkFunc = audit.SinkFunc
	// NoOpSink discards events.
	NoOpSink = audit.NoOpSink
	// ChannelSink buffers events in a channel.
	ChannelSink = audit.ChannelSink
	// JSONWriterSink writes events as JSON lines.
	JSONWriterSink = audit.JSONWriterSink
	// SlogSink logs events through a slog.Logger.
	SlogSink = audit.SlogSink
)

var (
	NewChannelSink    = audit.NewChannelSink
	NewJSONWriterSink = audit.NewJSONWriterSink
)

func (s *Server) emit(ctx context.Context, typ string, call Call, status int, err error) {
	if s.events == nil {
		return
	}
	ev := Event{
		Timestamp:  time.Now().UTC(),
		Type:       typ,
		Method:     call.Method,
		Params:     call.Params,
		RemoteAddr: call.RemoteAddr,
		Status:     status,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.events.Emit(ctx, ev)
}
