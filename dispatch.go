package rpcgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync/atomic"
)

type completion struct {
	value any
	err   error
}

// dispatch invokes every handler registered for call.Method on its own
// goroutine and returns the first completion. Completions arriving after the
// call has been answered are discarded and counted. When CallTimeout elapses
// first the call completes with ErrCallTimeout.
func (s *Server) dispatch(ctx context.Context, call Call) (any, error) {
	handlers := s.registry.Handlers(call.Method)
	if len(handlers) == 0 {
		return nil, ErrMethodNotFound
	}

	var cancel context.CancelFunc
	if timeout := s.cfg.Dispatch.CallTimeout; timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	var claimed atomic.Bool
	done := make(chan completion, 1)

	for _, h := range handlers {
		go func(h Handler) {
			value, err := s.invoke(ctx, call, h)
			if claimed.CompareAndSwap(false, true) {
				done <- completion{value: value, err: err}
				return
			}
			s.metrics.Inc(MetricCompletionDiscarded)
			s.logger.Debug("late handler completion discarded", slog.String("method", call.Method))
		}(h)
	}

	// Handlers that have not completed yet observe cancellation.
	defer cancel()

	select {
	case c := <-done:
		return c.value, c.err
	case <-ctx.Done():
	}

	if !claimed.CompareAndSwap(false, true) {
		// A handler completed concurrently with the deadline.
		c := <-done
		return c.value, c.err
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.metrics.Inc(MetricCallTimeout)
		s.emit(context.WithoutCancel(ctx), EventCallTimeout, call, http.StatusOK, ErrCallTimeout)
		s.logger.WarnContext(ctx, "call timed out",
			slog.String("method", call.Method),
			slog.String("remote", call.RemoteAddr),
			slog.Duration("timeout", s.cfg.Dispatch.CallTimeout),
		)
		return nil, ErrCallTimeout
	}
	return nil, fmt.Errorf("call abandoned: %w", context.Cause(ctx))
}

// invoke runs h and converts a panic into ErrHandlerPanic.
func (s *Server) invoke(ctx context.Context, call Call, h Handler) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.Inc(MetricHandlerPanic)
			s.emit(context.WithoutCancel(ctx), EventHandlerPanic, call, http.StatusOK, fmt.Errorf("%v", r))
			s.logger.ErrorContext(ctx, "handler panicked",
				slog.String("method", call.Method),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			value, err = nil, fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h.Invoke(ctx, call.Params)
}
