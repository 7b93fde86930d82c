package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/rpcgate"
)

// loginResult is what the demo login method returns. The router issues a
// session only when ErrorCode is zero.
type loginResult struct {
	ErrorCode int    `xmlrpc:"ErrorCode"`
	Message   string `xmlrpc:"Message,omitempty"`
	User      string `xmlrpc:"User,omitempty"`
}

func registerDemoHandlers(b *rpcgate.Builder, cfg rpcgate.Config, password string) {
	b.HandleFunc("echo", func(_ context.Context, params []any) (any, error) {
		return map[string]any{"ErrorCode": 0, "params": params}, nil
	})

	b.HandleFunc("time.now", func(context.Context, []any) (any, error) {
		return time.Now().UTC(), nil
	})

	b.HandleFunc(cfg.Methods.Login, func(_ context.Context, params []any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("expected (user, password), got %d params", len(params))
		}
		user, _ := params[0].(string)
		pass, _ := params[1].(string)
		if user == "" || pass != password {
			return loginResult{ErrorCode: 1, Message: "invalid credentials"}, nil
		}
		return loginResult{ErrorCode: 0, User: user}, nil
	})

	b.HandleFunc(cfg.Methods.Logout, func(context.Context, []any) (any, error) {
		return loginResult{ErrorCode: 0}, nil
	})

	b.HandleFunc(cfg.Methods.KeepAlive, func(ctx context.Context, _ []any) (any, error) {
		info, _ := rpcgate.CallInfoFromContext(ctx)
		return map[string]any{"ErrorCode": 0, "verdict": info.Verdict.String()}, nil
	})

	b.HandleFunc("provisioning.heartbeat", func(context.Context, []any) (any, error) {
		return true, nil
	})
}
