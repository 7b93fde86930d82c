package rpcgate

import (
	"context"
	"fmt"

	"github.com/MrEthical07/rpcgate/internal/cookie"
	"github.com/MrEthical07/rpcgate/session"
)

// Verdict is the outcome of an authorization decision. The non-zero values
// record which rule admitted the call.
type Verdict uint8

const (
	VerdictUnauthorized Verdict = iota
	VerdictBypass
	VerdictDeveloper
	VerdictLogin
	VerdictSession
)

// Authorized reports whether the call may be dispatched.
func (v Verdict) Authorized() bool {
	return v != VerdictUnauthorized
}

func (v Verdict) String() string {
	switch v {
	case VerdictUnauthorized:
		return "unauthorized"
	case VerdictBypass:
		return "bypass"
	case VerdictDeveloper:
		return "developer"
	case VerdictLogin:
		return "login"
	case VerdictSession:
		return "session"
	default:
		return fmt.Sprintf("verdict(%d)", uint8(v))
	}
}

// Policy decides whether a call needs a session and, if so, whether the
// request carries a live one. It is immutable after construction and safe
// for concurrent use.
type Policy struct {
	store      session.Store
	bypass     map[string]struct{}
	login      string
	cookieName string
	developer  bool
}

// NewPolicy builds a Policy from cfg. The bypass list is copied.
func NewPolicy(cfg Config, store session.Store) *Policy {
	bypass := make(map[string]struct{}, len(cfg.Bypass.Methods))
	for _, m := range cfg.Bypass.Methods {
		bypass[m] = struct{}{}
	}
	return &Policy{
		store:      store,
		bypass:     bypass,
		login:      cfg.Methods.Login,
		cookieName: cfg.Session.CookieName,
		developer:  cfg.Developer.Enabled,
	}
}

// Bypassed reports whether method is exempt from session checks.
func (p *Policy) Bypassed(method string) bool {
	_, ok := p.bypass[method]
	return ok
}

// Authorize applies the decision rules in order; the first match wins:
//
//  1. bypassed methods
//  2. developer mode
//  3. the login method
//  4. a session cookie the store reports as live
//
// Only rule 4 touches the store, and its lookup slides the session's age.
// A store error yields VerdictUnauthorized together with the error.
func (p *Policy) Authorize(ctx context.Context, method string, jar cookie.Jar) (Verdict, error) {
	if p.Bypassed(method) {
		return VerdictBypass, nil
	}
	if p.developer {
		return VerdictDeveloper, nil
	}
	if method == p.login {
		return VerdictLogin, nil
	}

	token, ok := jar.Get(p.cookieName)
	if !ok || token == "" || p.store == nil {
		return VerdictUnauthorized, nil
	}

	live, err := p.store.Get(ctx, token)
	if err != nil {
		return VerdictUnauthorized, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	if !live {
		return VerdictUnauthorized, nil
	}
	return VerdictSession, nil
}
