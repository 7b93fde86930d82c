package rpcgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/rpcgate/session"
	"github.com/MrEthical07/rpcgate/xmlrpc"
)

// InvalidResponseMessage is the fault string sent when the validator rejects
// a serialized response.
const InvalidResponseMessage = "Invalid XML Response"

// LogoutCookieValue replaces the session cookie on logout.
const LogoutCookieValue = "0"

// minReusableTokenLen is the shortest request token a login will reuse
// instead of minting a new one.
const minReusableTokenLen = 6

type responseState struct {
	call     Call
	token    string
	hasToken bool
	result   any
	err      error
}

// respond serializes the completion, validates it, applies session cookie
// changes, and writes the response. It returns the HTTP status written.
func (s *Server) respond(ctx context.Context, w http.ResponseWriter, st responseState) int {
	var (
		body []byte
		err  error
	)
	if st.err != nil {
		s.metrics.Inc(MetricHandlerFault)
		body, err = s.codec.EncodeFault(st.err)
	} else {
		body, err = s.codec.EncodeResponse(st.result)
	}
	if err == nil && s.validator != nil {
		err = s.validator.Validate(body)
	}
	if err != nil {
		s.metrics.Inc(MetricValidationFailure)
		s.emit(ctx, EventInvalidResponse, st.call, http.StatusInternalServerError, err)
		s.logger.ErrorContext(ctx, "response rejected",
			slog.String("method", st.call.Method),
			slog.String("remote", st.call.RemoteAddr),
			slog.Any("err", err),
		)
		w.Header().Set("Content-Type", xmlrpc.ContentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(s.invalidBody)
		return http.StatusInternalServerError
	}

	if !s.policy.Bypassed(st.call.Method) {
		s.applySession(context.WithoutCancel(ctx), w.Header(), st)
	}

	w.Header().Set("Content-Type", s.codec.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return http.StatusOK
}

// applySession issues, revokes, or refreshes the session token for the
// login, logout, and keep-alive methods. Store failures are logged; the
// response itself is still sent.
func (s *Server) applySession(ctx context.Context, h http.Header, st responseState) {
	methods := s.cfg.Methods

	switch st.call.Method {
	case methods.Login:
		if !loginSucceeded(st.result, st.err) {
			return
		}

		token := st.token
		renewed := s.reusableToken(token)
		if !renewed {
			minted, err := session.NewToken()
			if err != nil {
				s.storeFailed(ctx, "mint", st.call, err)
				return
			}
			token = minted
		}
		if err := s.store.Set(ctx, token); err != nil {
			s.storeFailed(ctx, "set", st.call, errors.Join(ErrSessionIssueFailed, err))
			return
		}
		if renewed {
			s.metrics.Inc(MetricSessionRenewed)
		} else {
			s.metrics.Inc(MetricSessionIssued)
		}
		h.Add("Set-Cookie", s.sessionCookie(token).String())

	case methods.Logout:
		if !st.hasToken {
			return
		}
		if err := s.store.Delete(ctx, st.token); err != nil {
			s.storeFailed(ctx, "delete", st.call, err)
			return
		}
		s.metrics.Inc(MetricSessionRevoked)
		h.Add("Set-Cookie", s.sessionCookie(LogoutCookieValue).String())

	case methods.KeepAlive:
		if !st.hasToken || st.token == "" {
			return
		}
		if err := s.store.Set(ctx, st.token); err != nil {
			s.storeFailed(ctx, "refresh", st.call, err)
			return
		}
		s.metrics.Inc(MetricSessionRefreshed)
	}
}

// loginSucceeded reports whether a login completion carries ErrorCode 0.
func loginSucceeded(result any, err error) bool {
	if err != nil {
		return false
	}
	code, ok := resultErrorCode(result)
	return ok && code == 0
}

// reusableToken reports whether a login may keep the request token. The
// token must be long enough and survive Set-Cookie serialization unchanged,
// or the stored session and the issued cookie would disagree.
func (s *Server) reusableToken(token string) bool {
	if len(token) < minReusableTokenLen {
		return false
	}
	c := &http.Cookie{Name: s.cfg.Session.CookieName, Value: token}
	return c.Valid() == nil && !strings.ContainsAny(token, " ,")
}

func (s *Server) sessionCookie(value string) *http.Cookie {
	c := s.cfg.Cookie
	return &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
}

func (s *Server) storeFailed(ctx context.Context, op string, call Call, err error) {
	s.metrics.Inc(MetricSessionStoreError)
	s.logger.WarnContext(ctx, "session store operation failed",
		slog.String("op", op),
		slog.String("method", call.Method),
		slog.String("remote", call.RemoteAddr),
		slog.Any("err", err),
	)
}
