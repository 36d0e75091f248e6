package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// RoundTripper is the transport interface the middleware chain wraps.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc adapts a function to RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware intercepts an outbound request. It must call next exactly once
// unless it fails the request.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// ResponseHook sees every response before its body is read. Returning an
// error fails the call with that error.
type ResponseHook func(resp *http.Response) error

// chain wraps base so that middleware[0] runs first.
func chain(base RoundTripper, middleware []Middleware) RoundTripper {
	current := base
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return mw(r, next)
		})
	}
	return current
}

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// RequestID stamps a fresh UUID on requests that do not carry one.
func RequestID() Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if req.Header.Get(RequestIDHeader) == "" {
			req = req.Clone(req.Context())
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
		return next.RoundTrip(req)
	}
}

// RateLimit blocks each request until limiter grants a token or the request
// context ends.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if err := limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		return next.RoundTrip(req)
	}
}

// Credential reads the token from src for every request. A stored token
// becomes "Authorization: Bearer <token>"; ErrNoCredential or an empty token
// sends the request without an Authorization header.
func Credential(src oauth2.TokenSource) Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		tok, err := src.Token()
		if err != nil {
			if errors.Is(err, ErrNoCredential) {
				return next.RoundTrip(req)
			}
			return nil, fmt.Errorf("read credential: %w", err)
		}
		if tok == nil || tok.AccessToken == "" {
			return next.RoundTrip(req)
		}

		req = req.Clone(req.Context())
		tok.SetAuthHeader(req)
		return next.RoundTrip(req)
	}
}
