// Package identity decides which chat room a request belongs to.
//
// The room key is whatever a Resolver returns. The default reads the
// client IP from a header set by the edge proxy, which any client can
// spoof; the session resolver signs a random subject into a cookie instead.
package identity

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Fallback is the identity used when nothing better can be derived.
const Fallback = "default"

// SessionCookie is the cookie that carries the signed session token.
const SessionCookie = "chat_session"

// Resolver maps a request to a client identity. It may write to the
// response (for example to issue a cookie) but never writes the body.
type Resolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) (string, error)
}

// HeaderResolver trusts a single request header, typically cf-connecting-ip.
type HeaderResolver struct {
	Header string
}

func NewHeaderResolver(header string) *HeaderResolver {
	return &HeaderResolver{Header: header}
}

func (h *HeaderResolver) Resolve(_ http.ResponseWriter, r *http.Request) (string, error) {
	if v := strings.TrimSpace(r.Header.Get(h.Header)); v != "" {
		return v, nil
	}
	return Fallback, nil
}

// RemoteAddrResolver uses the connection's remote address. Behind a proxy,
// run chi's RealIP middleware first so RemoteAddr holds the client.
type RemoteAddrResolver struct{}

func (RemoteAddrResolver) Resolve(_ http.ResponseWriter, r *http.Request) (string, error) {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return Fallback, nil
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return Fallback, nil
	}
	return addr, nil
}

// SessionResolver keeps the identity in an HS256-signed cookie. A request
// without a valid cookie gets a fresh random subject.
type SessionResolver struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionResolver(secret string, ttl time.Duration) *SessionResolver {
	return &SessionResolver{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *SessionResolver) Resolve(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if subject, err := s.parse(c.Value); err == nil {
			return subject, nil
		}
	}

	subject := uuid.NewString()
	token, expiresAt, err := s.issue(subject)
	if err != nil {
		return "", fmt.Errorf("could not sign session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return subject, nil
}

func (s *SessionResolver) issue(subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return token, expiresAt, err
}

func (s *SessionResolver) parse(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid session token")
	}
	return claims.Subject, nil
}
