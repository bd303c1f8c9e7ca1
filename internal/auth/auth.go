// Package auth resolves request principals from signed session tokens and
// derives mutation capabilities from group membership.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/strata-cms/strata/pkg/contenttree"
	"github.com/strata-cms/strata/pkg/hypermedia"
)

// SessionCookie is the cookie the session token travels in when no
// Authorization header is present.
const SessionCookie = "strata_session"

// Sessions verifies session tokens and resolves them to principals. A request
// with no token, or a token that fails verification, resolves to the
// anonymous principal (nil).
type Sessions struct {
	Secret []byte
	Users  contenttree.UserService
	Log    hclog.Logger
}

// Resolve extracts and verifies the request's session token. Anonymous
// requests return (nil, nil); only user-service failures surface as errors.
func (s *Sessions) Resolve(r *http.Request) (*contenttree.Principal, error) {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return nil, nil
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil {
		s.Log.Debug("session token rejected", "error", err)
		return nil, nil
	}
	if claims.Subject == "" {
		return nil, nil
	}

	principal, err := s.Users.UserByName(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolving user %q: %w", claims.Subject, err)
	}
	return principal, nil
}

// Issue mints a session token for a username.
func (s *Sessions) Issue(username string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(s.Secret)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// GroupAuthorizer grants the full mutation capability set to members of the
// admin group. CanCreate additionally requires the schema to allow at least
// one child type; there is nothing to create otherwise.
type GroupAuthorizer struct {
	AdminGroup string
}

// Capabilities implements hypermedia.Authorizer.
func (a *GroupAuthorizer) Capabilities(p *contenttree.Principal, s *contenttree.Schema) hypermedia.Capabilities {
	if p == nil || !p.InGroup(a.AdminGroup) {
		return hypermedia.Capabilities{}
	}
	return hypermedia.Capabilities{
		CanCreate: s != nil && len(s.AllowedChildAliases) > 0,
		CanUpdate: true,
		CanDelete: true,
	}
}
