package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingBearer           = errors.New("missing bearer token")
	errInvalidToken            = errors.New("invalid token")
	errUnexpectedSigningMethod = errors.New("unexpected signing method")
)

// Authenticator extracts the calling user's id from a request. Registration,
// OTP, and session issuance live in an out-of-scope collaborator; this
// package only needs to know who is asking.
type Authenticator interface {
	Authenticate(r *http.Request) (userID int64, err error)
}

// JWTAuthenticator reads a bearer token from the Authorization header and
// extracts the "sub" claim as a user id. It never issues or refreshes
// tokens; token lifecycle is the external identity provider's job.
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator returns an Authenticator validating HMAC-signed
// (HS256/HS384/HS512) tokens signed with secret.
func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (int64, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, errMissingBearer
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errInvalidToken
	}

	sub, ok := claims["sub"]
	if !ok {
		return 0, errInvalidToken
	}

	switch v := sub.(type) {
	case float64:
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errInvalidToken
		}
		return id, nil
	default:
		return 0, errInvalidToken
	}
}

type authCtxKey struct{}

func contextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, authCtxKey{}, userID)
}

func userIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(authCtxKey{}).(int64)
	return v, ok
}

// requireAuth wraps handler, rejecting requests the Authenticator can't
// resolve to a user id with 401 before the handler ever runs.
func (s *Server) requireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.Authenticate(r)
		if err != nil {
			http.Error(w, `{"error":"not_authorized"}`, http.StatusUnauthorized)
			return
		}
		r = r.WithContext(contextWithUserID(r.Context(), userID))
		handler(w, r)
	}
}
