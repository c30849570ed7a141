package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid auth token")

// Identity is what the storefront reads from the backend's JWT. The signature is not checked
// here: the backend verifies the token on every call, and these fields only gate the UI.
type Identity struct {
	UserID    *int64
	Email     string
	Role      string
	ExpiresAt time.Time
}

func ParseIdentity(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := &Identity{
		Email: stringClaim(claims, "email"),
		Role:  strings.ToUpper(strings.TrimPrefix(roleClaim(claims), "ROLE_")),
	}
	if id.Email == "" {
		if sub, err := claims.GetSubject(); err == nil && strings.Contains(sub, "@") {
			id.Email = sub
		}
	}
	if uid, ok := int64Claim(claims, "userId", "id", "sub"); ok {
		id.UserID = &uid
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func roleClaim(claims jwt.MapClaims) string {
	if r := stringClaim(claims, "role"); r != "" {
		return r
	}
	for _, key := range []string{"roles", "authorities"} {
		if list, ok := claims[key].([]any); ok && len(list) > 0 {
			if r, ok := list[0].(string); ok {
				return r
			}
		}
	}
	return ""
}

func int64Claim(claims jwt.MapClaims, keys ...string) (int64, bool) {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case float64:
			return int64(v), true
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
