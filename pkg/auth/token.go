package auth

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Roles decodes the "roles" claim, which identity providers emit as a comma
// separated string, a list of strings, or objects carrying an "authority" or
// "role" key.
type Roles []string

func (r *Roles) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = collectRoles(raw, nil)
	return nil
}

func collectRoles(raw interface{}, out []string) []string {
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []interface{}:
		for _, item := range v {
			out = collectRoles(item, out)
		}
	case map[string]interface{}:
		if role, ok := v["authority"].(string); ok {
			return collectRoles(role, out)
		}
		if role, ok := v["role"].(string); ok {
			return collectRoles(role, out)
		}
	}
	return out
}

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Roles Roles  `json:"roles,omitempty"`
}

// HasAnyRole reports whether the claims carry one of roles, ignoring case.
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, held := range c.Roles {
		for _, wanted := range roles {
			if strings.EqualFold(held, wanted) {
				return true
			}
		}
	}
	return false
}

type TokenManager struct {
	signingKey []byte
	issuer     string
}

func NewTokenManager(signingKey []byte, issuer string) *TokenManager {
	return &TokenManager{signingKey: signingKey, issuer: issuer}
}

func (m *TokenManager) Generate(subject, email string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   subject,
			Issuer:    m.issuer,
		},
		Email: email,
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
