// Package identity talks to the external identity gateway: it verifies the
// gateway's session tokens and looks up profile data for a subject.
package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the gateway's front-end SDK stores the
// session token in.
const SessionCookie = "__session"

var (
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token has expired")
)

// Verifier validates session tokens and extracts the subject id.
type Verifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
}

// NewVerifier builds a verifier from either an HMAC secret or an RSA public
// key in PEM form. The public key wins when both are set.
func NewVerifier(secret, publicKeyPEM, issuer string) (*Verifier, error) {
	v := &Verifier{issuer: issuer}
	switch {
	case publicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse identity public key: %w", err)
		}
		v.publicKey = key
	case secret != "":
		v.secret = []byte(secret)
	default:
		return nil, errors.New("identity verifier needs a secret or a public key")
	}
	return v, nil
}

// Verify checks signature, expiry and issuer and returns the sub claim.
func (v *Verifier) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.publicKey != nil {
		opts = append(opts, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}))
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.key, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (v *Verifier) key(*jwt.Token) (interface{}, error) {
	if v.publicKey != nil {
		return v.publicKey, nil
	}
	return v.secret, nil
}

// TokenFromRequest reads the session token from the Authorization header,
// falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
