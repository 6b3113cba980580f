package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/commune-app/commune/internal/pkg/env"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie carries the session token for same-site browser requests.
const SessionCookie = "__session"

var (
	ErrNoToken               = errors.New("no session token")
	ErrInvalidToken          = errors.New("invalid session token")
	ErrVerifierNotConfigured = errors.New("CLERK_JWT_KEY is not configured")
)

// Session is the verified caller.
type Session struct {
	UserID    string
	SessionID string
	Email     string
	Name      string
}

// Claims are the session token claims; email and name are present when the
// provider's session token template adds them.
type Claims struct {
	jwt.RegisteredClaims
	AuthorizedParty string `json:"azp,omitempty"`
	SessionID       string `json:"sid,omitempty"`
	Email           string `json:"email,omitempty"`
	Name            string `json:"name,omitempty"`
}

// SessionVerifier checks RS256 session tokens against the provider's
// public key. A nil verifier is unconfigured.
type SessionVerifier struct {
	key     *rsa.PublicKey
	parties []string
	parser  *jwt.Parser
}

func NewSessionVerifier(key *rsa.PublicKey, authorizedParties []string) *SessionVerifier {
	return &SessionVerifier{
		key:     key,
		parties: authorizedParties,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}
}

// ParsePublicKey accepts a PEM key; escaped newlines from .env files are
// expanded first.
func ParsePublicKey(pemKey string) (*rsa.PublicKey, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(pemKey), `\n`, "\n")
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(normalized))
	if err != nil {
		return nil, fmt.Errorf("parse CLERK_JWT_KEY: %w", err)
	}
	return key, nil
}

// NewSessionVerifierFromEnv returns nil, nil when no key is set.
func NewSessionVerifierFromEnv() (*SessionVerifier, error) {
	raw := env.GetEnv("CLERK_JWT_KEY", "")
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	key, err := ParsePublicKey(raw)
	if err != nil {
		return nil, err
	}
	return NewSessionVerifier(key, env.GetEnvList("CLERK_AUTHORIZED_PARTIES")), nil
}

func (v *SessionVerifier) Configured() bool {
	return v != nil && v.key != nil
}

// Verify validates the token signature, time claims and authorized party.
func (v *SessionVerifier) Verify(token string) (*Session, error) {
	if !v.Configured() {
		return nil, ErrVerifierNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoToken
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if len(v.parties) > 0 && claims.AuthorizedParty != "" && !slices.Contains(v.parties, claims.AuthorizedParty) {
		return nil, fmt.Errorf("%w: unauthorized party %q", ErrInvalidToken, claims.AuthorizedParty)
	}

	return &Session{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Email:     claims.Email,
		Name:      claims.Name,
	}, nil
}

// TokenFromRequest picks the bearer token, falling back to the cookie.
func TokenFromRequest(authorization, cookie string) string {
	auth := strings.TrimSpace(authorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(cookie)
}
