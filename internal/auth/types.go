package auth

import (
	"context"
	"strings"
	"time"

	xerrors "ProofBench/internal/errors"
)

// Common errors returned by the authentication subsystem.
var (
	ErrInvalidChallenge = xerrors.New(xerrors.CodeInvalidChallenge, "Invalid or expired challenge")
	ErrMissingToken     = xerrors.New(xerrors.CodeUnauthorized, "Missing bearer token")
	ErrInvalidToken     = xerrors.New(xerrors.CodeUnauthorized, "Invalid or expired token")
)

// Challenge is a short-lived nonce bound to one identity. At most one live
// challenge exists per identity.
type Challenge struct {
	Identity  string    `json:"address"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether now is past the expiry instant.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ChallengeStore keeps pending challenges. Implementations must make Put and
// Redeem atomic per identity.
type ChallengeStore interface {
	// Put stores the challenge, replacing any previous one for the identity.
	Put(ctx context.Context, challenge Challenge) error
	// Redeem consumes the challenge when it exists, the nonce matches and it
	// has not expired at now. Any other outcome returns ErrInvalidChallenge
	// and leaves the store untouched.
	Redeem(ctx context.Context, identity, nonce string, now time.Time) error
	// Sweep drops challenges expired at now and reports how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Token is an issued bearer token.
type Token struct {
	AccessToken string    `json:"token"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Identity    string    `json:"address"`
}

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	Address   string
	Methods   []string
	ExpiresAt time.Time
}

// Config configures the challenge/response service.
type Config struct {
	Secret           string
	Issuer           string
	TokenTTL         time.Duration
	ChallengeTTL     time.Duration
	VerifySignatures bool
}

// NormalizeIdentity lowercases and trims a wallet style identity.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
