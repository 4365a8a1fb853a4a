// Package auth issues and verifies the ES256 bearer tokens that identify
// survey owners and authenticated respondents.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

// DefaultIssuer is the iss claim used when none is configured
const DefaultIssuer = "surveystudio"

// ErrUnauthorized is returned for missing, malformed or expired tokens
var ErrUnauthorized = errors.New("unauthorized")

// Issuer signs user tokens with a private JWK
type Issuer struct {
	signer jose.Signer
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer from a private JWK
func NewIssuer(privateJWK, issuer string, ttl time.Duration) (*Issuer, error) {
	jwk, err := ParseJWK(privateJWK)
	if err != nil {
		return nil, err
	}
	if jwk.IsPublic() {
		return nil, fmt.Errorf("signing requires a private JWK")
	}

	opts := (&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", jwk.KeyID)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: jwk.Key}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Issuer{signer: signer, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Sign returns a compact JWT whose subject is userID
func (i *Issuer) Sign(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	now := i.now()
	claims := jwt.Claims{
		Issuer:   i.issuer,
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(i.ttl)),
		ID:       uuid.New().String(),
	}

	token, err := jwt.Signed(i.signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verifier checks tokens against a public JWK
type Verifier struct {
	key    interface{}
	issuer string
	now    func() time.Time
}

// NewVerifier creates a Verifier from a public (or private) JWK
func NewVerifier(publicJWK, issuer string) (*Verifier, error) {
	jwk, err := ParseJWK(publicJWK)
	if err != nil {
		return nil, err
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Verifier{key: jwk.Public().Key, issuer: issuer, now: time.Now}, nil
}

// Verify validates the token signature, issuer and expiry and returns the user
func (v *Verifier) Verify(token string) (*User, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.ES256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	var claims jwt.Claims
	if err := parsed.Claims(v.key, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{Issuer: v.issuer, Time: v.now()}, 30*time.Second); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return &User{ID: claims.Subject}, nil
}
