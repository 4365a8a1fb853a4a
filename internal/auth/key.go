package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// GenerateSecretJWK generates a new ES256 private key in JWK format
func GenerateSecretJWK() (string, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}

	jwk := jose.JSONWebKey{
		Key:       privateKey,
		KeyID:     fmt.Sprintf("key-%d", time.Now().Unix()),
		Algorithm: string(jose.ES256),
		Use:       "sig",
	}

	data, err := json.Marshal(jwk)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JWK: %w", err)
	}
	return string(data), nil
}

// PrivateJWKToPublicJWK extracts the public key from a private JWK
func PrivateJWKToPublicJWK(privateJWK string) (string, error) {
	jwk, err := ParseJWK(privateJWK)
	if err != nil {
		return "", err
	}
	if jwk.IsPublic() {
		return "", fmt.Errorf("JWK is not a private key")
	}

	data, err := json.Marshal(jwk.Public())
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key JWK: %w", err)
	}
	return string(data), nil
}

// ParseJWK decodes a JWK and checks that it is an ES256 key
func ParseJWK(raw string) (*jose.JSONWebKey, error) {
	if raw == "" {
		return nil, fmt.Errorf("JWK cannot be empty")
	}

	var jwk jose.JSONWebKey
	if err := json.Unmarshal([]byte(raw), &jwk); err != nil {
		return nil, fmt.Errorf("failed to parse JWK: %w", err)
	}
	if jwk.Algorithm != "" && jwk.Algorithm != string(jose.ES256) {
		return nil, fmt.Errorf("unsupported JWK algorithm %q", jwk.Algorithm)
	}
	switch jwk.Key.(type) {
	case *ecdsa.PrivateKey, *ecdsa.PublicKey:
	default:
		return nil, fmt.Errorf("JWK must hold an ECDSA key")
	}
	return &jwk, nil
}
