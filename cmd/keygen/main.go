package main

import (
	"fmt"
	"log"

	"github.com/openmeet-team/surveystudio/internal/auth"
)

// keygen generates the ES256 key pair used to sign and verify session tokens
func main() {
	private, err := auth.GenerateSecretJWK()
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	public, err := auth.PrivateJWKToPublicJWK(private)
	if err != nil {
		log.Fatalf("Failed to derive public key: %v", err)
	}
	fmt.Printf("AUTH_PRIVATE_JWK='%s'\n", private)
	fmt.Printf("AUTH_PUBLIC_JWK='%s'\n", public)
}
