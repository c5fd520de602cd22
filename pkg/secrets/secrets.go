// Package secrets resolves signing material from the environment so token
// issuance and token verification can never diverge on the key they use.
package secrets

import "os"

// JWTKey returns the HMAC key for access tokens. A missing JWT_SECRET is fatal
// in release mode; outside it a fixed development key keeps local setups working.
func JWTKey() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}
