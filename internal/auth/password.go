package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters per the OWASP 2025 recommendation.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// phcParams holds the cost parameters recovered from a stored hash.
// Verification replays whatever the hash was created with, so parameter
// upgrades do not invalidate existing credentials.
type phcParams struct {
	iterations  uint32
	memory      uint32
	parallelism uint8
}

// HashPassword hashes a plaintext password with Argon2id and returns the
// PHC string form: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	enc := base64.RawStdEncoding
	phc := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		enc.EncodeToString(salt), enc.EncodeToString(key))
	return phc, nil
}

// VerifyPassword checks a plaintext password against an Argon2id PHC hash.
// Comparison is constant-time.
func VerifyPassword(password, encodedHash string) (bool, error) {
	salt, want, params, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt,
		params.iterations, params.memory, params.parallelism,
		uint32(len(want))) //nolint:gosec // G115: hash length always fits uint32

	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// parsePHC splits an Argon2id PHC string into salt, hash and cost parameters.
// The expected shape is $argon2id$v=N$m=N,t=N,p=N$salt$hash.
func parsePHC(encoded string) (salt, hash []byte, params phcParams, err error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 { //nolint:mnd // six $-delimited PHC fields
		err = fmt.Errorf("invalid PHC hash format")
		return
	}
	if fields[1] != "argon2id" {
		err = fmt.Errorf("unsupported algorithm: %s", fields[1])
		return
	}

	var version int
	if _, err = fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		err = fmt.Errorf("parsing version: %w", err)
		return
	}
	if _, err = fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d",
		&params.memory, &params.iterations, &params.parallelism); err != nil {
		err = fmt.Errorf("parsing parameters: %w", err)
		return
	}

	if salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		err = fmt.Errorf("decoding salt: %w", err)
		return
	}
	if hash, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		err = fmt.Errorf("decoding hash: %w", err)
		return
	}
	return salt, hash, params, nil
}
