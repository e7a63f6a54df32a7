// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength         = 16
	refreshTokenLength = 32
)

var errMalformedHash = errors.New("malformed password hash")

// argonParams is the cost setting stored inside every PHC string.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var currentArgon = argonParams{
	memory:  64 * 1024,
	time:    1,
	threads: 4,
	keyLen:  32,
}

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

func (p argonParams) format(salt, key []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory,
		p.time,
		p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// parsedHash is a decoded $argon2id$ PHC string.
type parsedHash struct {
	params argonParams
	salt   []byte
	key    []byte
}

func parseHash(encoded string) (*parsedHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[1] != "argon2id" {
		return nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: version %q", errMalformedHash, fields[2])
	}

	var p argonParams
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, fmt.Errorf("%w: params: %w", errMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %w", errMalformedHash, err)
	}

	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return nil, fmt.Errorf("%w: key: %w", errMalformedHash, err)
	}

	//nolint:gosec // G115: argon2id keys are 32 bytes
	p.keyLen = uint32(len(key))

	return &parsedHash{params: p, salt: salt, key: key}, nil
}

func (h *parsedHash) matches(password string) bool {
	return subtle.ConstantTimeCompare(h.key, h.params.derive(password, h.salt)) == 1
}

func (h *parsedHash) outdated() bool {
	return h.params != currentArgon
}

func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	return currentArgon.format(salt, currentArgon.derive(password, salt)), nil
}

func VerifyPassword(password, encodedHash string) (bool, error) {
	h, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}
	return h.matches(password), nil
}

// VerifyPasswordWithRehash also returns a fresh hash when the stored one
// was produced with older cost parameters. The fresh hash is empty when
// nothing needs to change.
func VerifyPasswordWithRehash(
	password, encodedHash string,
) (bool, string, error) {
	h, err := parseHash(encodedHash)
	if err != nil {
		return false, "", err
	}

	if !h.matches(password) {
		return false, "", nil
	}

	if !h.outdated() {
		return true, "", nil
	}

	fresh, err := HashPassword(password)
	if err != nil {
		//nolint:nilerr // the password matched; rehashing is optional
		return true, "", nil
	}
	return true, fresh, nil
}

var placeholderHash = sync.OnceValue(func() string {
	hash, err := HashPassword("placeholder-for-unknown-accounts")
	if err != nil {
		panic(fmt.Sprintf("security: placeholder hash: %v", err))
	}
	return hash
})

// VerifyPasswordTimingSafe spends the same argon2 work whether or not the
// account exists. A nil or empty hash always fails.
func VerifyPasswordTimingSafe(
	password string,
	encodedHash *string,
) (bool, string, error) {
	if encodedHash == nil || *encodedHash == "" {
		//nolint:errcheck // result is discarded for unknown accounts
		_, _ = VerifyPassword(password, placeholderHash())
		return false, "", nil
	}

	return VerifyPasswordWithRehash(password, *encodedHash)
}

// GenerateRefreshToken returns an opaque URL-safe session token.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken is the lookup key stored in place of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
