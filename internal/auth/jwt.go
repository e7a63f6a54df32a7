// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/poin-lunak/internal/config"
	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/middleware"
)

const (
	claimRole         = "role"
	claimLevel        = "level"
	claimTokenVersion = "token_version"
	claimType         = "type"

	accessTokenType = "access"
	keyIDLength     = 16
)

// JWTManager signs ES256 access tokens and publishes the verifying key.
type JWTManager struct {
	privateKey jwk.Key
	publicKey  jwk.Key
	publicJWKS jwk.Set
	keyID      string
	config     config.JWTConfig
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	pemBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	privateKey, err := jwk.ParseKey(pemBytes, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKey, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	keyID, err := thumbprintID(publicKey)
	if err != nil {
		return nil, err
	}

	for _, k := range []jwk.Key{privateKey, publicKey} {
		if err := k.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
			return nil, fmt.Errorf("set algorithm: %w", err)
		}
		if err := k.Set(jwk.KeyIDKey, keyID); err != nil {
			return nil, fmt.Errorf("set key id: %w", err)
		}
	}
	if err := publicKey.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	set := jwk.NewSet()
	if err := set.AddKey(publicKey); err != nil {
		return nil, fmt.Errorf("add key to set: %w", err)
	}

	return &JWTManager{
		privateKey: privateKey,
		publicKey:  publicKey,
		publicJWKS: set,
		keyID:      keyID,
		config:     cfg,
	}, nil
}

// thumbprintID derives the kid from the key itself, so restarts with the
// same key publish the same kid.
func thumbprintID(key jwk.Key) (string, error) {
	sum, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("key thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sum)[:keyIDLength], nil
}

// GenerateKeyPair writes a fresh P-256 key pair as PEM files.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	private, err := jwk.Import(raw)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}

	public, err := private.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	files := []struct {
		path string
		key  jwk.Key
		mode os.FileMode
	}{
		{privateKeyPath, private, 0o600},
		{publicKeyPath, public, 0o644},
	}

	for _, f := range files {
		pem, err := jwk.Pem(f.key)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.path, err)
		}
		if err := os.WriteFile(f.path, pem, f.mode); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}

	return nil
}

// AccessTokenClaims are the custom claims carried by an access token.
// Level is a snapshot taken at issue time and only feeds per level API
// quotas; balances are always read from the database.
type AccessTokenClaims struct {
	UserID       string
	Role         string
	Level        string
	TokenVersion int
}

func (m *JWTManager) CreateAccessToken(
	claims AccessTokenClaims,
) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(claims.UserID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(m.config.AccessTokenExpire)).
		Claim(claimRole, claims.Role).
		Claim(claimLevel, claims.Level).
		Claim(claimTokenVersion, claims.TokenVersion).
		Claim(claimType, accessTokenType).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.privateKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// VerifyAccessToken checks signature, registered claims and token type.
// It does not consult the blacklist or the account; Service does that.
func (m *JWTManager) VerifyAccessToken(
	_ context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.ES256(), m.publicKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		if isExpired(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	invalid := func(reason string) error {
		return fmt.Errorf("verify token: %s: %w", reason, core.ErrTokenInvalid)
	}

	var tokenType, role, level string
	var version float64

	if token.Get(claimType, &tokenType) != nil || tokenType != accessTokenType {
		return nil, invalid("not an access token")
	}
	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, invalid("missing subject")
	}
	if token.Get(claimRole, &role) != nil {
		return nil, invalid("missing role")
	}
	if token.Get(claimLevel, &level) != nil {
		return nil, invalid("missing level")
	}
	if token.Get(claimTokenVersion, &version) != nil {
		return nil, invalid("missing token version")
	}

	jti, _ := token.JwtID()
	expiresAt, _ := token.Expiration()

	return &middleware.AccessTokenClaims{
		UserID:       subject,
		Role:         role,
		Level:        level,
		TokenVersion: int(version),
		TokenID:      jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func isExpired(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "exp") && strings.Contains(msg, "not satisfied")
}

func (m *JWTManager) GetJWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")

		if err := json.NewEncoder(w).Encode(m.publicJWKS); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

func (m *JWTManager) GetKeyID() string {
	return m.keyID
}

type RefreshTokenData struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
	FamilyID  string
}

// CreateRefreshToken mints an opaque token. An empty familyID starts a
// new rotation chain.
func (m *JWTManager) CreateRefreshToken(familyID string) (*RefreshTokenData, error) {
	token, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	if familyID == "" {
		familyID = uuid.New().String()
	}

	return &RefreshTokenData{
		Token:     token,
		Hash:      core.HashToken(token),
		ExpiresAt: time.Now().Add(m.config.RefreshTokenExpire),
		FamilyID:  familyID,
	}, nil
}
