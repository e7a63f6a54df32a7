// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

const (
	activityRegistered = "Registered new account"
	activityLoggedIn   = "Logged in"
)

type UserInfo struct {
	ID              string
	Email           string
	Name            string
	PasswordHash    string
	Role            string
	MembershipLevel string
	Points          int64
	Status          string
	TokenVersion    int
	CreatedAt       time.Time
}

func (u *UserInfo) IsActive() bool {
	return u.Status == StatusActive
}

type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	Address      string
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, u NewUser) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// ActivityRecorder appends entries to a member's activity log.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, userID, activity string) error
}

type Service struct {
	repo         Repository
	jwt          *JWTManager
	userProvider UserProvider
	activity     ActivityRecorder
	redis        *redis.Client
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	userProvider UserProvider,
	activity ActivityRecorder,
	redisClient *redis.Client,
) *Service {
	return &Service{
		repo:         repo,
		jwt:          jwt,
		userProvider: userProvider,
		activity:     activity,
		redis:        redisClient,
	}
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.userProvider.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, fmt.Errorf("login: status %s: %w", user.Status, core.ErrAccountBlocked)
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.userProvider.UpdatePassword(ctx, user.ID, newHash)
	}

	resp, err := s.createAuthResponse(ctx, user, userAgent, ipAddress, nil)
	if err != nil {
		return nil, err
	}

	s.record(ctx, user.ID, activityLoggedIn)

	return resp, nil
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(ctx, NewUser{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Phone:        req.Phone,
		Address:      req.Address,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.record(ctx, user.ID, activityRegistered)

	return s.createAuthResponse(ctx, user, userAgent, ipAddress, nil)
}

func (s *Service) record(ctx context.Context, userID, activity string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.RecordActivity(ctx, userID, activity); err != nil {
		slog.WarnContext(ctx, "record activity failed",
			"user_id", userID,
			"activity", activity,
			"error", err,
		)
	}
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	switch storedToken.state(time.Now()) {
	case tokenConsumed:
		return nil, s.reuseDetected(ctx, storedToken)
	case tokenRevoked:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	case tokenExpired:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.userProvider.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive() {
		//nolint:errcheck // account is blocked either way
		_ = s.repo.RevokeByFamilyID(ctx, storedToken.FamilyID)
		return nil, fmt.Errorf("refresh: %w", core.ErrAccountBlocked)
	}

	resp, err := s.createAuthResponse(ctx, user, userAgent, ipAddress, storedToken)
	if errors.Is(err, core.ErrConflict) {
		return nil, s.reuseDetected(ctx, storedToken)
	}
	return resp, err
}

// reuseDetected revokes the whole family of a replayed refresh token.
func (s *Service) reuseDetected(ctx context.Context, token *RefreshToken) error {
	//nolint:errcheck // security revocation continues regardless
	_ = s.repo.RevokeByFamilyID(ctx, token.FamilyID)
	slog.WarnContext(ctx, "refresh token reuse detected",
		"user_id", token.UserID,
		"family_id", token.FamilyID,
	)
	return ErrTokenReuse
}

// Logout revokes the refresh token when one is given and blacklists the
// access token that made the request until it would have expired.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	if claims == nil {
		return fmt.Errorf("logout: %w", core.ErrUnauthorized)
	}

	if claims.TokenID != "" {
		if err := s.RevokeAccessToken(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
			return err
		}
	}

	if refreshToken == "" {
		return nil
	}

	storedToken, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find token: %w", err)
	}

	if storedToken.UserID != claims.UserID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, storedToken.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

// LogoutAll revokes every refresh token of the user and bumps the token
// version so outstanding access tokens stop verifying.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.userProvider.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return nil
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	exists, err := s.redis.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}

func blacklistKey(jti string) string {
	return "auth:blacklist:" + jti
}

// VerifyAccessToken checks the signature and then the live session
// state: blacklist, token version and account status. Suspending a
// member therefore takes effect on their next request.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if claims.TokenID != "" {
		revoked, err := s.IsAccessTokenBlacklisted(ctx, claims.TokenID)
		if err != nil {
			slog.WarnContext(ctx, "token blacklist unavailable", "error", err)
		} else if revoked {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
		}
	}

	user, err := s.userProvider.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}

	if claims.TokenVersion < user.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	if !user.IsActive() {
		return nil, core.AccountInactiveError()
	}

	claims.Role = user.Role
	claims.Level = user.MembershipLevel

	return claims, nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	token, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if token.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordWithRehash(
		currentPassword,
		user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userProvider.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.LogoutAll(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	return nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// PurgeExpiredTokens deletes refresh tokens that expired more than a day
// ago.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now().Add(-24*time.Hour))
}

// RunTokenJanitor calls PurgeExpiredTokens every interval until ctx is
// done.
func (s *Service) RunTokenJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpiredTokens(ctx)
			if err != nil {
				slog.WarnContext(ctx, "purge expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

func (s *Service) AccessTokenTTL() time.Duration {
	return s.jwt.config.AccessTokenExpire
}

// createAuthResponse issues a token pair. A non-nil previous token is
// consumed atomically as part of the rotation.
func (s *Service) createAuthResponse(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress string,
	previous *RefreshToken,
) (*AuthResponse, error) {
	familyID := ""
	if previous != nil {
		familyID = previous.FamilyID
	}

	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		Level:        user.MembershipLevel,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	next := &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if previous == nil {
		err = s.repo.Create(ctx, next)
	} else {
		err = s.repo.Rotate(ctx, previous.ID, next)
	}
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	ttl := s.AccessTokenTTL()

	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl / time.Second),
			ExpiresAt:    time.Now().Add(ttl),
		},
	}, nil
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		MembershipLevel: u.MembershipLevel,
		Points:          u.Points,
		Status:          u.Status,
		CreatedAt:       u.CreatedAt,
	}
}
