// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/poin-lunak/internal/auth"
	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/loyalty"
)

type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// Create registers a new member. Every account starts as an active
// BRONZE member with no points.
func (s *Service) Create(
	ctx context.Context,
	nu auth.NewUser,
) (*auth.UserInfo, error) {
	user := &User{
		ID:              uuid.New().String(),
		Email:           normalizeEmail(nu.Email),
		PasswordHash:    nu.PasswordHash,
		Name:            strings.TrimSpace(nu.Name),
		Role:            core.RoleMember,
		Phone:           optional(nu.Phone),
		Address:         optional(nu.Address),
		MembershipLevel: loyalty.LevelBronze,
		Status:          auth.StatusActive,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update profile: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = optional(*req.Phone)
	}
	if req.Address != nil {
		user.Address = optional(*req.Address)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// AdminUpdate applies an administrator's edit. Role, status and
// password changes bump the token version so existing sessions of the
// account stop verifying. All writes commit together.
func (s *Service) AdminUpdate(
	ctx context.Context,
	actor core.Identity,
	id string,
	req AdminUpdateRequest,
) (*User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("update user: %w", core.ErrForbidden)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	revoke := false

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = normalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		user.Phone = optional(*req.Phone)
	}
	if req.Address != nil {
		user.Address = optional(*req.Address)
	}
	if req.Role != nil && *req.Role != user.Role {
		if user.ID == actor.ID {
			return nil, core.InvalidField("role", "cannot change your own role")
		}
		user.Role = *req.Role
		revoke = true
	}
	if req.Status != nil && *req.Status != user.Status {
		if user.ID == actor.ID {
			return nil, core.InvalidField("status", "cannot change your own status")
		}
		user.Status = *req.Status
		revoke = true
	}

	hash := ""
	if req.Password != nil {
		hash, err = core.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		revoke = true
	}

	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		if err := repo.Update(ctx, user); err != nil {
			return err
		}
		if hash != "" {
			if err := repo.UpdatePassword(ctx, user.ID, hash); err != nil {
				return err
			}
		}
		if revoke {
			return repo.IncrementTokenVersion(ctx, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// DeleteUser removes an account. Administrators cannot delete their own
// account.
func (s *Service) DeleteUser(
	ctx context.Context,
	actor core.Identity,
	id string,
) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	if actor.ID == id {
		return fmt.Errorf("delete user: cannot delete yourself: %w", core.ErrForbidden)
	}

	return s.repo.Delete(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	if params.MembershipLevel != "" && !loyalty.IsValidLevel(params.MembershipLevel) {
		return nil, 0, core.InvalidField("membership_level", "unknown membership level")
	}

	return s.repo.List(ctx, params)
}

// LevelCounts reports how many members sit in each level, with every
// level present even when empty.
func (s *Service) LevelCounts(ctx context.Context) (map[string]int, error) {
	counts, err := s.repo.CountByLevel(ctx)
	if err != nil {
		return nil, err
	}

	for _, level := range []string{loyalty.LevelBronze, loyalty.LevelSilver, loyalty.LevelGold} {
		if _, ok := counts[level]; !ok {
			counts[level] = 0
		}
	}

	return counts, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		PasswordHash:    u.PasswordHash,
		Role:            u.Role,
		MembershipLevel: u.MembershipLevel,
		Points:          u.Points,
		Status:          u.Status,
		TokenVersion:    u.TokenVersion,
		CreatedAt:       u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
