// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UpdateProfileRequest struct {
	Name    *string `json:"name,omitempty"    validate:"omitempty,min=2,max=100"`
	Phone   *string `json:"phone,omitempty"   validate:"omitempty,max=32"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// AdminUpdateRequest edits an account. Balances only change through the
// loyalty workflows.
type AdminUpdateRequest struct {
	Name     *string `json:"name,omitempty"     validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email,omitempty"    validate:"omitempty,email,max=255"`
	Phone    *string `json:"phone,omitempty"    validate:"omitempty,max=32"`
	Address  *string `json:"address,omitempty"  validate:"omitempty,max=500"`
	Role     *string `json:"role,omitempty"     validate:"omitempty,oneof=ADMIN MEMBER"`
	Status   *string `json:"status,omitempty"   validate:"omitempty,oneof=active inactive suspended"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=128"`
}

type UserResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	Phone           *string   `json:"phone"`
	Address         *string   `json:"address"`
	JoinDate        time.Time `json:"join_date"`
	Points          int64     `json:"points"`
	MembershipLevel string    `json:"membership_level"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const maxPage = 10000

type ListUsersParams struct {
	Page            int    `json:"page"`
	PageSize        int    `json:"page_size"`
	Search          string `json:"search"`
	Role            string `json:"role"`
	Status          string `json:"status"`
	MembershipLevel string `json:"membership_level"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		Phone:           u.Phone,
		Address:         u.Address,
		JoinDate:        u.JoinDate,
		Points:          u.Points,
		MembershipLevel: u.MembershipLevel,
		Status:          u.Status,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}
