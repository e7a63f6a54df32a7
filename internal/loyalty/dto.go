// AngelaMos | 2026
// dto.go

package loyalty

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/poin-lunak/internal/ratelimit"
)

type CreateTransactionRequest struct {
	UserID           string          `json:"user_id"           validate:"required,uuid"`
	TotalItem        int             `json:"total_item"        validate:"required,gt=0"`
	TotalTransaction decimal.Decimal `json:"total_transaction"`
	Items            string          `json:"items,omitempty"   validate:"max=1000"`
}

type RedeemRequest struct {
	RewardID int `json:"reward_id" validate:"required,gt=0"`
}

type AdjustPointsRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Points int64  `json:"points"  validate:"required,ne=0"`
	Reason string `json:"reason"  validate:"required,min=5,max=500"`
}

type UpdatePointRatioRequest struct {
	Ratio int64 `json:"ratio" validate:"required,gt=0"`
}

type AwardInput struct {
	UserID           string
	TotalItem        int
	TotalTransaction decimal.Decimal
	Items            string
}

type AwardResult struct {
	Transaction     *Transaction
	PointsGained    int64
	NewTotalPoints  int64
	MembershipLevel string
	LevelChanged    bool
}

type RedeemInput struct {
	RewardID       int
	IdempotencyKey string
	Admitted       *ratelimit.Decision
}

type RedeemResult struct {
	Reward          *Reward
	RemainingPoints int64
	MembershipLevel string
	Replayed        bool
	Limit           ratelimit.Decision
}

type AdjustInput struct {
	UserID string
	Delta  int64
	Reason string
}

type AdjustResult struct {
	UserID          string
	OldPoints       int64
	NewPoints       int64
	Adjustment      int64
	MembershipLevel string
}

const maxPage = 10000

type ListParams struct {
	Page     int
	PageSize int
	UserID   string
}

func (p *ListParams) Normalize() {
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

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type TransactionResponse struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	TotalItem        int             `json:"total_item"`
	TotalTransaction decimal.Decimal `json:"total_transaction"`
	Items            *string         `json:"items"`
	PointsGained     int64           `json:"points_gained"`
	CreatedAt        time.Time       `json:"created_at"`
}

type AwardResponse struct {
	Transaction     TransactionResponse `json:"transaction"`
	PointsGained    int64               `json:"points_gained"`
	NewTotalPoints  int64               `json:"new_total_points"`
	MembershipLevel string              `json:"membership_level"`
}

type RewardResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	CatalogID      int        `json:"catalog_id"`
	RewardName     string     `json:"reward_name"`
	PointsRequired int64      `json:"points_required"`
	Code           string     `json:"code"`
	Status         string     `json:"status"`
	RedeemedAt     *time.Time `json:"redeemed_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type RedeemResponse struct {
	Reward          RewardResponse `json:"reward"`
	RemainingPoints int64          `json:"remaining_points"`
	MembershipLevel string         `json:"membership_level"`
	Replayed        bool           `json:"replayed"`
}

type AdjustResponse struct {
	UserID          string `json:"user_id"`
	OldPoints       int64  `json:"old_points"`
	NewPoints       int64  `json:"new_points"`
	Adjustment      int64  `json:"adjustment"`
	MembershipLevel string `json:"membership_level"`
}

type MembershipLogResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Activity     string    `json:"activity"`
	ActivityTime time.Time `json:"activity_time"`
}

type MemberSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Points          int64  `json:"points"`
	MembershipLevel string `json:"membership_level"`
	Status          string `json:"status"`
	NextLevel       string `json:"next_level,omitempty"`
	PointsToNext    int64  `json:"points_to_next,omitempty"`
}

type DashboardResponse struct {
	Member             MemberSummary         `json:"member"`
	RecentTransactions []TransactionResponse `json:"recent_transactions"`
	Vouchers           []RewardResponse      `json:"vouchers"`
}

type PointRatioResponse struct {
	Ratio int64 `json:"ratio"`
}

func ToTransactionResponse(t *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               t.ID,
		UserID:           t.UserID,
		TotalItem:        t.TotalItem,
		TotalTransaction: t.TotalTransaction,
		Items:            t.Items,
		PointsGained:     t.PointsGained,
		CreatedAt:        t.CreatedAt,
	}
}

func ToTransactionResponseList(txs []Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, ToTransactionResponse(&txs[i]))
	}
	return out
}

func ToRewardResponse(r *Reward) RewardResponse {
	return RewardResponse{
		ID:             r.ID,
		UserID:         r.UserID,
		CatalogID:      r.CatalogID,
		RewardName:     r.RewardName,
		PointsRequired: r.PointsRequired,
		Code:           r.Code,
		Status:         r.Status,
		RedeemedAt:     r.RedeemedAt,
		CreatedAt:      r.CreatedAt,
	}
}

func ToRewardResponseList(rewards []Reward) []RewardResponse {
	out := make([]RewardResponse, 0, len(rewards))
	for i := range rewards {
		out = append(out, ToRewardResponse(&rewards[i]))
	}
	return out
}

func ToMembershipLogResponseList(logs []MembershipLog) []MembershipLogResponse {
	out := make([]MembershipLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, MembershipLogResponse(l))
	}
	return out
}

func ToMemberSummary(m *Member) MemberSummary {
	s := MemberSummary{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		Points:          m.Points,
		MembershipLevel: m.MembershipLevel,
		Status:          m.Status,
	}

	switch {
	case m.Points < SilverThreshold:
		s.NextLevel = LevelSilver
		s.PointsToNext = SilverThreshold - m.Points
	case m.Points < GoldThreshold:
		s.NextLevel = LevelGold
		s.PointsToNext = GoldThreshold - m.Points
	}

	return s
}
