// AngelaMos | 2026
// entity.go

package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RewardAvailable = "available"
	RewardUsed      = "used"
	RewardExpired   = "expired"
)

const settingPointRatio = "point_ratio"

// Member is the slice of a user row the workflows read and write.
type Member struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	Email           string `db:"email"`
	Role            string `db:"role"`
	Points          int64  `db:"points"`
	MembershipLevel string `db:"membership_level"`
	Status          string `db:"status"`
}

type Transaction struct {
	ID               string          `db:"id"`
	UserID           string          `db:"user_id"`
	TotalItem        int             `db:"total_item"`
	TotalTransaction decimal.Decimal `db:"total_transaction"`
	Items            *string         `db:"items"`
	PointsGained     int64           `db:"points_gained"`
	CreatedAt        time.Time       `db:"created_at"`
}

type Reward struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	CatalogID      int        `db:"catalog_id"`
	RewardName     string     `db:"reward_name"`
	PointsRequired int64      `db:"points_required"`
	Code           string     `db:"code"`
	Status         string     `db:"status"`
	RedeemedAt     *time.Time `db:"redeemed_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

type MembershipLog struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Activity     string    `db:"activity"`
	ActivityTime time.Time `db:"activity_time"`
}

type DailyTransactions struct {
	Date   string          `db:"day"    json:"date"`
	Count  int             `db:"count"  json:"count"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
}

type DailyPoints struct {
	Date     string `db:"day"      json:"date"`
	Issued   int64  `db:"issued"   json:"issued"`
	Redeemed int64  `db:"redeemed" json:"redeemed"`
}

type Stats struct {
	TotalUsers          int                 `json:"total_users"`
	TotalTransactions   int                 `json:"total_transactions"`
	TotalPointsIssued   int64               `json:"total_points_issued"`
	TotalPointsRedeemed int64               `json:"total_points_redeemed"`
	PointRatio          int64               `json:"point_ratio"`
	TransactionsPerDay  []DailyTransactions `json:"transactions_per_day"`
	PointsActivity      []DailyPoints       `json:"points_activity"`
}
