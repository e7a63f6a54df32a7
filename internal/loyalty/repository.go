// AngelaMos | 2026
// repository.go

package loyalty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

type Repository interface {
	LockMember(ctx context.Context, id string) (*Member, error)
	GetMember(ctx context.Context, id string) (*Member, error)
	UpdateBalance(ctx context.Context, id string, points int64, level string) error
	CreateTransaction(ctx context.Context, tx *Transaction) error
	CreateReward(ctx context.Context, reward *Reward) error
	GetReward(ctx context.Context, id string) (*Reward, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	AppendLog(ctx context.Context, entry *MembershipLog) error
	ListTransactions(ctx context.Context, params ListParams) ([]Transaction, int, error)
	ListRewards(ctx context.Context, params ListParams) ([]Reward, int, error)
	ListLogs(ctx context.Context, params ListParams) ([]MembershipLog, int, error)
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

// Store is a Repository that can also run a unit of work atomically. The
// Repository handed to fn is bound to the transaction.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

type sqlStore struct {
	repository
	conn *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return &sqlStore{
		repository: repository{db: db},
		conn:       db,
	}
}

func (s *sqlStore) WithinTx(
	ctx context.Context,
	fn func(repo Repository) error,
) error {
	return core.InTx(ctx, s.conn, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx})
	})
}

const memberColumns = `id, name, email, role, points, membership_level, status`

func (r *repository) LockMember(ctx context.Context, id string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	var m Member
	err := r.db.GetContext(ctx, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lock member: %w", core.ErrNotFound)
	}
	if err != nil {
		if core.IsConcurrencyError(err) {
			return nil, fmt.Errorf("lock member: %w", core.ErrConflict)
		}
		return nil, fmt.Errorf("lock member: %w", err)
	}

	return &m, nil
}

func (r *repository) GetMember(ctx context.Context, id string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM users WHERE id = $1`

	var m Member
	err := r.db.GetContext(ctx, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get member: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}

	return &m, nil
}

func (r *repository) UpdateBalance(
	ctx context.Context,
	id string,
	points int64,
	level string,
) error {
	query := `
		UPDATE users
		SET points = $2, membership_level = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, points, level)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update balance: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, total_item, total_transaction, items, points_gained)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &t.CreatedAt, query,
		t.ID,
		t.UserID,
		t.TotalItem,
		t.TotalTransaction,
		t.Items,
		t.PointsGained,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

func (r *repository) CreateReward(ctx context.Context, reward *Reward) error {
	query := `
		INSERT INTO rewards (id, user_id, catalog_id, reward_name, points_required, code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &reward.CreatedAt, query,
		reward.ID,
		reward.UserID,
		reward.CatalogID,
		reward.RewardName,
		reward.PointsRequired,
		reward.Code,
		reward.Status,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create reward: %w", core.ErrConflict)
		}
		return fmt.Errorf("create reward: %w", err)
	}

	return nil
}

func (r *repository) GetReward(ctx context.Context, id string) (*Reward, error) {
	query := `
		SELECT id, user_id, catalog_id, reward_name, points_required, code,
		       status, redeemed_at, created_at
		FROM rewards
		WHERE id = $1`

	var reward Reward
	err := r.db.GetContext(ctx, &reward, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get reward: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}

	return &reward, nil
}

func (r *repository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM rewards WHERE code = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("check voucher code: %w", err)
	}

	return exists, nil
}

func (r *repository) AppendLog(ctx context.Context, entry *MembershipLog) error {
	query := `
		INSERT INTO membership_logs (id, user_id, activity)
		VALUES ($1, $2, $3)
		RETURNING activity_time`

	err := r.db.GetContext(ctx, &entry.ActivityTime, query,
		entry.ID,
		entry.UserID,
		entry.Activity,
	)
	if err != nil {
		return fmt.Errorf("append membership log: %w", err)
	}

	return nil
}

func (r *repository) ListTransactions(
	ctx context.Context,
	params ListParams,
) ([]Transaction, int, error) {
	where, args := ownerFilter(params)

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, total_item, total_transaction, items, points_gained, created_at
		FROM transactions%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var txs []Transaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	return txs, total, nil
}

func (r *repository) ListRewards(
	ctx context.Context,
	params ListParams,
) ([]Reward, int, error) {
	where, args := ownerFilter(params)

	var total int
	countQuery := `SELECT COUNT(*) FROM rewards` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rewards: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, catalog_id, reward_name, points_required, code,
		       status, redeemed_at, created_at
		FROM rewards%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var rewards []Reward
	if err := r.db.SelectContext(ctx, &rewards, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rewards: %w", err)
	}

	return rewards, total, nil
}

func (r *repository) ListLogs(
	ctx context.Context,
	params ListParams,
) ([]MembershipLog, int, error) {
	where, args := ownerFilter(params)

	var total int
	countQuery := `SELECT COUNT(*) FROM membership_logs` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count membership logs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, activity, activity_time
		FROM membership_logs%s
		ORDER BY activity_time DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var logs []MembershipLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list membership logs: %w", err)
	}

	return logs, total, nil
}

func (r *repository) GetSetting(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM settings WHERE key = $1`

	var value string
	err := r.db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get setting %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}

	return value, nil
}

func (r *repository) PutSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}

	return nil
}

func (r *repository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{}

	totals := `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM transactions) AS total_transactions,
			(SELECT COALESCE(SUM(points_gained), 0) FROM transactions) AS points_issued,
			(SELECT COALESCE(SUM(points_required), 0) FROM rewards) AS points_redeemed`

	row := r.db.QueryRowxContext(ctx, totals)
	if err := row.Scan(
		&stats.TotalUsers,
		&stats.TotalTransactions,
		&stats.TotalPointsIssued,
		&stats.TotalPointsRedeemed,
	); err != nil {
		return nil, fmt.Errorf("loyalty totals: %w", err)
	}

	perDay := `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day,
		       COUNT(*) AS count,
		       COALESCE(SUM(total_transaction), 0) AS amount
		FROM transactions
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1`

	if err := r.db.SelectContext(ctx, &stats.TransactionsPerDay, perDay, since); err != nil {
		return nil, fmt.Errorf("transactions per day: %w", err)
	}

	activity := `
		SELECT day,
		       COALESCE(SUM(issued), 0) AS issued,
		       COALESCE(SUM(redeemed), 0) AS redeemed
		FROM (
			SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day,
			       points_gained AS issued, 0 AS redeemed
			FROM transactions WHERE created_at >= $1
			UNION ALL
			SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day,
			       0 AS issued, points_required AS redeemed
			FROM rewards WHERE created_at >= $1
		) points
		GROUP BY day
		ORDER BY day`

	if err := r.db.SelectContext(ctx, &stats.PointsActivity, activity, since); err != nil {
		return nil, fmt.Errorf("points activity: %w", err)
	}

	return stats, nil
}

func ownerFilter(params ListParams) (string, []any) {
	if params.UserID == "" {
		return "", nil
	}
	return " WHERE user_id = $1", []any{params.UserID}
}
