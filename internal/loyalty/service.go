// AngelaMos | 2026
// service.go

package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/poin-lunak/internal/config"
	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/ratelimit"
)

const (
	idempotencyPending  = "pending"
	idempotencyClaimTTL = 2 * time.Minute
	kvWriteTimeout      = 3 * time.Second
	maxIdempotencyKey   = 128
	pointRatioCacheKey  = "loyalty:point_ratio"
	statsWindow         = 30 * 24 * time.Hour
	dashboardRecentSize = 10
)

// RateLimitError is returned by Redeem when the caller has used up the
// current window. It carries the decision so callers can set headers.
type RateLimitError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("redeem limit of %d reached", e.Decision.Limit)
}

func (e *RateLimitError) Unwrap() error {
	return core.ErrRateLimited
}

type Service struct {
	store   Store
	limiter *ratelimit.Limiter
	kv      KeyValue
	codes   *CodeGenerator
	cfg     config.LoyaltyConfig
	now     func() time.Time
}

func NewService(
	store Store,
	limiter *ratelimit.Limiter,
	kv KeyValue,
	cfg config.LoyaltyConfig,
) *Service {
	if cfg.PointRatio <= 0 {
		cfg.PointRatio = DefaultPointRatio
	}
	if cfg.VoucherMaxAttempts < 1 {
		cfg.VoucherMaxAttempts = DefaultVoucherMaxAttempts
	}
	if cfg.RedeemLimit < 1 {
		cfg.RedeemLimit = 5
	}
	if cfg.RedeemWindow <= 0 {
		cfg.RedeemWindow = time.Minute
	}

	return &Service{
		store:   store,
		limiter: limiter,
		kv:      kv,
		codes:   NewCodeGenerator(cfg.VoucherPrefix),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Award records a purchase for a member and credits floor(amount/ratio)
// points. Only admins post purchases.
func (s *Service) Award(
	ctx context.Context,
	actor core.Identity,
	in AwardInput,
) (result *AwardResult, err error) {
	ctx, span := core.StartSpan(ctx, "loyalty.Award",
		attribute.String("loyalty.user_id", in.UserID),
	)
	defer func() { core.EndSpan(span, err) }()

	if !actor.IsAuthenticated() {
		return nil, fmt.Errorf("award: %w", core.ErrUnauthorized)
	}

	switch {
	case in.UserID == "":
		return nil, fmt.Errorf("award: %w", core.InvalidField("user_id", "is required"))
	case in.TotalItem <= 0:
		return nil, fmt.Errorf("award: %w", core.InvalidField("total_item", "must be positive"))
	case !in.TotalTransaction.IsPositive():
		return nil, fmt.Errorf(
			"award: %w",
			core.InvalidField("total_transaction", "must be positive"),
		)
	}

	if !actor.IsAdmin() {
		return nil, fmt.Errorf("award: %w", core.ErrForbidden)
	}

	ratio, err := s.PointRatio(ctx)
	if err != nil {
		return nil, fmt.Errorf("award: %w", err)
	}

	gained := AwardWithRatio(in.TotalTransaction, ratio)

	txn := &Transaction{
		ID:               uuid.New().String(),
		UserID:           in.UserID,
		TotalItem:        in.TotalItem,
		TotalTransaction: in.TotalTransaction,
		PointsGained:     gained,
	}
	if items := strings.TrimSpace(in.Items); items != "" {
		txn.Items = &items
	}

	result = &AwardResult{Transaction: txn, PointsGained: gained}

	err = s.store.WithinTx(ctx, func(repo Repository) error {
		m, err := repo.LockMember(ctx, in.UserID)
		if err != nil {
			return err
		}

		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		changed, err := s.applyBalance(ctx, repo, m, m.Points+gained)
		if err != nil {
			return err
		}

		result.NewTotalPoints = m.Points
		result.MembershipLevel = m.MembershipLevel
		result.LevelChanged = changed

		return s.appendLog(ctx, repo, m.ID, fmt.Sprintf(
			"Transaction %s - earned %d points",
			in.TotalTransaction.StringFixed(2),
			gained,
		))
	})
	if err != nil {
		return nil, fmt.Errorf("award: %w", err)
	}

	slog.InfoContext(ctx, "points awarded",
		"user_id", in.UserID,
		"transaction_id", txn.ID,
		"points", gained,
		"balance", result.NewTotalPoints,
		"level", result.MembershipLevel,
	)

	return result, nil
}

// Redeem exchanges catalog points for a voucher on behalf of the caller.
// The balance check, reward insert and debit share one transaction with
// the member row locked. The attempt is counted against the redeem window
// unless in.Admitted carries a decision from AllowRedeem.
func (s *Service) Redeem(
	ctx context.Context,
	actor core.Identity,
	in RedeemInput,
) (result *RedeemResult, err error) {
	ctx, span := core.StartSpan(ctx, "loyalty.Redeem",
		attribute.String("loyalty.user_id", actor.ID),
		attribute.Int("loyalty.reward_id", in.RewardID),
	)
	defer func() { core.EndSpan(span, err) }()

	if !actor.IsAuthenticated() {
		return nil, fmt.Errorf("redeem: %w", core.ErrUnauthorized)
	}

	decision := in.Admitted
	if decision == nil {
		d, allowErr := s.AllowRedeem(ctx, actor)
		if allowErr != nil {
			return nil, allowErr
		}
		decision = &d
	}

	if in.RewardID <= 0 {
		return nil, fmt.Errorf("redeem: %w", core.InvalidField("reward_id", "is required"))
	}
	if len(in.IdempotencyKey) > maxIdempotencyKey {
		return nil, fmt.Errorf(
			"redeem: %w",
			core.InvalidField("idempotency_key", "is too long"),
		)
	}

	item, ok := LookupReward(in.RewardID)
	if !ok {
		return nil, fmt.Errorf("redeem: reward %d: %w", in.RewardID, core.ErrNotFound)
	}

	idemKey := ""
	if in.IdempotencyKey != "" && s.kv != nil {
		idemKey = "idem:redeem:" + actor.ID + ":" + in.IdempotencyKey

		replay, err := s.beginIdempotent(ctx, idemKey, actor.ID, item.ID)
		if err != nil {
			return nil, fmt.Errorf("redeem: %w", err)
		}
		if replay != nil {
			replay.Limit = *decision
			return replay, nil
		}
	}

	reward := &Reward{
		ID:             uuid.New().String(),
		UserID:         actor.ID,
		CatalogID:      item.ID,
		RewardName:     item.Name,
		PointsRequired: item.Points,
		Status:         RewardAvailable,
	}
	result = &RedeemResult{Reward: reward, Limit: *decision}

	err = s.store.WithinTx(ctx, func(repo Repository) error {
		m, err := repo.LockMember(ctx, actor.ID)
		if err != nil {
			return err
		}

		if m.Points < item.Points {
			return &core.ShortfallError{Have: m.Points, Need: item.Points}
		}

		code, err := s.codes.GenerateUnique(ctx, repo.CodeExists, s.cfg.VoucherMaxAttempts)
		if err != nil {
			return err
		}
		reward.Code = code

		if err := repo.CreateReward(ctx, reward); err != nil {
			return err
		}

		if _, err := s.applyBalance(ctx, repo, m, m.Points-item.Points); err != nil {
			return err
		}

		result.RemainingPoints = m.Points
		result.MembershipLevel = m.MembershipLevel

		return s.appendLog(ctx, repo, m.ID, fmt.Sprintf(
			"Redeemed %d points for %s",
			item.Points,
			item.Name,
		))
	})
	if err != nil {
		if idemKey != "" {
			s.releaseIdempotent(ctx, idemKey)
		}
		return nil, fmt.Errorf("redeem: %w", err)
	}

	if idemKey != "" {
		s.finishIdempotent(ctx, idemKey, item.ID, reward.ID)
	}

	slog.InfoContext(ctx, "voucher redeemed",
		"user_id", actor.ID,
		"reward_id", reward.ID,
		"catalog_id", item.ID,
		"points", item.Points,
		"balance", result.RemainingPoints,
	)

	return result, nil
}

// AllowRedeem counts one redemption attempt against the caller's window.
// Transports call it before decoding the request so that malformed
// attempts are counted too.
func (s *Service) AllowRedeem(
	ctx context.Context,
	actor core.Identity,
) (ratelimit.Decision, error) {
	if !actor.IsAuthenticated() {
		return ratelimit.Decision{}, fmt.Errorf("redeem: %w", core.ErrUnauthorized)
	}

	decision, err := s.limiter.Allow(
		ctx,
		"redeem:"+actor.ID,
		s.cfg.RedeemLimit,
		s.cfg.RedeemWindow,
	)
	if err != nil {
		return decision, fmt.Errorf("redeem: %w", err)
	}
	if !decision.Allowed {
		return decision, &RateLimitError{Decision: decision}
	}
	return decision, nil
}

// beginIdempotent claims key for a new redemption. It returns the stored
// outcome when the key already finished, and ErrConflict while another
// request holding the key is still running or when the key was used for
// a different catalog item.
//
// The claim only lives for idempotencyClaimTTL so a request that dies
// mid flight frees the key on its own.
func (s *Service) beginIdempotent(
	ctx context.Context,
	key, userID string,
	catalogID int,
) (*RedeemResult, error) {
	claimed, err := s.kv.SetNX(ctx, key, idempotencyPending, idempotencyClaimTTL)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, nil
	}

	val, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found || val == idempotencyPending {
		return nil, fmt.Errorf("idempotency key in use: %w", core.ErrConflict)
	}

	storedCatalog, rewardID, ok := strings.Cut(val, ":")
	if !ok {
		return nil, fmt.Errorf("idempotency key holds %q: %w", val, core.ErrConflict)
	}
	if storedCatalog != strconv.Itoa(catalogID) {
		return nil, fmt.Errorf(
			"idempotency key was used for reward %s: %w",
			storedCatalog,
			core.ErrConflict,
		)
	}

	reward, err := s.store.GetReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward.UserID != userID || reward.CatalogID != catalogID {
		return nil, fmt.Errorf("idempotency key owner mismatch: %w", core.ErrConflict)
	}

	m, err := s.store.GetMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &RedeemResult{
		Reward:          reward,
		RemainingPoints: m.Points,
		MembershipLevel: m.MembershipLevel,
		Replayed:        true,
	}, nil
}

// finishIdempotent records the committed reward under key for the full
// replay TTL. It runs even when the caller has gone away.
func (s *Service) finishIdempotent(ctx context.Context, key string, catalogID int, rewardID string) {
	ctx, cancel := detached(ctx)
	defer cancel()

	val := strconv.Itoa(catalogID) + ":" + rewardID
	if err := s.kv.Set(ctx, key, val, s.idempotencyTTL()); err != nil {
		slog.WarnContext(ctx, "store idempotency result", "key", key, "error", err)
	}
}

func (s *Service) releaseIdempotent(ctx context.Context, key string) {
	ctx, cancel := detached(ctx)
	defer cancel()

	if err := s.kv.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "release idempotency key", "key", key, "error", err)
	}
}

// detached keeps ctx values for logging and tracing but drops its
// cancellation, bounded by kvWriteTimeout.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), kvWriteTimeout)
}

// Adjust applies a signed manual correction. The balance is clamped at
// zero.
func (s *Service) Adjust(
	ctx context.Context,
	actor core.Identity,
	in AdjustInput,
) (result *AdjustResult, err error) {
	ctx, span := core.StartSpan(ctx, "loyalty.Adjust",
		attribute.String("loyalty.user_id", in.UserID),
		attribute.Int64("loyalty.delta", in.Delta),
	)
	defer func() { core.EndSpan(span, err) }()

	if !actor.IsAuthenticated() {
		return nil, fmt.Errorf("adjust: %w", core.ErrUnauthorized)
	}

	reason := strings.TrimSpace(in.Reason)

	switch {
	case in.UserID == "":
		return nil, fmt.Errorf("adjust: %w", core.InvalidField("user_id", "is required"))
	case in.Delta == 0:
		return nil, fmt.Errorf("adjust: %w", core.InvalidField("points", "must not be zero"))
	case reason == "":
		return nil, fmt.Errorf("adjust: %w", core.InvalidField("reason", "is required"))
	}

	if !actor.IsAdmin() {
		return nil, fmt.Errorf("adjust: %w", core.ErrForbidden)
	}

	result = &AdjustResult{UserID: in.UserID, Adjustment: in.Delta}

	err = s.store.WithinTx(ctx, func(repo Repository) error {
		m, err := repo.LockMember(ctx, in.UserID)
		if err != nil {
			return err
		}

		result.OldPoints = m.Points

		next := max(m.Points+in.Delta, 0)
		if _, err := s.applyBalance(ctx, repo, m, next); err != nil {
			return err
		}

		result.NewPoints = m.Points
		result.MembershipLevel = m.MembershipLevel

		verb := "Added"
		if in.Delta < 0 {
			verb = "Deducted"
		}

		return s.appendLog(ctx, repo, m.ID, fmt.Sprintf(
			"%s points manually by admin: %+d points. Reason: %s",
			verb,
			in.Delta,
			reason,
		))
	})
	if err != nil {
		return nil, fmt.Errorf("adjust: %w", err)
	}

	slog.InfoContext(ctx, "points adjusted",
		"user_id", in.UserID,
		"admin_id", actor.ID,
		"delta", in.Delta,
		"old_points", result.OldPoints,
		"new_points", result.NewPoints,
	)

	return result, nil
}

// applyBalance is the only place balances are written. It stores the new
// balance together with its classified level and logs a level change.
func (s *Service) applyBalance(
	ctx context.Context,
	repo Repository,
	m *Member,
	points int64,
) (bool, error) {
	if points < 0 {
		return false, &core.ShortfallError{Have: m.Points, Need: m.Points - points}
	}

	level := Classify(points)
	if err := repo.UpdateBalance(ctx, m.ID, points, level); err != nil {
		return false, err
	}

	previous := m.MembershipLevel
	m.Points = points
	m.MembershipLevel = level

	if level == previous {
		return false, nil
	}

	verb := "Upgraded"
	if levelRank(level) < levelRank(previous) {
		verb = "Downgraded"
	}

	if err := s.appendLog(ctx, repo, m.ID, verb+" to level "+level); err != nil {
		return false, err
	}

	core.AddSpanEvent(ctx, "membership.level_changed",
		attribute.String("user.id", m.ID),
		attribute.String("level.from", previous),
		attribute.String("level.to", level),
	)

	return true, nil
}

func (s *Service) appendLog(
	ctx context.Context,
	repo Repository,
	userID, activity string,
) error {
	return repo.AppendLog(ctx, &MembershipLog{
		ID:       uuid.New().String(),
		UserID:   userID,
		Activity: activity,
	})
}

// RecordActivity appends a free-form entry to a member's log. Sign-in
// and registration go through here.
func (s *Service) RecordActivity(
	ctx context.Context,
	userID, activity string,
) error {
	return s.appendLog(ctx, s.store, userID, activity)
}

// PointRatio returns the currency amount that earns one point. The
// stored setting wins over the configured default and is cached.
func (s *Service) PointRatio(ctx context.Context) (int64, error) {
	if s.kv != nil {
		cached, found, err := s.kv.Get(ctx, pointRatioCacheKey)
		if err != nil {
			slog.WarnContext(ctx, "point ratio cache read failed", "error", err)
		} else if found {
			if ratio, perr := strconv.ParseInt(cached, 10, 64); perr == nil && ratio > 0 {
				return ratio, nil
			}
		}
	}

	ratio := s.cfg.PointRatio

	stored, err := s.store.GetSetting(ctx, settingPointRatio)
	switch {
	case errors.Is(err, core.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		parsed, perr := strconv.ParseInt(stored, 10, 64)
		if perr != nil || parsed <= 0 {
			slog.WarnContext(ctx, "ignoring malformed point ratio setting", "value", stored)
		} else {
			ratio = parsed
		}
	}

	s.cacheRatio(ctx, ratio)

	return ratio, nil
}

func (s *Service) SetPointRatio(
	ctx context.Context,
	actor core.Identity,
	ratio int64,
) (int64, error) {
	if !actor.IsAuthenticated() {
		return 0, fmt.Errorf("set point ratio: %w", core.ErrUnauthorized)
	}
	if ratio <= 0 {
		return 0, fmt.Errorf(
			"set point ratio: %w",
			core.InvalidField("ratio", "must be greater than 0"),
		)
	}
	if !actor.IsAdmin() {
		return 0, fmt.Errorf("set point ratio: %w", core.ErrForbidden)
	}

	if err := s.store.PutSetting(ctx, settingPointRatio, strconv.FormatInt(ratio, 10)); err != nil {
		return 0, fmt.Errorf("set point ratio: %w", err)
	}

	s.cacheRatio(ctx, ratio)

	slog.InfoContext(ctx, "point ratio updated", "ratio", ratio, "admin_id", actor.ID)

	return ratio, nil
}

func (s *Service) cacheRatio(ctx context.Context, ratio int64) {
	if s.kv == nil {
		return
	}

	ttl := s.cfg.RatioCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	if err := s.kv.Set(ctx, pointRatioCacheKey, strconv.FormatInt(ratio, 10), ttl); err != nil {
		slog.WarnContext(ctx, "point ratio cache write failed", "error", err)
	}
}

func (s *Service) idempotencyTTL() time.Duration {
	if s.cfg.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return s.cfg.IdempotencyTTL
}

// scope limits members to their own records. Admins may look at anyone,
// or everyone when no user is given.
func scope(actor core.Identity, params ListParams) (ListParams, error) {
	if !actor.IsAuthenticated() {
		return params, core.ErrUnauthorized
	}

	params.Normalize()

	if params.UserID != "" {
		if _, err := uuid.Parse(params.UserID); err != nil {
			return params, core.InvalidField("user_id", "must be a valid UUID")
		}
	}

	if actor.IsAdmin() {
		return params, nil
	}

	if params.UserID != "" && params.UserID != actor.ID {
		return params, core.ErrForbidden
	}
	params.UserID = actor.ID

	return params, nil
}

func (s *Service) ListTransactions(
	ctx context.Context,
	actor core.Identity,
	params ListParams,
) ([]Transaction, ListParams, int, error) {
	params, err := scope(actor, params)
	if err != nil {
		return nil, params, 0, fmt.Errorf("list transactions: %w", err)
	}

	txs, total, err := s.store.ListTransactions(ctx, params)
	return txs, params, total, err
}

func (s *Service) ListRewards(
	ctx context.Context,
	actor core.Identity,
	params ListParams,
) ([]Reward, ListParams, int, error) {
	params, err := scope(actor, params)
	if err != nil {
		return nil, params, 0, fmt.Errorf("list rewards: %w", err)
	}

	rewards, total, err := s.store.ListRewards(ctx, params)
	return rewards, params, total, err
}

func (s *Service) ListLogs(
	ctx context.Context,
	actor core.Identity,
	params ListParams,
) ([]MembershipLog, ListParams, int, error) {
	params, err := scope(actor, params)
	if err != nil {
		return nil, params, 0, fmt.Errorf("list membership logs: %w", err)
	}

	logs, total, err := s.store.ListLogs(ctx, params)
	return logs, params, total, err
}

func (s *Service) Dashboard(
	ctx context.Context,
	actor core.Identity,
) (*DashboardResponse, error) {
	if !actor.IsAuthenticated() {
		return nil, fmt.Errorf("dashboard: %w", core.ErrUnauthorized)
	}

	m, err := s.store.GetMember(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	own := ListParams{Page: 1, PageSize: dashboardRecentSize, UserID: actor.ID}

	txs, _, err := s.store.ListTransactions(ctx, own)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	own.PageSize = 100
	rewards, _, err := s.store.ListRewards(ctx, own)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	return &DashboardResponse{
		Member:             ToMemberSummary(m),
		RecentTransactions: ToTransactionResponseList(txs),
		Vouchers:           ToRewardResponseList(rewards),
	}, nil
}

func (s *Service) Stats(ctx context.Context, actor core.Identity) (*Stats, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("loyalty stats: %w", core.ErrForbidden)
	}

	stats, err := s.store.Stats(ctx, s.now().Add(-statsWindow))
	if err != nil {
		return nil, fmt.Errorf("loyalty stats: %w", err)
	}

	ratio, err := s.PointRatio(ctx)
	if err != nil {
		return nil, fmt.Errorf("loyalty stats: %w", err)
	}
	stats.PointRatio = ratio

	return stats, nil
}
