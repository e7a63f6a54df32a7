// AngelaMos | 2026
// service_test.go

package loyalty

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/poin-lunak/internal/config"
	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/ratelimit"
)

var (
	admin  = core.Identity{ID: "admin-1", Role: core.RoleAdmin}
	member = core.Identity{ID: "m1", Role: core.RoleMember}
)

func testConfig() config.LoyaltyConfig {
	return config.LoyaltyConfig{
		PointRatio:         1000,
		VoucherPrefix:      "POIN",
		VoucherMaxAttempts: 10,
		RedeemLimit:        5,
		RedeemWindow:       time.Minute,
		IdempotencyTTL:     time.Hour,
		RatioCacheTTL:      time.Minute,
	}
}

func newTestService(t *testing.T) (*Service, *memStore, *memKV) {
	t.Helper()

	store := newMemStore()
	kv := newMemKV()
	limiter := ratelimit.New(ratelimit.NewMemoryStore())

	return NewService(store, limiter, kv, testConfig()), store, kv
}

func award(t *testing.T, svc *Service, userID, amount string) *AwardResult {
	t.Helper()

	res, err := svc.Award(context.Background(), admin, AwardInput{
		UserID:           userID,
		TotalItem:        1,
		TotalTransaction: decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return res
}

func TestAwardEndToEnd(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)

	res, err := svc.Award(context.Background(), admin, AwardInput{
		UserID:           "m1",
		TotalItem:        3,
		TotalTransaction: decimal.NewFromInt(125000),
		Items:            "Nasi goreng, es teh",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(125), res.PointsGained)
	assert.Equal(t, int64(125), res.NewTotalPoints)
	assert.Equal(t, LevelBronze, res.MembershipLevel)
	assert.False(t, res.LevelChanged)
	require.NotNil(t, res.Transaction.Items)
	assert.Equal(t, "Nasi goreng, es teh", *res.Transaction.Items)

	m := store.member("m1")
	assert.Equal(t, int64(125), m.Points)
	assert.Equal(t, LevelBronze, m.MembershipLevel)

	txs, rewards, logs := store.counts()
	assert.Equal(t, 1, txs)
	assert.Equal(t, 0, rewards)
	assert.Equal(t, 1, logs)
	assert.Equal(t, []string{"Transaction 125000.00 - earned 125 points"}, store.logsFor("m1"))
}

func TestAwardUpgradesLevel(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 4900)

	res := award(t, svc, "m1", "200000")

	assert.Equal(t, int64(5100), res.NewTotalPoints)
	assert.Equal(t, LevelSilver, res.MembershipLevel)
	assert.True(t, res.LevelChanged)
	assert.Equal(t, []string{
		"Upgraded to level SILVER",
		"Transaction 200000.00 - earned 200 points",
	}, store.logsFor("m1"))
}

func TestAwardBelowRatioEarnsNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 10)

	res := award(t, svc, "m1", "999")

	assert.Equal(t, int64(0), res.PointsGained)
	assert.Equal(t, int64(10), res.NewTotalPoints)

	txs, _, _ := store.counts()
	assert.Equal(t, 1, txs)
}

func TestAwardLogsExactAmount(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)

	award(t, svc, "m1", "999.99")

	assert.Equal(t, []string{"Transaction 999.99 - earned 0 points"}, store.logsFor("m1"))
}

func TestAwardAuthorization(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)
	ctx := context.Background()
	in := AwardInput{UserID: "m1", TotalItem: 1, TotalTransaction: decimal.NewFromInt(5000)}

	_, err := svc.Award(ctx, core.Identity{}, in)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = svc.Award(ctx, member, in)
	assert.ErrorIs(t, err, core.ErrForbidden)

	txs, _, logs := store.counts()
	assert.Zero(t, txs)
	assert.Zero(t, logs)
	assert.Equal(t, int64(0), store.member("m1").Points)
}

func TestAwardValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)
	ctx := context.Background()

	tests := []struct {
		name string
		in   AwardInput
	}{
		{"missing user", AwardInput{TotalItem: 1, TotalTransaction: decimal.NewFromInt(1000)}},
		{"zero items", AwardInput{UserID: "m1", TotalTransaction: decimal.NewFromInt(1000)}},
		{"zero amount", AwardInput{UserID: "m1", TotalItem: 1, TotalTransaction: decimal.Zero}},
		{"negative amount", AwardInput{UserID: "m1", TotalItem: 1, TotalTransaction: decimal.NewFromInt(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Award(ctx, admin, tt.in)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}

	txs, _, _ := store.counts()
	assert.Zero(t, txs)
}

func TestAwardUnknownMember(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.Award(context.Background(), admin, AwardInput{
		UserID:           "ghost",
		TotalItem:        1,
		TotalTransaction: decimal.NewFromInt(5000),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	txs, _, _ := store.counts()
	assert.Zero(t, txs)
}

func TestAwardUsesStoredRatio(t *testing.T) {
	svc, store, kv := newTestService(t)
	store.addMember("m1", 0)
	ctx := context.Background()

	ratio, err := svc.SetPointRatio(ctx, admin, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), ratio)

	cached, found, _ := kv.Get(ctx, pointRatioCacheKey)
	assert.True(t, found)
	assert.Equal(t, "500", cached)

	res := award(t, svc, "m1", "125000")
	assert.Equal(t, int64(250), res.PointsGained)
}

func TestSetPointRatioRules(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetPointRatio(ctx, admin, 0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.SetPointRatio(ctx, member, 500)
	assert.ErrorIs(t, err, core.ErrForbidden)

	ratio, err := svc.PointRatio(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultPointRatio, ratio)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 900)

	_, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInsufficientPoints)

	var shortfall *core.ShortfallError
	require.True(t, errors.As(err, &shortfall))
	assert.Equal(t, int64(900), shortfall.Have)
	assert.Equal(t, int64(1000), shortfall.Need)

	assert.Equal(t, int64(900), store.member("m1").Points)
	_, rewards, logs := store.counts()
	assert.Zero(t, rewards)
	assert.Zero(t, logs)
}

func TestRedeemExactBalance(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 1000)

	res, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.RemainingPoints)
	assert.Equal(t, LevelBronze, res.MembershipLevel)
	assert.Equal(t, "Voucher Diskon 10%", res.Reward.RewardName)
	assert.Equal(t, int64(1000), res.Reward.PointsRequired)
	assert.Equal(t, RewardAvailable, res.Reward.Status)
	assert.True(t, ValidCode("POIN", res.Reward.Code), "code %q", res.Reward.Code)
	assert.False(t, res.Replayed)
	assert.True(t, res.Limit.Allowed)
	assert.Equal(t, 4, res.Limit.Remaining)

	assert.Equal(t, int64(0), store.member("m1").Points)
	assert.Equal(t, []string{"Redeemed 1000 points for Voucher Diskon 10%"}, store.logsFor("m1"))
}

func TestSequentialRedeems(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 3500)
	ctx := context.Background()

	res, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.RemainingPoints)

	_, err = svc.Redeem(ctx, member, RedeemInput{RewardID: 2})
	assert.ErrorIs(t, err, core.ErrInsufficientPoints)

	res, err = svc.Redeem(ctx, member, RedeemInput{RewardID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RemainingPoints)

	_, rewards, _ := store.counts()
	assert.Equal(t, 2, rewards)
	assert.Equal(t, int64(0), store.member("m1").Points)
}

func TestRedeemDowngradesLevel(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 10500)

	res, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 4})
	require.NoError(t, err)

	assert.Equal(t, int64(500), res.RemainingPoints)
	assert.Equal(t, LevelBronze, res.MembershipLevel)
	assert.Equal(t, LevelBronze, store.member("m1").MembershipLevel)
	assert.Equal(t, []string{
		"Downgraded to level BRONZE",
		"Redeemed 10000 points for Voucher Gratis 2 Porsi",
	}, store.logsFor("m1"))
}

func TestRedeemUnknownReward(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 50000)
	ctx := context.Background()

	_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 99})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Redeem(ctx, member, RedeemInput{RewardID: 0})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Equal(t, int64(50000), store.member("m1").Points)
}

func TestRedeemRequiresIdentity(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Redeem(context.Background(), core.Identity{}, RedeemInput{RewardID: 1})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestRedeemRateLimited(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 100000)
	ctx := context.Background()

	for i := range 5 {
		_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 1})
		require.NoError(t, err, "redeem %d", i+1)
	}

	_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRateLimited)

	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.False(t, rle.Decision.Allowed)
	assert.Equal(t, 5, rle.Decision.Limit)
	assert.Equal(t, 0, rle.Decision.Remaining)

	assert.Equal(t, int64(95000), store.member("m1").Points)
	_, rewards, _ := store.counts()
	assert.Equal(t, 5, rewards)
}

func TestRedeemRateLimitCountsFailedAttempts(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)
	ctx := context.Background()

	for range 5 {
		_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 1})
		assert.ErrorIs(t, err, core.ErrInsufficientPoints)
	}

	_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 1})
	assert.ErrorIs(t, err, core.ErrRateLimited)
}

func TestRedeemRateLimitIsPerUser(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 100000)
	store.addMember("m2", 100000)
	ctx := context.Background()
	other := core.Identity{ID: "m2", Role: core.RoleMember}

	for range 5 {
		_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 1})
		require.NoError(t, err)
	}

	_, err := svc.Redeem(ctx, other, RedeemInput{RewardID: 1})
	assert.NoError(t, err)
}

func TestRedeemIdempotentReplay(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 3000)
	ctx := context.Background()
	in := RedeemInput{RewardID: 1, IdempotencyKey: "order-42"}

	first, err := svc.Redeem(ctx, member, in)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := svc.Redeem(ctx, member, in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Reward.ID, second.Reward.ID)
	assert.Equal(t, first.Reward.Code, second.Reward.Code)
	assert.Equal(t, int64(2000), second.RemainingPoints)

	assert.Equal(t, int64(2000), store.member("m1").Points)
	_, rewards, _ := store.counts()
	assert.Equal(t, 1, rewards)
}

func TestRedeemIdempotencyKeyInFlight(t *testing.T) {
	svc, store, kv := newTestService(t)
	store.addMember("m1", 3000)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "idem:redeem:m1:dup", idempotencyPending, time.Hour))

	_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 1, IdempotencyKey: "dup"})
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, int64(3000), store.member("m1").Points)
}

func TestRedeemFailureReleasesIdempotencyKey(t *testing.T) {
	svc, store, kv := newTestService(t)
	store.addMember("m1", 100)
	ctx := context.Background()

	_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 1, IdempotencyKey: "retry-me"})
	assert.ErrorIs(t, err, core.ErrInsufficientPoints)

	_, found, _ := kv.Get(ctx, "idem:redeem:m1:retry-me")
	assert.False(t, found)
}

func TestRedeemIdempotencyKeyBoundToReward(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 5000)
	ctx := context.Background()

	_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 1, IdempotencyKey: "order-7"})
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, member, RedeemInput{RewardID: 2, IdempotencyKey: "order-7"})
	assert.ErrorIs(t, err, core.ErrConflict)

	assert.Equal(t, int64(4000), store.member("m1").Points)
	_, rewards, _ := store.counts()
	assert.Equal(t, 1, rewards)
}

func TestRedeemIdempotencyClaimExpiresQuickly(t *testing.T) {
	store := newMemStore()
	store.addMember("m1", 3000)
	kv := newCtxKV()
	svc := NewService(store, ratelimit.New(ratelimit.NewMemoryStore()), kv, testConfig())

	res, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 1, IdempotencyKey: "k1"})
	require.NoError(t, err)

	key := "idem:redeem:m1:k1"
	assert.Equal(t, []time.Duration{idempotencyClaimTTL, time.Hour}, kv.ttls[key])
	assert.Equal(t, "1:"+res.Reward.ID, kv.data[key])
}

// cancelledStore fails every unit of work the way a dropped client
// connection does: the request context is cancelled first.
type cancelledStore struct {
	*memStore
	cancel context.CancelFunc
}

func (s cancelledStore) WithinTx(ctx context.Context, _ func(Repository) error) error {
	s.cancel()
	return ctx.Err()
}

func TestRedeemCancelledRequestReleasesIdempotencyKey(t *testing.T) {
	store := newMemStore()
	store.addMember("m1", 3000)
	kv := newCtxKV()
	limiter := ratelimit.New(ratelimit.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broken := NewService(cancelledStore{memStore: store, cancel: cancel}, limiter, kv, testConfig())
	_, err := broken.Redeem(ctx, member, RedeemInput{RewardID: 1, IdempotencyKey: "retry"})
	require.ErrorIs(t, err, context.Canceled)

	_, found, err := kv.Get(context.Background(), "idem:redeem:m1:retry")
	require.NoError(t, err)
	assert.False(t, found)

	svc := NewService(store, limiter, kv, testConfig())
	res, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 1, IdempotencyKey: "retry"})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, int64(2000), store.member("m1").Points)
}

func TestRedeemAdmittedSkipsSecondCount(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 100000)
	ctx := context.Background()

	for range 5 {
		d, err := svc.AllowRedeem(ctx, member)
		require.NoError(t, err)
		_, err = svc.Redeem(ctx, member, RedeemInput{RewardID: 1, Admitted: &d})
		require.NoError(t, err)
	}

	_, err := svc.AllowRedeem(ctx, member)
	var limited *RateLimitError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 0, limited.Decision.Remaining)
}

func TestRedeemRollsBackWhenLogFails(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 5000)
	store.failAppendLog = errors.New("log insert failed")

	_, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 1})
	require.Error(t, err)

	m := store.member("m1")
	assert.Equal(t, int64(5000), m.Points)
	assert.Equal(t, LevelSilver, m.MembershipLevel)
	_, rewards, logs := store.counts()
	assert.Zero(t, rewards)
	assert.Zero(t, logs)
}

func TestConcurrentRedeemsNeverOverdraw(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 2500)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)

	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, core.ErrInsufficientPoints):
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 3, short)
	assert.Equal(t, int64(500), store.member("m1").Points)
}

func TestAdjustClampsAtZero(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 50)

	res, err := svc.Adjust(context.Background(), admin, AdjustInput{
		UserID: "m1",
		Delta:  -1000,
		Reason: "koreksi saldo",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50), res.OldPoints)
	assert.Equal(t, int64(0), res.NewPoints)
	assert.Equal(t, int64(-1000), res.Adjustment)
	assert.Equal(t, int64(0), store.member("m1").Points)
	assert.Equal(t, []string{
		"Deducted points manually by admin: -1000 points. Reason: koreksi saldo",
	}, store.logsFor("m1"))
}

func TestAdjustAddsAndReclassifies(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)

	res, err := svc.Adjust(context.Background(), admin, AdjustInput{
		UserID: "m1",
		Delta:  10000,
		Reason: "bonus event",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10000), res.NewPoints)
	assert.Equal(t, LevelGold, res.MembershipLevel)
	assert.Equal(t, []string{
		"Upgraded to level GOLD",
		"Added points manually by admin: +10000 points. Reason: bonus event",
	}, store.logsFor("m1"))
}

func TestAdjustRules(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 100)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, member, AdjustInput{UserID: "m1", Delta: 10, Reason: "self service"})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.Adjust(ctx, admin, AdjustInput{UserID: "m1", Delta: 0, Reason: "nothing here"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Adjust(ctx, admin, AdjustInput{UserID: "m1", Delta: 5, Reason: "   "})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Adjust(ctx, admin, AdjustInput{UserID: "ghost", Delta: 5, Reason: "missing member"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, int64(100), store.member("m1").Points)
}

func TestLevelAlwaysMatchesPoints(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)
	ctx := context.Background()

	steps := []func(){
		func() { award(t, svc, "m1", "4999000") },
		func() { award(t, svc, "m1", "1000") },
		func() {
			_, err := svc.Adjust(ctx, admin, AdjustInput{UserID: "m1", Delta: 5000, Reason: "promo gold"})
			require.NoError(t, err)
		},
		func() {
			_, err := svc.Redeem(ctx, member, RedeemInput{RewardID: 3})
			require.NoError(t, err)
		},
		func() {
			_, err := svc.Adjust(ctx, admin, AdjustInput{UserID: "m1", Delta: -99999, Reason: "reset saldo"})
			require.NoError(t, err)
		},
	}

	for _, step := range steps {
		step()
		m := store.member("m1")
		assert.GreaterOrEqual(t, m.Points, int64(0))
		assert.Equal(t, Classify(m.Points), m.MembershipLevel, "points=%d", m.Points)
	}
}

func TestListScope(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)
	store.addMember("m2", 0)
	award(t, svc, "m1", "10000")
	award(t, svc, "m2", "20000")
	ctx := context.Background()

	txs, params, total, err := svc.ListTransactions(ctx, member, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, "m1", params.UserID)
	assert.Equal(t, 1, total)
	require.Len(t, txs, 1)
	assert.Equal(t, "m1", txs[0].UserID)

	_, _, _, err = svc.ListTransactions(ctx, member, ListParams{UserID: memberID})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, _, _, err = svc.ListTransactions(ctx, admin, ListParams{UserID: "abc"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, _, total, err = svc.ListTransactions(ctx, admin, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, _, _, err = svc.ListLogs(ctx, core.Identity{}, ListParams{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestDashboard(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)
	award(t, svc, "m1", "6000000")

	_, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 1})
	require.NoError(t, err)

	dash, err := svc.Dashboard(context.Background(), member)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), dash.Member.Points)
	assert.Equal(t, LevelSilver, dash.Member.MembershipLevel)
	assert.Len(t, dash.RecentTransactions, 1)
	assert.Len(t, dash.Vouchers, 1)
}

func TestRecordActivity(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)

	require.NoError(t, svc.RecordActivity(context.Background(), "m1", "Logged in"))
	assert.Equal(t, []string{"Logged in"}, store.logsFor("m1"))
}

func TestStats(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addMember("m1", 0)
	award(t, svc, "m1", "3000000")

	_, err := svc.Redeem(context.Background(), member, RedeemInput{RewardID: 2})
	require.NoError(t, err)

	_, err = svc.Stats(context.Background(), member)
	assert.ErrorIs(t, err, core.ErrForbidden)

	stats, err := svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTransactions)
	assert.Equal(t, int64(3000), stats.TotalPointsIssued)
	assert.Equal(t, int64(2500), stats.TotalPointsRedeemed)
	assert.Equal(t, DefaultPointRatio, stats.PointRatio)
}
