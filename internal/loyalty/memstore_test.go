// AngelaMos | 2026
// memstore_test.go

package loyalty

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

// memData is the state behind memStore. Members are stored by value so a
// shallow copy of the maps and slices is a full snapshot.
type memData struct {
	members  map[string]Member
	txs      []Transaction
	rewards  []Reward
	logs     []MembershipLog
	settings map[string]string
}

func (d *memData) clone() memData {
	return memData{
		members:  maps.Clone(d.members),
		txs:      slices.Clone(d.txs),
		rewards:  slices.Clone(d.rewards),
		logs:     slices.Clone(d.logs),
		settings: maps.Clone(d.settings),
	}
}

// memStore is an in-memory Store. WithinTx holds one lock for the whole
// unit of work, which models the row lock, and restores a snapshot when
// fn fails.
type memStore struct {
	mu   sync.Mutex
	data memData

	failAppendLog error
}

func newMemStore() *memStore {
	return &memStore{
		data: memData{
			members:  make(map[string]Member),
			settings: make(map[string]string),
		},
	}
}

func (s *memStore) addMember(id string, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.members[id] = Member{
		ID:              id,
		Name:            "Member " + id,
		Email:           id + "@example.com",
		Role:            core.RoleMember,
		Points:          points,
		MembershipLevel: Classify(points),
		Status:          "active",
	}
}

func (s *memStore) member(id string) Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.members[id]
}

func (s *memStore) logsFor(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.data.logs {
		if l.UserID == id {
			out = append(out, l.Activity)
		}
	}
	return out
}

func (s *memStore) counts() (txs, rewards, logs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.txs), len(s.data.rewards), len(s.data.logs)
}

func (s *memStore) repo() *memRepo {
	return &memRepo{d: &s.data, failAppendLog: s.failAppendLog}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.repo()); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *memStore) LockMember(ctx context.Context, id string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().LockMember(ctx, id)
}

func (s *memStore) GetMember(ctx context.Context, id string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().GetMember(ctx, id)
}

func (s *memStore) UpdateBalance(ctx context.Context, id string, points int64, level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().UpdateBalance(ctx, id, points, level)
}

func (s *memStore) CreateTransaction(ctx context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().CreateTransaction(ctx, tx)
}

func (s *memStore) CreateReward(ctx context.Context, reward *Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().CreateReward(ctx, reward)
}

func (s *memStore) GetReward(ctx context.Context, id string) (*Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().GetReward(ctx, id)
}

func (s *memStore) CodeExists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().CodeExists(ctx, code)
}

func (s *memStore) AppendLog(ctx context.Context, entry *MembershipLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().AppendLog(ctx, entry)
}

func (s *memStore) ListTransactions(ctx context.Context, p ListParams) ([]Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().ListTransactions(ctx, p)
}

func (s *memStore) ListRewards(ctx context.Context, p ListParams) ([]Reward, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().ListRewards(ctx, p)
}

func (s *memStore) ListLogs(ctx context.Context, p ListParams) ([]MembershipLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().ListLogs(ctx, p)
}

func (s *memStore) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().GetSetting(ctx, key)
}

func (s *memStore) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().PutSetting(ctx, key, value)
}

func (s *memStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().Stats(ctx, since)
}

type memRepo struct {
	d             *memData
	failAppendLog error
}

func (r *memRepo) LockMember(ctx context.Context, id string) (*Member, error) {
	return r.GetMember(ctx, id)
}

func (r *memRepo) GetMember(_ context.Context, id string) (*Member, error) {
	m, ok := r.d.members[id]
	if !ok {
		return nil, fmt.Errorf("get member: %w", core.ErrNotFound)
	}
	return &m, nil
}

func (r *memRepo) UpdateBalance(_ context.Context, id string, points int64, level string) error {
	m, ok := r.d.members[id]
	if !ok {
		return fmt.Errorf("update balance: %w", core.ErrNotFound)
	}
	if points < 0 {
		return errors.New("points check constraint violated")
	}
	m.Points = points
	m.MembershipLevel = level
	r.d.members[id] = m
	return nil
}

func (r *memRepo) CreateTransaction(_ context.Context, tx *Transaction) error {
	tx.CreatedAt = time.Now()
	r.d.txs = append(r.d.txs, *tx)
	return nil
}

func (r *memRepo) CreateReward(_ context.Context, reward *Reward) error {
	for _, existing := range r.d.rewards {
		if existing.Code == reward.Code {
			return fmt.Errorf("create reward: %w", core.ErrConflict)
		}
	}
	reward.CreatedAt = time.Now()
	r.d.rewards = append(r.d.rewards, *reward)
	return nil
}

func (r *memRepo) GetReward(_ context.Context, id string) (*Reward, error) {
	for _, rw := range r.d.rewards {
		if rw.ID == id {
			return &rw, nil
		}
	}
	return nil, fmt.Errorf("get reward: %w", core.ErrNotFound)
}

func (r *memRepo) CodeExists(_ context.Context, code string) (bool, error) {
	for _, rw := range r.d.rewards {
		if rw.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) AppendLog(_ context.Context, entry *MembershipLog) error {
	if r.failAppendLog != nil {
		return r.failAppendLog
	}
	entry.ActivityTime = time.Now()
	r.d.logs = append(r.d.logs, *entry)
	return nil
}

func page[T any](items []T, p ListParams, owner func(T) string) ([]T, int) {
	p.Normalize()
	var filtered []T
	for _, it := range items {
		if p.UserID == "" || owner(it) == p.UserID {
			filtered = append(filtered, it)
		}
	}
	slices.Reverse(filtered)

	total := len(filtered)
	start := min(p.Offset(), total)
	end := min(start+p.PageSize, total)
	return filtered[start:end], total
}

func (r *memRepo) ListTransactions(_ context.Context, p ListParams) ([]Transaction, int, error) {
	out, total := page(r.d.txs, p, func(t Transaction) string { return t.UserID })
	return out, total, nil
}

func (r *memRepo) ListRewards(_ context.Context, p ListParams) ([]Reward, int, error) {
	out, total := page(r.d.rewards, p, func(rw Reward) string { return rw.UserID })
	return out, total, nil
}

func (r *memRepo) ListLogs(_ context.Context, p ListParams) ([]MembershipLog, int, error) {
	out, total := page(r.d.logs, p, func(l MembershipLog) string { return l.UserID })
	return out, total, nil
}

func (r *memRepo) GetSetting(_ context.Context, key string) (string, error) {
	v, ok := r.d.settings[key]
	if !ok {
		return "", fmt.Errorf("get setting: %w", core.ErrNotFound)
	}
	return v, nil
}

func (r *memRepo) PutSetting(_ context.Context, key, value string) error {
	r.d.settings[key] = value
	return nil
}

func (r *memRepo) Stats(_ context.Context, _ time.Time) (*Stats, error) {
	st := &Stats{
		TotalUsers:        len(r.d.members),
		TotalTransactions: len(r.d.txs),
	}
	for _, t := range r.d.txs {
		st.TotalPointsIssued += t.PointsGained
	}
	for _, rw := range r.d.rewards {
		st.TotalPointsRedeemed += rw.PointsRequired
	}
	return st, nil
}

// memKV is a KeyValue without expiry.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (k *memKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[key]
	return v, ok, nil
}

func (k *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = value
	return nil
}

func (k *memKV) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.data[key]; ok {
		return false, nil
	}
	k.data[key] = value
	return true, nil
}

func (k *memKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}

// ctxKV is a memKV that refuses cancelled contexts, as go-redis does,
// and records the TTL of every write per key.
type ctxKV struct {
	*memKV
	ttls map[string][]time.Duration
}

func newCtxKV() *ctxKV {
	return &ctxKV{memKV: newMemKV(), ttls: make(map[string][]time.Duration)}
}

func (k *ctxKV) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return k.memKV.Get(ctx, key)
}

func (k *ctxKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k.record(key, ttl)
	return k.memKV.Set(ctx, key, value, ttl)
}

func (k *ctxKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := k.memKV.SetNX(ctx, key, value, ttl)
	if ok {
		k.record(key, ttl)
	}
	return ok, err
}

func (k *ctxKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.memKV.Delete(ctx, key)
}

func (k *ctxKV) record(key string, ttl time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ttls[key] = append(k.ttls[key], ttl)
}

var (
	_ Store    = (*memStore)(nil)
	_ KeyValue = (*memKV)(nil)
	_ KeyValue = (*ctxKV)(nil)
)
