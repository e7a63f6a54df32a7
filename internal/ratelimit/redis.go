// AngelaMos | 2026
// redis.go

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript runs the whole fixed-window decision server side so that
// concurrent instances see one counter. Redis key expiry doubles as the
// sweep.
var takeScript = redis.NewScript(`
local count = redis.call('GET', KEYS[1])
if not count then
	redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
	return {1, 1, tonumber(ARGV[2])}
end

count = tonumber(count)
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
	return {1, 1, tonumber(ARGV[2])}
end

if count >= tonumber(ARGV[1]) then
	return {count, 0, ttl}
end

count = redis.call('INCR', KEYS[1])
return {count, 1, ttl}
`)

type RedisStore struct {
	client redis.Scripter
	prefix string
}

func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:fw:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Take(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
	now time.Time,
) (Window, bool, error) {
	res, err := takeScript.Run(
		ctx,
		r.client,
		[]string{r.prefix + key},
		limit,
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Window{}, false, fmt.Errorf("redis fixed window: %w", err)
	}

	if len(res) != 3 {
		return Window{}, false, fmt.Errorf("redis fixed window: unexpected reply %v", res)
	}

	return Window{
		Count:   int(res[0]),
		ResetAt: now.Add(time.Duration(res[2]) * time.Millisecond),
	}, res[1] == 1, nil
}
