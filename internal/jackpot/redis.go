package jackpot

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// scale converts minor units into the integer micro-units stored in redis
const scale = 6

const (
	keyPrefix = "jackpot:pool:"
	indexKey  = "jackpot:pools"
)

// RedisStore keeps pools as scaled integers so that INCRBY and GETSET give
// atomic contribution and claim across every process sharing the server.
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore creates a store on top of an existing client
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func toScaled(d decimal.Decimal) int64 {
	return d.Shift(scale).Truncate(0).IntPart()
}

func fromScaled(n int64) decimal.Decimal {
	return decimal.New(n, -scale)
}

func (s *RedisStore) Ensure(ctx context.Context, id string, seed decimal.Decimal) error {
	pipe := s.rdb.TxPipeline()
	pipe.SetNX(ctx, keyPrefix+id, toScaled(seed), 0)
	pipe.SAdd(ctx, indexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ensure pool %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Contribute(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	ok, err := s.rdb.SIsMember(ctx, indexKey, id).Result()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to check pool %s: %w", id, err)
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}

	n, err := s.rdb.IncrBy(ctx, keyPrefix+id, toScaled(amount)).Result()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to contribute to pool %s: %w", id, err)
	}
	return fromScaled(n), nil
}

func (s *RedisStore) Claim(ctx context.Context, id string, seed decimal.Decimal) (decimal.Decimal, error) {
	n, err := s.rdb.GetSet(ctx, keyPrefix+id, toScaled(seed)).Int64()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to claim pool %s: %w", id, err)
	}
	return fromScaled(n), nil
}

func (s *RedisStore) Amount(ctx context.Context, id string) (decimal.Decimal, error) {
	n, err := s.rdb.Get(ctx, keyPrefix+id).Int64()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read pool %s: %w", id, err)
	}
	return fromScaled(n), nil
}

func (s *RedisStore) Snapshot(ctx context.Context) (map[string]decimal.Decimal, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	out := make(map[string]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pools: %w", err)
	}

	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(str)
		if err != nil {
			return nil, fmt.Errorf("corrupt pool %s: %w", ids[i], err)
		}
		out[ids[i]] = d.Shift(-scale)
	}
	return out, nil
}
