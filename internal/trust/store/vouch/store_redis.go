package vouch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"arisan/internal/trust/models"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/sentinel"
	"arisan/pkg/platform/tx"
)

const (
	keyPrefix   = "trust:"
	seqKey      = keyPrefix + "seq"
	maxAttempts = 5

	compensateTimeout = 2 * time.Second
)

// RedisStore keeps each edge in a hash and indexes it in two sorted sets,
// scored by a global sequence so lists come back in creation order.
// Read-check-write sequences run under WATCH/MULTI and retry on contention.
// Redis is outside the SQL transaction, so every write registers a
// compensating write with tx.OnRollback.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

type RedisOption func(*RedisStore)

func WithLogger(logger *slog.Logger) RedisOption {
	return func(s *RedisStore) {
		s.logger = logger
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// redisEdgeKey length-prefixes the voucher so addresses containing separators
// cannot collide.
func redisEdgeKey(voucher, vouchee id.Address) string {
	return fmt.Sprintf("%sedge:%d:%s:%s", keyPrefix, len(voucher), voucher, vouchee)
}

func incomingKey(vouchee id.Address) string { return keyPrefix + "in:" + vouchee.String() }
func outgoingKey(voucher id.Address) string { return keyPrefix + "out:" + voucher.String() }

func (s *RedisStore) Create(ctx context.Context, v *models.Vouch) error {
	key := redisEdgeKey(v.Voucher, v.Vouchee)
	seq, err := s.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("next vouch sequence: %w", err)
	}
	err = s.watch(ctx, key, func(rtx *redis.Tx) error {
		n, err := rtx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return sentinel.ErrAlreadyUsed
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encode(v))
			pipe.ZAdd(ctx, incomingKey(v.Vouchee), redis.Z{Score: float64(seq), Member: v.Voucher.String()})
			pipe.ZAdd(ctx, outgoingKey(v.Voucher), redis.Z{Score: float64(seq), Member: v.Vouchee.String()})
			return nil
		})
		return err
	})
	if err != nil {
		return err
	}
	s.compensate(ctx, "create", func(c context.Context, pipe redis.Pipeliner) {
		pipe.Del(c, key)
		pipe.ZRem(c, incomingKey(v.Vouchee), v.Voucher.String())
		pipe.ZRem(c, outgoingKey(v.Voucher), v.Vouchee.String())
	})
	return nil
}

func (s *RedisStore) Find(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error) {
	fields, err := s.client.HGetAll(ctx, redisEdgeKey(voucher, vouchee)).Result()
	if err != nil {
		return nil, fmt.Errorf("read vouch: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return decode(fields)
}

func (s *RedisStore) Update(ctx context.Context, voucher, vouchee id.Address, fn func(*models.Vouch) error) (*models.Vouch, error) {
	key := redisEdgeKey(voucher, vouchee)
	var updated, before *models.Vouch
	err := s.watch(ctx, key, func(rtx *redis.Tx) error {
		fields, err := rtx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return sentinel.ErrNotFound
		}
		v, err := decode(fields)
		if err != nil {
			return err
		}
		prev := *v
		if err := fn(v); err != nil {
			return err
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encode(v))
			return nil
		})
		if err == nil {
			updated, before = v, &prev
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.compensate(ctx, "update", func(c context.Context, pipe redis.Pipeliner) {
		pipe.HSet(c, key, encode(before))
	})
	return updated, nil
}

func (s *RedisStore) Delete(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error) {
	key := redisEdgeKey(voucher, vouchee)
	var (
		removed       *models.Vouch
		inSeq, outSeq float64
	)
	err := s.watch(ctx, key, func(rtx *redis.Tx) error {
		fields, err := rtx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return sentinel.ErrNotFound
		}
		v, err := decode(fields)
		if err != nil {
			return err
		}
		if inSeq, err = rtx.ZScore(ctx, incomingKey(vouchee), voucher.String()).Result(); err != nil {
			return err
		}
		if outSeq, err = rtx.ZScore(ctx, outgoingKey(voucher), vouchee.String()).Result(); err != nil {
			return err
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, incomingKey(vouchee), voucher.String())
			pipe.ZRem(ctx, outgoingKey(voucher), vouchee.String())
			return nil
		})
		if err == nil {
			removed = v
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.compensate(ctx, "delete", func(c context.Context, pipe redis.Pipeliner) {
		pipe.HSet(c, key, encode(removed))
		pipe.ZAdd(c, incomingKey(vouchee), redis.Z{Score: inSeq, Member: voucher.String()})
		pipe.ZAdd(c, outgoingKey(voucher), redis.Z{Score: outSeq, Member: vouchee.String()})
	})
	return removed, nil
}

// compensate registers undo to run in its own MULTI if the enclosing
// operation fails. It runs after the request context may have ended.
func (s *RedisStore) compensate(ctx context.Context, op string, undo func(context.Context, redis.Pipeliner)) {
	tx.OnRollback(ctx, func() {
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
		defer cancel()
		_, err := s.client.TxPipelined(c, func(pipe redis.Pipeliner) error {
			undo(c, pipe)
			return nil
		})
		if err != nil {
			s.logger.ErrorContext(c, "failed to compensate vouch write",
				"op", op,
				"error", err,
			)
		}
	})
}

func (s *RedisStore) ListIncoming(ctx context.Context, vouchee id.Address) ([]*models.Vouch, error) {
	vouchers, err := s.client.ZRange(ctx, incomingKey(vouchee), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read incoming index: %w", err)
	}
	keys := make([]string, len(vouchers))
	for i, voucher := range vouchers {
		keys[i] = redisEdgeKey(id.Address(voucher), vouchee)
	}
	return s.loadAll(ctx, keys)
}

func (s *RedisStore) ListOutgoing(ctx context.Context, voucher id.Address) ([]*models.Vouch, error) {
	vouchees, err := s.client.ZRange(ctx, outgoingKey(voucher), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read outgoing index: %w", err)
	}
	keys := make([]string, len(vouchees))
	for i, vouchee := range vouchees {
		keys[i] = redisEdgeKey(voucher, id.Address(vouchee))
	}
	return s.loadAll(ctx, keys)
}

// loadAll fetches edges in one round trip. Index entries whose edge vanished
// between the two reads are skipped.
func (s *RedisStore) loadAll(ctx context.Context, keys []string) ([]*models.Vouch, error) {
	if len(keys) == 0 {
		return []*models.Vouch{}, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGetAll(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read vouch edges: %w", err)
	}
	out := make([]*models.Vouch, 0, len(keys))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		v, err := decode(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *RedisStore) watch(ctx context.Context, key string, fn func(*redis.Tx) error) error {
	for range maxAttempts {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return sentinel.ErrConflict
}

func encode(v *models.Vouch) map[string]any {
	return map[string]any{
		"voucher":    v.Voucher.String(),
		"vouchee":    v.Vouchee.String(),
		"weight":     strconv.FormatUint(uint64(v.Weight), 10),
		"note":       v.Note,
		"created_at": v.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": v.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decode(fields map[string]string) (*models.Vouch, error) {
	weight, err := strconv.ParseUint(fields["weight"], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("decode vouch weight: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("decode vouch created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("decode vouch updated_at: %w", err)
	}
	return &models.Vouch{
		Voucher:   id.Address(fields["voucher"]),
		Vouchee:   id.Address(fields["vouchee"]),
		Weight:    uint32(weight),
		Note:      fields["note"],
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}
