package ticket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rainbow-me/logcontext/common/logger"
)

// DefaultRedisKeyPrefix namespaces ticket keys in Redis.
const DefaultRedisKeyPrefix = "cas:tickets:"

// RedisRegistry stores tickets as JSON documents in Redis. Expiring tickets are stored with a
// matching key TTL so Redis evicts them on its own.
type RedisRegistry struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// RedisOption configures RedisRegistry.
type RedisOption func(*RedisRegistry)

// WithKeyPrefix overrides DefaultRedisKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRegistry) {
		r.keyPrefix = prefix
	}
}

func NewRedisRegistry(client redis.UniversalClient, opts ...RedisOption) *RedisRegistry {
	r := &RedisRegistry{
		client:    client,
		keyPrefix: DefaultRedisKeyPrefix,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRegistry) key(id string) string {
	return r.keyPrefix + id
}

func (r *RedisRegistry) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get ticket")
	}

	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		logger.FromContext(ctx).Error("Failed to unmarshal ticket", logger.Error(err))
		return nil, errors.Wrap(err, "failed to unmarshal ticket")
	}
	return &t, nil
}

func (r *RedisRegistry) AddTicket(ctx context.Context, t *Ticket) error {
	if t == nil || t.ID == "" {
		return errors.New("ticket id is required")
	}

	var ttl time.Duration
	if !t.ExpiresAt.IsZero() {
		ttl = t.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			// already expired, nothing worth storing
			return nil
		}
	}

	data, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "failed to marshal ticket")
	}

	if err := r.client.Set(ctx, r.key(t.ID), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set ticket")
	}

	logger.FromContext(ctx).Debug("Ticket stored", logger.Duration("ttl", ttl))
	return nil
}

func (r *RedisRegistry) DeleteTicket(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete ticket")
	}
	return nil
}

// Ping checks the connection to Redis.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
