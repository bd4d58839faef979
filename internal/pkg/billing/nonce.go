package billing

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const oauthNonceKeyPrefix = "oauth_state:"

// RedisNonceStore keeps OAuth nonces in Redis with the state TTL.
type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func (s *RedisNonceStore) Remember(ctx context.Context, nonce, guildID string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, oauthNonceKeyPrefix+nonce, guildID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("oauth nonce collision")
	}
	return nil
}

// Consume deletes the nonce and reports whether it was still present.
func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	_, err := s.client.GetDel(ctx, oauthNonceKeyPrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
