package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seedbuilders/agency-portal-api/internal/config"
)

// Key layout:
// presence:conversation:{service_request_id}:users   SET<user_id>

const keyTTL = 60 * time.Second

// Store tracks which users are currently connected to each conversation.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

func conversationUsersKey(serviceRequestID string) string {
	return fmt.Sprintf("presence:conversation:%s:users", serviceRequestID)
}

// Add marks a user online in a conversation and refreshes the key TTL so
// abandoned sets expire on their own.
func (s *Store) Add(ctx context.Context, serviceRequestID, userID string) error {
	key := conversationUsersKey(serviceRequestID)

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove marks a user offline in a conversation.
func (s *Store) Remove(ctx context.Context, serviceRequestID, userID string) error {
	return s.client.SRem(ctx, conversationUsersKey(serviceRequestID), userID).Err()
}

// List returns the ids of users currently online in a conversation.
func (s *Store) List(ctx context.Context, serviceRequestID string) ([]string, error) {
	return s.client.SMembers(ctx, conversationUsersKey(serviceRequestID)).Result()
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
