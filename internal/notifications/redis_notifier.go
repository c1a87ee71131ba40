package notifications

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Channel other processes subscribe to for view refreshes.
const RefreshChannel = "budgetpal:views:refresh"

type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) ExpensesChanged(ctx context.Context, in ExpensesChangedInput) error {
	payload, err := json.Marshal(in)

	if err != nil {
		return err
	}

	return n.rdb.Publish(ctx, RefreshChannel, payload).Err()
}
