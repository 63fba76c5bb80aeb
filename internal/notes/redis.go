package notes

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9" // Redis client
)

// RedisIndex keeps one hash of note vectors per user, scored client-side.
// Fine for per-user note volumes; a dedicated vector store can replace it
// behind the same interface.
type RedisIndex struct {
	rdb *redis.Client
}

// NewRedisIndex builds an Index over Redis.
func NewRedisIndex(rdb *redis.Client) *RedisIndex {
	return &RedisIndex{rdb: rdb}
}

func indexKey(userID uint) string {
	return "notes:user:" + strconv.Itoa(int(userID))
}

// Upsert stores or replaces the vector for a transaction.
func (i *RedisIndex) Upsert(ctx context.Context, userID uint, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	field := strconv.Itoa(int(e.TransactionID))
	return i.rdb.HSet(ctx, indexKey(userID), field, b).Err()
}

// Search loads the user's vectors and returns the k nearest by cosine.
func (i *RedisIndex) Search(ctx context.Context, userID uint, vector []float64, k int) ([]Match, error) {
	raw, err := i.rdb.HGetAll(ctx, indexKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, v := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue // Skip rows that fail to decode
		}
		entries = append(entries, e)
	}
	return rank(entries, vector, k), nil
}
