package helpers

import (
	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the client used for login session caching. The
// connection is lazy; failures surface on first use and are logged, not
// fatal, because sessions are an optimization over the store of record.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
