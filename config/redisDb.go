package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Set once by ConnectRedisWithRetry while requests are already being served.
var (
	rdb    atomic.Pointer[redis.Client]
	locker atomic.Pointer[redislock.Client]
)

// SetRedisClient installs client as the shared redis connection; nil disconnects the L2.
func SetRedisClient(client *redis.Client) {
	if client == nil {
		locker.Store(nil)
		rdb.Store(nil)
		return
	}
	locker.Store(redislock.New(client))
	rdb.Store(client)
}

// GetRedisDB returns nil until ConnectRedisWithRetry succeeds; callers treat nil as "no L2".
func GetRedisDB() *redis.Client {
	return rdb.Load()
}

func GetRedisLock() *redislock.Client {
	return locker.Load()
}

// GetRedisObject decodes the JSON value stored at key into dest.
// Returns false when redis is not connected or the key is missing.
func GetRedisObject(ctx context.Context, key string, dest interface{}) (bool, error) {
	client := GetRedisDB()
	if client == nil {
		return false, nil
	}
	val, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(ctx context.Context, key string, obj interface{}, exp time.Duration) error {
	client := GetRedisDB()
	if client == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, objInByte, exp).Err()
}

// ConnectRedisWithRetry connects and sets the global Redis client + lock client.
// Call this from main() AFTER the HTTP server is listening.
func ConnectRedisWithRetry(ctx context.Context) {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		log.Printf("REDIS_ADDRESS not set; response cache runs without redis")
		return
	}

	var attempt int
	for {
		attempt++
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
			PoolSize: intFromEnv("REDIS_POOL_SIZE", 100),
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			SetRedisClient(client)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return
		}
		_ = client.Close()

		sleep := retryDelay(attempt)
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, redisAddr, err, sleep)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}
