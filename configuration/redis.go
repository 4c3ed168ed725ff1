package configuration

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client variable can used to save key value pairs in redis
var Client *redis.Client

// InitRedis function initializes redis server
func InitRedis(addr, password string) {
	var err error
	maxRetries := 5
	retryDelay := time.Second * 5
	for i := 0; i < maxRetries; i++ {
		Client = redis.NewClient(&redis.Options{
			Network:  "tcp",
			Addr:     addr,
			Password: password,
			DB:       0,
		})

		_, err = Client.Ping(context.Background()).Result()
		if err == nil {
			break
		}

		log.Printf("Failed to connect to Redis (Attempt %d/%d): %s\n", i+1, maxRetries, err.Error())
		time.Sleep(retryDelay)
	}
	if err != nil {
		log.Fatal("Failed to connect to Redis after multiple attempts: " + err.Error())
	}
}

// SetRedis will set a key value in redis server
func SetRedis(ctx context.Context, key string, value any, expirationTime time.Duration) error {
	return Client.Set(ctx, key, value, expirationTime).Err()
}

// GetRedis will get the value from redis server using key
func GetRedis(ctx context.Context, key string) (string, error) {
	return Client.Get(ctx, key).Result()
}

// DeleteRedis removes a key from redis
func DeleteRedis(ctx context.Context, key string) error {
	return Client.Del(ctx, key).Err()
}
