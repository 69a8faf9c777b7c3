package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"binacloud/monitor/config"
	"binacloud/monitor/domain"
	"binacloud/monitor/logger"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

const (
	deviceKeyPrefix = "monitor_device:"
	dedupKeyPrefix  = "monitor_event:"
)

// Redis backs the device directory and the bulk-ingest dedup cache.
type Redis struct {
	*redis.Client
	dedupExpirationMS int64
}

var _ domain.DeviceDirectory = Redis{}

// InitRedis initializes the Redis client connection
func InitRedis(cfg *config.RedisConfig) error {
	addr := cfg.GetRedisAddr()

	opts := &redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       0, // default DB
	}

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	redisClient = client
	logger.Info().Msg("Redis connection established successfully")
	return nil
}

// CloseRedis closes the Redis client connection
func CloseRedis() error {
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis connection: %w", err)
		}
		logger.Info().Msg("Redis connection closed")
	}
	return nil
}

// RedisHealthCheck verifies that the Redis connection is alive
func RedisHealthCheck(ctx context.Context) error {
	if redisClient == nil {
		return fmt.Errorf("Redis connection is not initialized")
	}
	return redisClient.Ping(ctx).Err()
}

// GetRedis returns the Redis-backed device directory and dedup cache
func GetRedis(dedupDurationMS int64) Redis {
	return Redis{redisClient, dedupDurationMS}
}

// FindByID looks up a device. Returns (nil, nil) when the device is unknown.
func (r Redis) FindByID(ctx context.Context, id string) (*domain.Device, error) {
	fields, err := r.HGetAll(ctx, deviceKeyPrefix+id).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	return mapDevice(id, fields), nil
}

// UpsertLastSeen records device activity, auto-registering unknown devices
// the way the original monitor registers a device on its first report.
func (r Redis) UpsertLastSeen(ctx context.Context, id string, seenAt time.Time) error {
	key := deviceKeyPrefix + id

	pipe := r.Pipeline()
	pipe.HSetNX(ctx, key, "name", "Dispositivo "+id)
	pipe.HSet(ctx, key,
		"last_seen", seenAt.UTC().Format(time.RFC3339),
		"active", "1",
	)
	_, err := pipe.Exec(ctx)
	return err
}

// FindAll returns every registered device sorted by id.
func (r Redis) FindAll(ctx context.Context) ([]domain.Device, error) {
	var devices []domain.Device

	iter := r.Scan(ctx, 0, deviceKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := r.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		devices = append(devices, *mapDevice(key[len(deviceKeyPrefix):], fields))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	return devices, nil
}

func mapDevice(id string, fields map[string]string) *domain.Device {
	device := &domain.Device{
		ID:     id,
		Name:   fields["name"],
		Active: fields["active"] == "1",
	}
	if device.Name == "" {
		device.Name = id
	}
	if raw, ok := fields["last_seen"]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			device.LastSeen = t.UTC()
		}
	}
	return device
}

func (r Redis) getDedupExpiration() time.Duration {
	if r.dedupExpirationMS <= 0 {
		return 0
	}
	return time.Duration(r.dedupExpirationMS) * time.Millisecond
}

// SetEventsProcessed marks a batch of bulk-ingested events as seen.
func (r Redis) SetEventsProcessed(ctx context.Context, requests []domain.EventRequest) error {
	pipe := r.Pipeline()
	for _, request := range requests {
		key := dedupKeyPrefix + request.GetUniqueKey()
		pipe.SetEx(ctx, key, "1", r.getDedupExpiration())
	}
	_, err := pipe.Exec(ctx)
	return err
}

// AreEventsProcessed reports which of the given events were already ingested.
func (r Redis) AreEventsProcessed(ctx context.Context, requests []domain.EventRequest) (map[string]bool, error) {
	keys := make([]string, len(requests))
	for i, request := range requests {
		keys[i] = dedupKeyPrefix + request.GetUniqueKey()
	}

	results, err := r.MGet(ctx, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	processedMap := make(map[string]bool)
	for i, result := range results {
		if result == nil {
			processedMap[requests[i].GetUniqueKey()] = false
		} else if str, ok := result.(string); ok && str == "1" {
			processedMap[requests[i].GetUniqueKey()] = true
		}
	}
	return processedMap, nil
}
