package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hardqode/losb-back/internal/config"
	"github.com/hardqode/losb-back/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoPending: заявки нет, не запрашивалась, истек TTL или код уже
	// использован.
	ErrNoPending = errors.New("no pending verification")
	// ErrCodeMismatch: код или номер не совпали с заявкой.
	ErrCodeMismatch = errors.New("verification code mismatch")
)

// Сценарий сравнивает код и номер с сохраненной заявкой и удаляет ключ
// только при полном совпадении, поэтому из конкурентных подтверждений
// выигрывает ровно одно. Номер сравнивается как число: cjson декодирует
// его в double, точный до 2^53, а валидация сервиса держит номера в
// пределах 15 цифр (E.164).
var consumeScript = redis.NewScript(`
local val = redis.call('GET', KEYS[1])
if not val then
    return false
end
local data = cjson.decode(val)
if data['otp'] == ARGV[1]
    and data['phone']['code'] == tonumber(ARGV[2])
    and data['phone']['number'] == tonumber(ARGV[3]) then
    redis.call('DEL', KEYS[1])
    return val
end
return 'MISMATCH'
`)

type RedisVerificationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisVerificationStore(client *redis.Client, ttl time.Duration) *RedisVerificationStore {
	return &RedisVerificationStore{
		client: client,
		ttl:    ttl,
	}
}

func verificationKey(telegramID int64) string {
	return fmt.Sprintf("phone_verification:%d", telegramID)
}

func (r *RedisVerificationStore) Put(ctx context.Context, pv *models.PendingVerification) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(pv)
	if err != nil {
		return fmt.Errorf("failed to marshal pending verification: %w", err)
	}

	// SET перезаписывает предыдущую заявку пользователя и взводит TTL заново
	if err := r.client.Set(ctx, verificationKey(pv.TelegramID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set pending verification in redis: %w", err)
	}
	return nil
}

func (r *RedisVerificationStore) Consume(ctx context.Context, telegramID int64, otp string, phone models.Phone) (*models.PendingVerification, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	res, err := consumeScript.Run(ctx, r.client,
		[]string{verificationKey(telegramID)},
		otp,
		strconv.Itoa(phone.Code),
		strconv.FormatInt(phone.Number, 10),
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume pending verification: %w", err)
	}

	raw, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected consume script reply: %v", res)
	}
	if raw == "MISMATCH" {
		return nil, ErrCodeMismatch
	}

	var pv models.PendingVerification
	if err := json.Unmarshal([]byte(raw), &pv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending verification: %w", err)
	}
	return &pv, nil
}

func (r *RedisVerificationStore) Clear(ctx context.Context, telegramID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, verificationKey(telegramID)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending verification: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
