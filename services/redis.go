package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"passkey_auth_ms/config"

	"github.com/redis/go-redis/v9"
)

type IRedisService interface {
	SetRefreshToken(ctx context.Context, userId uint, refreshToken string) error
	GetRefreshToken(ctx context.Context, userId uint) (string, error)
	DelRefreshToken(ctx context.Context, userId uint)
	StoreMagicLink(ctx context.Context, email string, otpHash string, ttl time.Duration) error
	GetMagicLink(ctx context.Context, email string) (string, error)
	DeleteMagicLink(ctx context.Context, email string) error
}

type RedisService struct {
	rdb *redis.Client
}

func NewRedisService(rdb *redis.Client) *RedisService {
	return &RedisService{rdb: rdb}
}

func (s *RedisService) SetRefreshToken(ctx context.Context, userId uint, refreshToken string) error {
	ttl := time.Duration(config.Conf.Application.Security.TokenValidityInSecondsForRememberMe) * time.Second
	return s.rdb.SetEx(ctx, fmt.Sprintf("refresh_%d", userId), refreshToken, ttl).Err()
}

func (s *RedisService) GetRefreshToken(ctx context.Context, userId uint) (string, error) {
	return s.rdb.Get(ctx, fmt.Sprintf("refresh_%d", userId)).Result()
}

func (s *RedisService) DelRefreshToken(ctx context.Context, userId uint) {
	s.rdb.Del(ctx, fmt.Sprintf("refresh_%d", userId))
}

func magicLinkKey(email string) string {
	return fmt.Sprintf("magiclink:%s", strings.ToLower(email))
}

func (s *RedisService) StoreMagicLink(ctx context.Context, email string, otpHash string, ttl time.Duration) error {
	return s.rdb.Set(ctx, magicLinkKey(email), otpHash, ttl).Err()
}

func (s *RedisService) GetMagicLink(ctx context.Context, email string) (string, error) {
	return s.rdb.Get(ctx, magicLinkKey(email)).Result()
}

func (s *RedisService) DeleteMagicLink(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, magicLinkKey(email)).Err()
}
