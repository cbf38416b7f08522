package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"tryon-canvas-server/modules/common/config"
)

// GuestLimitTTL - 비회원 사용 기록 유지 시간
const GuestLimitTTL = 24 * time.Hour

// Connect - Redis 연결 생성 (REDIS_HOST 없으면 nil)
func Connect(cfg *config.Config) *redis.Client {
	if cfg.RedisHost == "" {
		log.Printf("⚠️  REDIS_HOST not set - guest limit disabled")
		return nil
	}

	log.Printf("🔌 Connecting to Redis: %s", cfg.GetRedisAddr())

	// TLS 설정
	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// 연결 테스트
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("❌ Redis ping failed: %v", err)
		_ = rdb.Close()
		return nil
	}

	log.Printf("✅ Redis connected")
	return rdb
}

// GuestUsage - 비회원 사용 기록
type GuestUsage struct {
	SessionID   string    `json:"sessionId"`
	UsedCount   int       `json:"usedCount"`
	MaxCount    int       `json:"maxCount"`
	FirstUsedAt time.Time `json:"firstUsedAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

// GuestLimiter - 비회원 생성 횟수 제한
type GuestLimiter struct {
	rdb *redis.Client
	max int
	ttl time.Duration
}

// NewGuestLimiter - rdb 가 nil 이면 제한 없음 (개발 환경)
func NewGuestLimiter(rdb *redis.Client, max int) *GuestLimiter {
	return &GuestLimiter{rdb: rdb, max: max, ttl: GuestLimitTTL}
}

func guestKey(sessionID string) string {
	return fmt.Sprintf("guest:usage:%s", sessionID)
}

// Check - 비회원 사용 제한 확인 (limitReached 반환)
func (g *GuestLimiter) Check(ctx context.Context, sessionID string) (*GuestUsage, bool, error) {
	if g == nil || g.rdb == nil || g.max <= 0 {
		return &GuestUsage{SessionID: sessionID, MaxCount: 0}, false, nil
	}

	data, err := g.rdb.Get(ctx, guestKey(sessionID)).Result()
	if err == redis.Nil {
		// 첫 사용
		now := time.Now()
		return &GuestUsage{SessionID: sessionID, MaxCount: g.max, FirstUsedAt: now, LastUsedAt: now}, false, nil
	}
	if err != nil {
		log.Printf("⚠️  [Guest] Redis error: %v", err)
		return nil, false, err
	}

	var usage GuestUsage
	if err := json.Unmarshal([]byte(data), &usage); err != nil {
		log.Printf("⚠️  [Guest] Failed to parse guest usage: %v", err)
		return nil, false, err
	}
	usage.MaxCount = g.max

	return &usage, usage.UsedCount >= g.max, nil
}

// Increment - 성공한 생성 1회 기록
func (g *GuestLimiter) Increment(ctx context.Context, sessionID string) (*GuestUsage, error) {
	if g == nil || g.rdb == nil || g.max <= 0 {
		return &GuestUsage{SessionID: sessionID, UsedCount: 1}, nil
	}

	usage, _, err := g.Check(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	usage.UsedCount++
	usage.LastUsedAt = time.Now()
	if usage.FirstUsedAt.IsZero() {
		usage.FirstUsedAt = usage.LastUsedAt
	}

	data, err := json.Marshal(usage)
	if err != nil {
		return nil, err
	}

	// 첫 사용 시점부터 TTL 유지
	ttl := g.ttl - time.Since(usage.FirstUsedAt)
	if ttl <= 0 {
		ttl = g.ttl
	}
	if err := g.rdb.Set(ctx, guestKey(sessionID), data, ttl).Err(); err != nil {
		log.Printf("⚠️  [Guest] Failed to save guest usage: %v", err)
		return nil, err
	}

	log.Printf("📊 [Guest] Usage updated: session=%s, count=%d/%d", sessionID, usage.UsedCount, g.max)
	return usage, nil
}
