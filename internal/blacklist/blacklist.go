package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
)

// Store holds revoked tokens until their TTL passes.
type Store interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

type redisStore struct {
	log    *logger.Logger
	rdb    *redis.Client
	prefix string
}

// NewRedis connects and pings before returning. Eviction is redis' native key expiry.
func NewRedis(ctx context.Context, log *logger.Logger, addr, password string) (Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisStore{
		log:    log.With("service", "RedisBlacklist"),
		rdb:    rdb,
		prefix: "blacklist:",
	}, nil
}

func (s *redisStore) Add(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.prefix+token, 1, ttl).Err(); err != nil {
		return fmt.Errorf("blacklist add: %w", err)
	}
	return nil
}

func (s *redisStore) Contains(ctx context.Context, token string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.prefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return n > 0, nil
}

type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGorm keeps revoked tokens in the blacklisted_tokens table. Expired rows
// are dropped on lookup.
func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

func (s *gormStore) Add(ctx context.Context, token string, ttl time.Duration) error {
	row := models.BlacklistedToken{Token: token, ExpiresAt: s.now().Add(ttl)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("blacklist add: %w", err)
	}
	return nil
}

func (s *gormStore) Contains(ctx context.Context, token string) (bool, error) {
	var row models.BlacklistedToken
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	if !s.now().Before(row.ExpiresAt) {
		_ = s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.BlacklistedToken{}).Error
		return false, nil
	}
	return true, nil
}
