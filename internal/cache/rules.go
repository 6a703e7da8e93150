// Package cache provides a short-TTL Redis cache in front of the rule and
// balance-config stores. Both are read-mostly; staleness within the TTL
// only affects advisory computations, while per-user aggregates are
// always read fresh from PostgreSQL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"task-points/internal/config"
	"task-points/internal/model"
	"task-points/internal/repository"
)

// notFoundSentinel marks a negative cache entry, so missing rules do not
// hammer the database on every award.
const notFoundSentinel = "-"

// RuleCache caches rule and config lookups. A nil client (no Redis
// configured) makes every method a pass-through to the repositories;
// any Redis failure degrades to the same pass-through.
type RuleCache struct {
	client  *redis.Client
	rules   *repository.RuleRepository
	configs *repository.BalanceConfigRepository
	ttl     time.Duration
}

// New creates a RuleCache. An empty addr disables caching.
func New(cfg *config.RedisConfig, rules *repository.RuleRepository, configs *repository.BalanceConfigRepository) (*RuleCache, error) {
	c := &RuleCache{
		rules:   rules,
		configs: configs,
		ttl:     cfg.TTL,
	}
	if cfg.Addr == "" {
		return c, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	c.client = client
	return c, nil
}

// Close closes the Redis connection if one is configured.
func (c *RuleCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func ruleKey(category, activity string) string {
	return fmt.Sprintf("points:rule:%s:%s", category, activity)
}

func activityKey(activity string) string {
	return fmt.Sprintf("points:rule:activity:%s", activity)
}

const configKey = "points:config:active"

// FindActive retrieves the active rule for a (category, activity) pair,
// from cache when possible.
func (c *RuleCache) FindActive(ctx context.Context, category, activity string) (*model.PointsRule, error) {
	return c.cachedRule(ctx, ruleKey(category, activity), func() (*model.PointsRule, error) {
		return c.rules.FindActive(ctx, category, activity)
	})
}

// FindActiveByActivity retrieves the active rule for an activity, from
// cache when possible.
func (c *RuleCache) FindActiveByActivity(ctx context.Context, activity string) (*model.PointsRule, error) {
	return c.cachedRule(ctx, activityKey(activity), func() (*model.PointsRule, error) {
		return c.rules.FindActiveByActivity(ctx, activity)
	})
}

func (c *RuleCache) cachedRule(ctx context.Context, key string, load func() (*model.PointsRule, error)) (*model.PointsRule, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Result()
		switch {
		case err == nil:
			if raw == notFoundSentinel {
				return nil, repository.ErrRuleNotFound
			}
			var rule model.PointsRule
			if err := json.Unmarshal([]byte(raw), &rule); err == nil {
				return &rule, nil
			}
			// Corrupt entry: fall through to the store and overwrite.
		case !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Str("key", key).Msg("rule cache read failed")
		}
	}

	rule, err := load()
	if err != nil {
		if errors.Is(err, repository.ErrRuleNotFound) {
			c.store(ctx, key, notFoundSentinel)
		}
		return nil, err
	}
	if raw, merr := json.Marshal(rule); merr == nil {
		c.store(ctx, key, string(raw))
	}
	return rule, nil
}

// FindActiveConfig retrieves the active balance config, from cache when
// possible.
func (c *RuleCache) FindActiveConfig(ctx context.Context) (*model.BalanceConfig, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, configKey).Result()
		switch {
		case err == nil:
			if raw == notFoundSentinel {
				return nil, repository.ErrConfigNotFound
			}
			var cfg model.BalanceConfig
			if err := json.Unmarshal([]byte(raw), &cfg); err == nil {
				return &cfg, nil
			}
		case !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Msg("config cache read failed")
		}
	}

	cfg, err := c.configs.FindActiveConfig(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			c.store(ctx, configKey, notFoundSentinel)
		}
		return nil, err
	}
	if raw, merr := json.Marshal(cfg); merr == nil {
		c.store(ctx, configKey, string(raw))
	}
	return cfg, nil
}

func (c *RuleCache) store(ctx context.Context, key, value string) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// InvalidateRule drops the cached entries for a (category, activity)
// pair. Called after guardian rule edits.
func (c *RuleCache) InvalidateRule(ctx context.Context, category, activity string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, ruleKey(category, activity), activityKey(activity)).Err(); err != nil {
		log.Warn().Err(err).Msg("rule cache invalidation failed")
	}
}

// InvalidateConfig drops the cached active config entry.
func (c *RuleCache) InvalidateConfig(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, configKey).Err(); err != nil {
		log.Warn().Err(err).Msg("config cache invalidation failed")
	}
}
