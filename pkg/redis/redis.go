package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/O-B-I-s/TimeTracker/config"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("缓存未命中")

// Client Redis 客户端封装
// 用于周视图缓存与导出接口限流；不可用时调用方降级运行
type Client struct {
	rdb    goredis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return NewWithClient(rdb, cfg.WeekCacheTTL, logger), nil
}

// NewWithClient 包装已有客户端（测试中注入）
func NewWithClient(rdb goredis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Client {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Client{rdb: rdb, ttl: ttl, logger: logger}
}

// ── 周视图缓存 ──

const weekCachePrefix = "timesheet:week:"

// GetWeek 读取某周的缓存 JSON
func (c *Client) GetWeek(ctx context.Context, weekStart string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, weekCachePrefix+weekStart).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

// SetWeek 写入某周的缓存 JSON
func (c *Client) SetWeek(ctx context.Context, weekStart string, payload []byte) error {
	return c.rdb.Set(ctx, weekCachePrefix+weekStart, payload, c.ttl).Err()
}

// InvalidateWeeks 删除指定周起始日的缓存
func (c *Client) InvalidateWeeks(ctx context.Context, weekStarts ...string) error {
	if len(weekStarts) == 0 {
		return nil
	}
	keys := make([]string, len(weekStarts))
	for i, ws := range weekStarts {
		keys[i] = weekCachePrefix + ws
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ── 限流 ──

// CheckRateLimit 固定窗口计数限流，返回本次请求是否允许
// 仅在键没有过期时间时设置窗口，兼容不支持 EXPIRE NX 的 Redis 6 及以下版本
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if ttl.Val() < 0 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return incr.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
