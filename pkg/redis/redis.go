package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/config"
)

// Client Redis 客户端封装
// 用于已锁定效率快照的缓存，以及锁定任务的分布式互斥
type Client struct {
	rdb    *goredis.Client
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
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 锁定快照缓存 ──

const (
	snapshotPrefix = "efficiency:confirmed:"
	generationKey  = "efficiency:confirmed-generation"
	snapshotTTL    = 24 * time.Hour
)

// 缓存键带快照代数；清空锁定后代数递增，旧代缓存不再可见
func snapshotKey(gen int64, taskID, phaseKey string) string {
	return fmt.Sprintf("%s%d:%s:%s", snapshotPrefix, gen, taskID, phaseKey)
}

// SnapshotGeneration 返回当前快照代数，未初始化时为 0
func (c *Client) SnapshotGeneration(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetSnapshot 读取指定代数下缓存的快照；未命中时 ok=false
func (c *Client) GetSnapshot(ctx context.Context, gen int64, taskID, phaseKey string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, snapshotKey(gen, taskID, phaseKey)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetSnapshot 缓存快照；已存在时不覆盖
func (c *Client) SetSnapshot(ctx context.Context, gen int64, taskID, phaseKey, snapshot string) error {
	return c.rdb.SetNX(ctx, snapshotKey(gen, taskID, phaseKey), snapshot, snapshotTTL).Err()
}

// InvalidateSnapshots 递增快照代数使全部缓存失效，再尽力删除旧键
//
// 代数递增成功即完成失效；删除旧键失败时等待其过期
func (c *Client) InvalidateSnapshots(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return err
	}
	if err := c.purgeSnapshots(ctx); err != nil {
		c.logger.Warn("删除旧快照缓存失败，等待过期", zap.Error(err))
	}
	return nil
}

func (c *Client) purgeSnapshots(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, snapshotPrefix+"*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 500 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.rdb.Del(ctx, keys...).Err()
	}
	return nil
}

// ── 分布式互斥 ──

// releaseScript 仅当锁仍由自己持有时删除
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock 尝试获取互斥锁；成功时返回持有凭证
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// ReleaseLock 释放互斥锁
func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, c.rdb, []string{key}, token).Err()
}

// ── 速率限制 ──

// CheckRateLimit 滑动窗口计数；窗口内请求数未超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.New().String()[:8])

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now.Add(-window).UnixNano()))
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return count.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
