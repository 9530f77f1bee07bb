// Package cache 用 Redis 缓存模板预览图。预览接口会被编辑器
// 高频调用，同一版本模板加同一行数据的渲染结果可以直接复用。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL 是预览缓存的默认存活时间。
const DefaultTTL = 10 * time.Minute

// Preview 是预览图缓存。client 为 nil 时所有操作都是空转，
// 未配置 Redis 的部署无需条件判断。
type Preview struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect 连接 Redis 并用 ping 验证。
func Connect(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}
	return client, nil
}

// NewPreview 创建预览缓存，client 可以为 nil。
func NewPreview(client *redis.Client, ttl time.Duration) *Preview {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Preview{client: client, ttl: ttl}
}

// Key 以模板版本与行数据指纹构造缓存键。模板任何一次保存都会
// 更新 updatedAt，旧版本的缓存自然失效。
func Key(templateID string, updatedAt time.Time, rowFingerprint string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", templateID, updatedAt.UnixNano(), rowFingerprint)))
	return "preview:" + hex.EncodeToString(sum[:16])
}

// Get 读取缓存，未命中或未配置缓存时返回 false。
func (p *Preview) Get(ctx context.Context, key string) ([]byte, bool) {
	if p == nil || p.client == nil {
		return nil, false
	}
	data, err := p.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set 写入缓存。写入失败只是丢掉一次缓存机会，不向上报错。
func (p *Preview) Set(ctx context.Context, key string, data []byte) {
	if p == nil || p.client == nil {
		return
	}
	p.client.Set(ctx, key, data, p.ttl)
}
