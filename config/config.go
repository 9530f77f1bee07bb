// Package config 从环境变量加载服务配置。
package config

import "os"

// Config 汇总服务运行所需的配置项。
type Config struct {
	// Addr 是 HTTP 监听地址。
	Addr string
	// DatabaseURL 为空时使用内存存储。
	DatabaseURL string
	// RedisAddr 为空时不启用预览缓存。
	RedisAddr     string
	RedisPassword string
	// AssetsDir 是模板里相对图片路径的解析根目录。
	AssetsDir string
}

// Load 读取环境变量，缺省值面向本地开发。
func Load() *Config {
	return &Config{
		Addr:          envOrDefault("LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AssetsDir:     os.Getenv("ASSETS_DIR"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
