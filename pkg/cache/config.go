package cache

import (
	"fmt"
	"time"
)

// RedisOption configures NewRedisCache.
type RedisOption func(*RedisConfig)

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	Prefix       string // prepended to every key as "prefix:"
}

func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) { c.Addr = fmt.Sprintf("%s:%d", host, port) }
}

func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sizes the connection pool. Zero values keep the defaults.
func WithRedisPool(size, minIdle int) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle > 0 {
			c.MinIdleConns = minIdle
		}
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryOption configures NewMemoryCache.
type MemoryOption func(*MemoryConfig)

type MemoryConfig struct {
	MaxSize         int // entries before least recently used eviction
	CleanupInterval time.Duration
	DefaultTTL      time.Duration // used when Set gets no expiration
}

func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

func WithMemoryDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if ttl > 0 {
			c.DefaultTTL = ttl
		}
	}
}

// LayeredOption configures NewLayeredCache.
type LayeredOption func(*LayeredConfig)

type LayeredConfig struct {
	MemoryMaxSize int
	MemoryTTL     time.Duration
}

// WithLayeredL1 sizes the in-process layer. ttl caps how long an entry lives
// there regardless of the Redis expiry.
func WithLayeredL1(size int, ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		if size > 0 {
			c.MemoryMaxSize = size
		}
		if ttl > 0 {
			c.MemoryTTL = ttl
		}
	}
}
