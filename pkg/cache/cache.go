package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// GetOrLoad returns the cached value for key, calling load and storing its
// result on a miss. Cache failures fall through to load.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var out T
	if c == nil {
		return load(ctx)
	}
	if err := c.Get(ctx, key, &out); err == nil {
		return out, nil
	}
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	_ = c.Set(ctx, key, out, ttl)
	return out, nil
}

// Key joins a namespace and its parts with ':'.
func Key(namespace string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteByte(':')
		switch v := p.(type) {
		case time.Time:
			b.WriteString(v.UTC().Format(time.DateOnly))
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// Pattern matches every key under namespace.
func Pattern(namespace string) string {
	return namespace + ":*"
}
