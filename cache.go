package modelq

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for caching query results at the executor
// boundary. Users implement it with their preferred backing store
// (e.g. Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a built statement for caching purposes.
type CacheKey struct {
	Table     string
	Operation string
	Query     string
	Args      string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Table + ":" + k.Operation + ":" + k.Query + ":" + k.Args
}

// NewCacheKey builds a cache key from a finished query and its arguments.
func NewCacheKey(table, op, query string, args []any) CacheKey {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		switch a := a.(type) {
		case string:
			sb.WriteString(a)
		case int:
			sb.WriteString(strconv.Itoa(a))
		case int64:
			sb.WriteString(strconv.FormatInt(a, 10))
		default:
			b, err := msgpack.Marshal(a)
			if err == nil {
				sb.Write(b)
			}
		}
	}
	return CacheKey{Table: table, Operation: op, Query: query, Args: sb.String()}
}

// EncodeEntry serializes a cached payload.
func EncodeEntry(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// DecodeEntry deserializes a cached payload into v.
func DecodeEntry(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
