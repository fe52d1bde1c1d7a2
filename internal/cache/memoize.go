package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// KeyFunc derives a cache key from a producer's argument.
type KeyFunc[A any] func(arg A) string

// DefaultKey returns a KeyFunc that composes a stable name with a JSON
// serialization of the argument. Arguments that cannot be serialized fall
// back to their fmt representation.
func DefaultKey[A any](name string) KeyFunc[A] {
	return func(arg A) string {
		b, err := json.Marshal(arg)
		if err != nil {
			return fmt.Sprintf("%s:%+v", name, arg)
		}
		return name + ":" + string(b)
	}
}

// Memoize wraps producer so that results are stored in c under the key
// derived by keyFn. A hit returns the stored value without invoking the
// producer; a miss invokes it and stores the result with the cache's
// default TTL. Producer errors are returned as-is and never cached.
//
// There is no single-flight de-duplication: two concurrent calls that both
// miss the same key will both invoke the producer and both write, and the
// last write wins. Callers that need stronger guarantees must serialize
// above this layer.
func Memoize[A any, V any](
	c *Cache[V],
	keyFn KeyFunc[A],
	producer func(ctx context.Context, arg A) (V, error),
) func(ctx context.Context, arg A) (V, error) {
	return func(ctx context.Context, arg A) (V, error) {
		key := keyFn(arg)
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		v, err := producer(ctx, arg)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	}
}
