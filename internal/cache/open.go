package cache

import "context"

// Open selects a backend: Redis when redisURL is set, a file cache when dir
// is set, otherwise the null cache.
func Open(ctx context.Context, redisURL, dir string) (Cache, error) {
	switch {
	case redisURL != "":
		c, err := NewRedisCache(ctx, redisURL, "catalog:")
		if err != nil {
			return nil, err
		}
		return c, nil
	case dir != "":
		c, err := NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return NewNullCache(), nil
	}
}
