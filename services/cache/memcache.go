package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// ErrCacheMiss is returned by Get when the key is not cached
var ErrCacheMiss = memcache.ErrCacheMiss

// maxItemSize matches the default memcached item size limit
const maxItemSize = 1024 * 1024

// ErrItemTooLarge is returned by Set for values memcached would reject
var ErrItemTooLarge = errors.New("cache item exceeds 1MB")

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string, timeout time.Duration) *MemcacheService {
	client := memcache.New(serverAddr)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &MemcacheService{
		client: client,
	}
}

// Ping checks that every memcache server is reachable
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	if len(value) > maxItemSize {
		return ErrItemTooLarge
	}
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	return m.client.Delete(key)
}
