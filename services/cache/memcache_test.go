package cache

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", 200*time.Millisecond)

	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	// Set a value
	err := mc.Set("vehicle:test_key", []byte("<html>page</html>"), 5*time.Second)
	require.NoError(t, err)

	// Get the value
	value, err := mc.Get("vehicle:test_key")
	assert.NoError(t, err)
	assert.Equal(t, "<html>page</html>", string(value))

	// Delete the value
	err = mc.Delete("vehicle:test_key")
	assert.NoError(t, err)

	// Try to get the deleted value
	_, err = mc.Get("vehicle:test_key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemcacheServiceRejectsLargeItems(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", 0)

	err := mc.Set("vehicle:large", bytes.Repeat([]byte("x"), maxItemSize+1), time.Second)
	assert.ErrorIs(t, err, ErrItemTooLarge)
}

func TestMemcacheServiceImplementsCacheService(t *testing.T) {
	var _ CacheService = NewMemcacheService("localhost:11211", 0)
}
