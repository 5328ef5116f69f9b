package buffer

import (
	"bytes"
	"testing"

	"github.com/jobala/petrodb/storage/disk"
	"github.com/stretchr/testify/assert"
)

func pageWith(content string) []byte {
	data := make([]byte, disk.PAGE_SIZE)
	copy(data, []byte(content))
	return data
}

func TestPool(t *testing.T) {
	t.Run("reads a page from disk", func(t *testing.T) {
		device := disk.NewMemManager()
		assert.NoError(t, device.WritePage(1, pageWith("hello, world!")))

		pool := NewPool(5, 2, device)
		data, err := pool.ReadPage(1)
		assert.NoError(t, err)
		assert.Equal(t, pageWith("hello, world!"), data)

		_, err = pool.ReadPage(1)
		assert.NoError(t, err)

		assert.Equal(t, Stats{Hits: 1, Misses: 1, Cached: 1}, pool.Stats())
	})

	t.Run("writes go through to disk", func(t *testing.T) {
		device := disk.NewMemManager()
		pool := NewPool(2, 2, device)

		assert.NoError(t, pool.WritePage(1, pageWith("1")))

		res, err := device.ReadPage(1)
		assert.NoError(t, err)
		assert.Equal(t, "1", string(bytes.Trim(res, "\x00")))

		// cached copy is served without touching the device
		data, err := pool.ReadPage(1)
		assert.NoError(t, err)
		assert.Equal(t, "1", string(bytes.Trim(data, "\x00")))
		assert.Equal(t, int64(1), pool.Stats().Hits)
	})

	t.Run("evicts least recently used page", func(t *testing.T) {
		device := disk.NewMemManager()
		pool := NewPool(2, 2, device)

		content := []string{"1", "2", "3"}
		for pageId, d := range content {
			assert.NoError(t, device.WritePage(int64(pageId+1), pageWith(d)))
		}

		// access page 2 many times
		for range 5 {
			_, err := pool.ReadPage(2)
			assert.NoError(t, err)
		}

		_, err := pool.ReadPage(1)
		assert.NoError(t, err)

		// page 1 has a single access, so page 3 takes its frame
		_, err = pool.ReadPage(3)
		assert.NoError(t, err)

		_, ok := pool.pageTable[1]
		assert.False(t, ok)
		_, ok = pool.pageTable[2]
		assert.True(t, ok)
		_, ok = pool.pageTable[3]
		assert.True(t, ok)
	})

	t.Run("callers cannot mutate cached frames", func(t *testing.T) {
		pool := NewPool(2, 2, disk.NewMemManager())
		assert.NoError(t, pool.WritePage(0, pageWith("abc")))

		data, _ := pool.ReadPage(0)
		data[0] = 'z'

		again, _ := pool.ReadPage(0)
		assert.Equal(t, byte('a'), again[0])
	})

	t.Run("failed writes leave the cache untouched", func(t *testing.T) {
		pool := NewPool(2, 2, disk.NewMemManager())

		assert.Error(t, pool.WritePage(0, []byte("short")))
		assert.Empty(t, pool.pageTable)
	})
}
