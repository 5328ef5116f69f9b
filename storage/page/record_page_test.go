package page

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobala/petrodb/storage/disk"
)

func newRecordPage(recordLength int) *RecordPage {
	rp := NewRecordPage(newPage(1), recordLength)
	rp.Init()
	return rp
}

func TestRecordCapacity(t *testing.T) {
	for _, length := range []int{1, 7, 16, 48, 100, 1000, PAGE_SIZE - RECORD_PAGE_HEADER - 1} {
		capacity := RecordCapacity(length)
		assert.Greater(t, capacity, 0)

		used := RECORD_PAGE_HEADER + bitmapSize(capacity) + capacity*length
		assert.LessOrEqual(t, used, PAGE_SIZE, "length %d", length)

		// one more slot would not fit
		more := RECORD_PAGE_HEADER + bitmapSize(capacity+1) + (capacity+1)*length
		assert.Greater(t, more, PAGE_SIZE, "length %d", length)
	}

	assert.Equal(t, 0, RecordCapacity(PAGE_SIZE))
	assert.Equal(t, 0, RecordCapacity(0))
}

func TestRecordPage(t *testing.T) {
	t.Run("fresh page is empty and ends the chain", func(t *testing.T) {
		rp := newRecordPage(16)

		assert.Equal(t, 0, rp.Count())
		assert.False(t, rp.HasNext())
		assert.Equal(t, int64(disk.INVALID_PAGE_ID), rp.NextPageId())

		slot, ok := rp.FirstFreeSlot()
		assert.True(t, ok)
		assert.Equal(t, 0, slot)
	})

	t.Run("writes read back and fill slots in order", func(t *testing.T) {
		rp := newRecordPage(16)

		for i := range 3 {
			slot, ok := rp.FirstFreeSlot()
			assert.True(t, ok)
			assert.Equal(t, i, slot)
			rp.WriteSlot(slot, bytes.Repeat([]byte{byte('a' + i)}, 16))
		}

		data, ok := rp.ReadSlot(1)
		assert.True(t, ok)
		assert.Equal(t, bytes.Repeat([]byte{'b'}, 16), data)
		assert.Equal(t, 3, rp.Count())
	})

	t.Run("deleted slots are reused", func(t *testing.T) {
		rp := newRecordPage(16)
		for range 3 {
			slot, _ := rp.FirstFreeSlot()
			rp.WriteSlot(slot, make([]byte, 16))
		}

		rp.DeleteSlot(1)
		rp.DeleteSlot(1)
		assert.Equal(t, 2, rp.Count())

		_, ok := rp.ReadSlot(1)
		assert.False(t, ok)

		slot, _ := rp.FirstFreeSlot()
		assert.Equal(t, 1, slot)
	})

	t.Run("overwriting keeps the count", func(t *testing.T) {
		rp := newRecordPage(4)
		rp.WriteSlot(0, []byte("abcd"))
		rp.WriteSlot(0, []byte("efgh"))

		data, _ := rp.ReadSlot(0)
		assert.Equal(t, []byte("efgh"), data)
		assert.Equal(t, 1, rp.Count())
	})

	t.Run("full page has no free slot", func(t *testing.T) {
		rp := newRecordPage(1000)
		for i := range rp.Capacity() {
			rp.WriteSlot(i, make([]byte, 1000))
		}

		_, ok := rp.FirstFreeSlot()
		assert.False(t, ok)
	})

	t.Run("chain links are stored in the header", func(t *testing.T) {
		rp := newRecordPage(8)
		rp.SetNextPageId(42)

		again := NewRecordPage(rp.Page(), 8)
		assert.True(t, again.HasNext())
		assert.Equal(t, int64(42), again.NextPageId())
	})

	t.Run("structural misuse panics", func(t *testing.T) {
		rp := newRecordPage(8)

		assert.Panics(t, func() { rp.WriteSlot(rp.Capacity(), make([]byte, 8)) })
		assert.Panics(t, func() { rp.ReadSlot(-1) })
		assert.Panics(t, func() { rp.WriteSlot(0, make([]byte, 9)) })
		assert.Panics(t, func() { NewRecordPage(newPage(1), PAGE_SIZE) })
	})
}
