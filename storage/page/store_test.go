package page

import (
	"encoding/binary"
	"errors"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobala/petrodb/storage/disk"
	"github.com/jobala/petrodb/util"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore(disk.NewMemManager())
	require.NoError(t, store.Init())
	return store
}

func TestStoreInit(t *testing.T) {
	t.Run("establishes the sentinel on first init", func(t *testing.T) {
		device := disk.NewMemManager()
		store := NewStore(device)

		require.NoError(t, store.Init())
		require.NoError(t, store.Init())

		data, err := device.ReadPage(0)
		require.NoError(t, err)
		assert.Equal(t, "PTRO", string(data[:4]))
		assert.Equal(t, int64(1), store.PageCount())
	})

	t.Run("state survives reopening a file", func(t *testing.T) {
		dbFile := path.Join(t.TempDir(), "test.db")

		file, err := os.OpenFile(dbFile, os.O_CREATE|os.O_RDWR, 0644)
		require.NoError(t, err)
		dm, err := disk.NewManager(file, false)
		require.NoError(t, err)

		store := NewStore(dm)
		require.NoError(t, store.Init())
		p1, _ := store.AllocatePage()
		p2, _ := store.AllocatePage()
		copy(p2.Data, "persisted")
		require.NoError(t, store.SavePage(p2))
		require.NoError(t, store.FreePage(p1.Id))
		require.NoError(t, store.Close())

		file, err = os.OpenFile(dbFile, os.O_RDWR, 0644)
		require.NoError(t, err)
		dm, err = disk.NewManager(file, false)
		require.NoError(t, err)

		store = NewStore(dm)
		require.NoError(t, store.Init())
		t.Cleanup(func() { _ = store.Close() })

		assert.Equal(t, int64(3), store.PageCount())
		free, err := store.FreePageIds()
		require.NoError(t, err)
		assert.Equal(t, []int64{p1.Id}, free)

		page, err := store.GetPageById(p2.Id)
		require.NoError(t, err)
		assert.Equal(t, "persisted", string(page.Data[:9]))
	})

	t.Run("rejects a malformed sentinel", func(t *testing.T) {
		device := disk.NewMemManager()
		garbage := make([]byte, PAGE_SIZE)
		copy(garbage, "JUNK")
		require.NoError(t, device.WritePage(0, garbage))

		err := NewStore(device).Init()

		var initErr *util.PageStoreInitError
		assert.True(t, errors.As(err, &initErr))
	})

	t.Run("rejects a page count larger than the device", func(t *testing.T) {
		device := disk.NewMemManager()
		sentinel := make([]byte, PAGE_SIZE)
		copy(sentinel, "PTRO")
		binary.LittleEndian.PutUint64(sentinel[4:], 10)
		require.NoError(t, device.WritePage(0, sentinel))

		err := NewStore(device).Init()

		var initErr *util.PageStoreInitError
		assert.True(t, errors.As(err, &initErr))
	})

	t.Run("operations before init fail", func(t *testing.T) {
		store := NewStore(disk.NewMemManager())

		_, err := store.AllocatePage()
		assert.ErrorIs(t, err, ErrNotInitialized)
	})
}

func TestStore(t *testing.T) {
	t.Run("allocation extends the store one page at a time", func(t *testing.T) {
		store := newMemStore(t)

		for i := int64(1); i <= 3; i++ {
			page, err := store.AllocatePage()
			require.NoError(t, err)
			assert.Equal(t, i, page.Id)
		}
		assert.Equal(t, int64(4), store.PageCount())
	})

	t.Run("freed page is reused first", func(t *testing.T) {
		store := newMemStore(t)

		p1, _ := store.AllocatePage()
		p2, _ := store.AllocatePage()
		p3, _ := store.AllocatePage()

		require.NoError(t, store.FreePage(p1.Id))
		require.NoError(t, store.FreePage(p3.Id))

		free, err := store.FreePageIds()
		require.NoError(t, err)
		assert.Equal(t, []int64{p3.Id, p1.Id}, free)

		page, err := store.AllocatePage()
		require.NoError(t, err)
		assert.Equal(t, p3.Id, page.Id)
		assert.Equal(t, make([]byte, PAGE_SIZE), page.Data)

		page, err = store.AllocatePage()
		require.NoError(t, err)
		assert.Equal(t, p1.Id, page.Id)

		page, err = store.AllocatePage()
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Id)

		assert.NotEqual(t, p2.Id, page.Id)
	})

	t.Run("every page is owned or free exactly once", func(t *testing.T) {
		store := newMemStore(t)

		owned := map[int64]bool{}
		for range 10 {
			p, err := store.AllocatePage()
			require.NoError(t, err)
			owned[p.Id] = true
		}
		for _, id := range []int64{2, 5, 9} {
			require.NoError(t, store.FreePage(id))
			delete(owned, id)
		}
		p, err := store.AllocatePage()
		require.NoError(t, err)
		owned[p.Id] = true

		free, err := store.FreePageIds()
		require.NoError(t, err)

		seen := map[int64]int{}
		for id := range owned {
			seen[id]++
		}
		for _, id := range free {
			seen[id]++
		}
		for id := int64(1); id < store.PageCount(); id++ {
			assert.Equal(t, 1, seen[id], "page %d", id)
		}
	})

	t.Run("saved pages read back", func(t *testing.T) {
		store := newMemStore(t)

		page, _ := store.AllocatePage()
		copy(page.Data, "hello world")
		require.NoError(t, store.SavePage(page))

		res, err := store.GetPageById(page.Id)
		require.NoError(t, err)
		assert.Equal(t, page.Data, res.Data)
	})

	t.Run("unknown pages are not found", func(t *testing.T) {
		store := newMemStore(t)

		_, err := store.GetPageById(0)
		assert.ErrorIs(t, err, ErrPageNotFound)

		_, err = store.GetPageById(7)
		assert.ErrorIs(t, err, ErrPageNotFound)

		assert.ErrorIs(t, store.FreePage(0), ErrPageNotFound)
		assert.ErrorIs(t, store.SavePage(&Page{Id: 3, Data: make([]byte, PAGE_SIZE)}), ErrPageNotFound)
	})

	t.Run("double free of the head is rejected", func(t *testing.T) {
		store := newMemStore(t)

		page, _ := store.AllocatePage()
		require.NoError(t, store.FreePage(page.Id))
		assert.Error(t, store.FreePage(page.Id))
	})

	t.Run("record pages compose over stored pages", func(t *testing.T) {
		store := newMemStore(t)

		page, _ := store.AllocatePage()
		rp := NewRecordPage(page, 16)
		rp.Init()
		rp.WriteSlot(3, make([]byte, 16))
		require.NoError(t, store.SavePage(rp.Page()))

		res, err := store.GetRecordPageById(page.Id, 16)
		require.NoError(t, err)
		assert.True(t, res.IsOccupied(3))
		assert.Equal(t, 1, res.Count())
	})
}
