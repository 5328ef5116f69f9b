package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	t.Run("walks linked pages in order", func(t *testing.T) {
		store := newMemStore(t)

		ids := []int64{}
		var prev *RecordPage
		for range 3 {
			p, err := store.AllocatePage()
			require.NoError(t, err)
			rp := NewRecordPage(p, 8)
			rp.Init()
			require.NoError(t, store.SavePage(p))

			if prev != nil {
				prev.SetNextPageId(p.Id)
				require.NoError(t, store.SavePage(prev.Page()))
			}
			prev = rp
			ids = append(ids, p.Id)
		}

		walked := []int64{}
		for rp, err := range Chain(store, ids[0], 8) {
			require.NoError(t, err)
			walked = append(walked, rp.Id())
		}
		assert.Equal(t, ids, walked)
	})

	t.Run("detects cycles", func(t *testing.T) {
		store := newMemStore(t)

		p, _ := store.AllocatePage()
		rp := NewRecordPage(p, 8)
		rp.Init()
		rp.SetNextPageId(p.Id)
		require.NoError(t, store.SavePage(p))

		var lastErr error
		for _, err := range Chain(store, p.Id, 8) {
			lastErr = err
		}
		assert.Error(t, lastErr)
	})

	t.Run("reports missing pages", func(t *testing.T) {
		store := newMemStore(t)

		for _, err := range Chain(store, 12, 8) {
			assert.ErrorIs(t, err, ErrPageNotFound)
		}
	})
}
