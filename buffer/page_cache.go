package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/jobala/petrodb/storage/disk"
)

// NewPool caches up to size pages of device. Writes go through to the device
// before the cache is updated, so a successful WritePage is as durable as the
// device makes it.
func NewPool(size, k int, device disk.Device) *Pool {
	frames := make([]*frame, size)
	freeFrames := make([]int, size)

	for i := range size {
		frames[i] = &frame{
			id:     i,
			data:   make([]byte, disk.PAGE_SIZE),
			pageId: disk.INVALID_PAGE_ID,
		}
		freeFrames[i] = i
	}

	return &Pool{
		frames:     frames,
		pageTable:  make(map[int64]int),
		replacer:   NewLrukReplacer(size, k),
		device:     device,
		freeFrames: freeFrames,
	}
}

func (b *Pool) ReadPage(pageId int64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.pageTable[pageId]; ok {
		b.hits.Add(1)
		b.touch(id)
		return b.frames[id].snapshot(), nil
	}

	b.misses.Add(1)
	data, err := b.device.ReadPage(pageId)
	if err != nil {
		return nil, err
	}

	b.install(pageId, data)
	return data, nil
}

func (b *Pool) WritePage(pageId int64, data []byte) error {
	if err := b.device.WritePage(pageId, data); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.pageTable[pageId]; ok {
		b.frames[id].load(pageId, data)
		b.touch(id)
		return nil
	}

	b.install(pageId, data)
	return nil
}

func (b *Pool) Pages() int64 {
	return b.device.Pages()
}

func (b *Pool) Close() error {
	return b.device.Close()
}

func (b *Pool) Stats() Stats {
	return Stats{Hits: b.hits.Load(), Misses: b.misses.Load(), Cached: b.replacer.size()}
}

// install copies data into a free or evicted frame. When every frame is
// somehow unavailable the page is simply not cached.
func (b *Pool) install(pageId int64, data []byte) {
	var f *frame

	if len(b.freeFrames) > 0 {
		f = b.frames[b.freeFrames[0]]
		b.freeFrames = b.freeFrames[1:]
	} else if id, ok := b.replacer.evict(); ok {
		f = b.frames[id]
		delete(b.pageTable, f.pageId)
	}

	if f == nil {
		return
	}

	f.load(pageId, data)
	b.pageTable[pageId] = f.id
	b.touch(f.id)
}

func (b *Pool) touch(frameId int) {
	b.replacer.recordAccess(frameId)
	b.replacer.setEvictable(frameId, true)
}

type Pool struct {
	mu         sync.Mutex
	frames     []*frame
	pageTable  map[int64]int
	replacer   *lrukReplacer
	device     disk.Device
	freeFrames []int

	hits   atomic.Int64
	misses atomic.Int64
}

type Stats struct {
	Hits   int64
	Misses int64
	Cached int
}
