package index

import (
	"slices"

	"github.com/OneOfOne/xxhash"
	pkgerrors "github.com/pkg/errors"

	"github.com/jobala/petrodb/record"
)

func (h *HashIndex) Kind() Kind {
	return HASH_INDEX
}

func (h *HashIndex) InsertEntry(rec record.Record) error {
	key, ok, err := h.recordKey(rec)
	if err != nil || !ok {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sum := xxhash.ChecksumString64(key)
	bucket := h.buckets[sum]
	for _, e := range bucket {
		if e.key == key && e.loc == rec.Loc {
			return pkgerrors.Wrapf(ErrDuplicateEntry, "index %s at %s", h.name, rec.Loc)
		}
	}

	h.buckets[sum] = append(bucket, entry{key: key, loc: rec.Loc})
	h.size += 1
	return nil
}

func (h *HashIndex) RemoveEntry(rec record.Record) error {
	key, ok, err := h.recordKey(rec)
	if err != nil || !ok {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sum := xxhash.ChecksumString64(key)
	bucket := h.buckets[sum]
	i := slices.IndexFunc(bucket, func(e entry) bool { return e.key == key && e.loc == rec.Loc })
	if i < 0 {
		return pkgerrors.Wrapf(ErrEntryNotFound, "index %s at %s", h.name, rec.Loc)
	}

	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) == 0 {
		delete(h.buckets, sum)
	} else {
		h.buckets[sum] = bucket
	}
	h.size -= 1
	return nil
}

func (h *HashIndex) lookup(key string) []record.Location {
	res := []record.Location{}
	for _, e := range h.buckets[xxhash.ChecksumString64(key)] {
		if e.key == key {
			res = append(res, e.loc)
		}
	}
	return res
}

func (h *HashIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.size
}

// HashIndex buckets entries by the xxhash of their key.
type HashIndex struct {
	base
	buckets map[uint64][]entry
	size    int
}
