package index

import (
	"slices"

	pkgerrors "github.com/pkg/errors"

	"github.com/jobala/petrodb/record"
)

func (s *SortedIndex) Kind() Kind {
	return SORTED_INDEX
}

func (s *SortedIndex) InsertEntry(rec record.Record) error {
	key, ok, err := s.recordKey(rec)
	if err != nil || !ok {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{key: key, loc: rec.Loc}
	idx := s.getInsertIdx(e)
	if idx < len(s.entries) && s.entries[idx] == e {
		return pkgerrors.Wrapf(ErrDuplicateEntry, "index %s at %s", s.name, rec.Loc)
	}

	s.entries = slices.Insert(s.entries, idx, e)
	return nil
}

func (s *SortedIndex) RemoveEntry(rec record.Record) error {
	key, ok, err := s.recordKey(rec)
	if err != nil || !ok {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{key: key, loc: rec.Loc}
	idx := s.getInsertIdx(e)
	if idx >= len(s.entries) || s.entries[idx] != e {
		return pkgerrors.Wrapf(ErrEntryNotFound, "index %s at %s", s.name, rec.Loc)
	}

	s.entries = slices.Delete(s.entries, idx, idx+1)
	return nil
}

func (s *SortedIndex) lookup(key string) []record.Location {
	res := []record.Location{}
	for i := s.getInsertIdx(entry{key: key, loc: minLocation}); i < len(s.entries) && s.entries[i].key == key; i++ {
		res = append(res, s.entries[i].loc)
	}
	return res
}

var minLocation = record.Location{PageId: -1, Slot: -1}

// getInsertIdx returns the first position whose entry is not less than e.
func (s *SortedIndex) getInsertIdx(e entry) int {
	left := 0
	right := len(s.entries) - 1

	for left <= right {
		mid := left + (right-left)/2
		if less(s.entries[mid], e) {
			left = mid + 1
		} else {
			right = mid - 1
		}
	}

	return left
}

func less(a, b entry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	if a.loc.PageId != b.loc.PageId {
		return a.loc.PageId < b.loc.PageId
	}
	return a.loc.Slot < b.loc.Slot
}

func (s *SortedIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// SortedIndex keeps entries ordered by (key, location) and binary searches them.
type SortedIndex struct {
	base
	entries []entry
}
