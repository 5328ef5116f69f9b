package index

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/jobala/petrodb/catalog"
	"github.com/jobala/petrodb/record"
	"github.com/jobala/petrodb/storage/page"
)

const (
	EQUALITY_MATCHING_TYPE MatchKind = iota + 1
)

const (
	HASH_INDEX   Kind = "hash"
	SORTED_INDEX Kind = "sorted"
)

var (
	ErrNoIndex        = errors.New("no index matches")
	ErrIndexNotFound  = errors.New("index not found")
	ErrEntryNotFound  = errors.New("index entry not found")
	ErrDuplicateEntry = errors.New("index entry already present")
)

func New(kind Kind, name string, t *catalog.Table, keyOrdinals []int, store page.Manager) (Index, error) {
	switch kind {
	case HASH_INDEX:
		h := &HashIndex{buckets: map[uint64][]entry{}}
		h.init(name, t, keyOrdinals, store, h.lookup)
		return h, nil
	case SORTED_INDEX:
		s := &SortedIndex{}
		s.init(name, t, keyOrdinals, store, s.lookup)
		return s, nil
	}

	return nil, fmt.Errorf("unknown index kind %q", kind)
}

func (b *base) init(name string, t *catalog.Table, keyOrdinals []int, store page.Manager, lookupFn func(string) []record.Location) {
	b.name = name
	b.table = t
	b.keyOrdinals = slices.Clone(keyOrdinals)
	b.store = store
	b.lookupFn = lookupFn
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Table() *catalog.Table {
	return b.table
}

func (b *base) KeyOrdinals() []int {
	return slices.Clone(b.keyOrdinals)
}

func (b *base) IsMatchingFor(ordinals []int, kind MatchKind) bool {
	if kind != EQUALITY_MATCHING_TYPE || len(ordinals) != len(b.keyOrdinals) {
		return false
	}

	want := slices.Sorted(slices.Values(ordinals))
	have := slices.Sorted(slices.Values(b.keyOrdinals))
	return slices.Equal(want, have)
}

// recordKey encodes the key columns of rec. A record with a NULL key column
// has no key and is left out of the index.
func (b *base) recordKey(rec record.Record) (string, bool, error) {
	values := make([]any, len(b.keyOrdinals))
	for i, ord := range b.keyOrdinals {
		if rec.Values[ord] == nil {
			return "", false, nil
		}
		values[i] = rec.Values[ord]
	}

	key, err := b.table.Layout().EncodeKey(b.keyOrdinals, values)
	if err != nil {
		return "", false, pkgerrors.Wrapf(err, "index %s", b.name)
	}
	return string(key), true, nil
}

func (b *base) BuildRecordSetMatchingEqualityCondition(ordinals []int, literals []string) (record.Set, error) {
	if len(ordinals) != len(literals) {
		return nil, fmt.Errorf("index %s: %d columns but %d values", b.name, len(ordinals), len(literals))
	}
	if !b.IsMatchingFor(ordinals, EQUALITY_MATCHING_TYPE) {
		return nil, fmt.Errorf("index %s does not cover columns %v", b.name, ordinals)
	}

	// put the values in key column order
	values := make([]any, len(b.keyOrdinals))
	for i, ord := range b.keyOrdinals {
		j := slices.Index(ordinals, ord)
		v, err := record.Coerce(b.table.Columns[ord], literals[j])
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "index %s", b.name)
		}
		values[i] = v
	}

	if slices.Contains(values, nil) {
		return record.SetFunc(func() iter.Seq2[record.Record, error] {
			return func(func(record.Record, error) bool) {}
		}), nil
	}

	key, err := b.table.Layout().EncodeKey(b.keyOrdinals, values)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "index %s", b.name)
	}

	return record.SetFunc(func() iter.Seq2[record.Record, error] {
		return b.resolve(string(key), values)
	}), nil
}

// resolve looks key up and reads each location back from its page. Slots that
// were emptied or rewritten since the lookup are skipped. The table stays
// pinned while the locations are read so none of its pages is freed.
func (b *base) resolve(key string, values []any) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		b.table.Pin()
		defer b.table.Unpin()

		b.table.RLock()
		b.mu.RLock()
		locs := b.lookupFn(key)
		b.mu.RUnlock()
		b.table.RUnlock()

		for _, loc := range locs {
			rec, ok, err := FetchRecord(b.store, b.table, loc)
			if err != nil {
				yield(record.Record{}, pkgerrors.Wrapf(err, "index %s", b.name))
				return
			}
			if !ok || !rec.Matches(b.keyOrdinals, values) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// FetchRecord reads the record at loc under the table's read lock.
func FetchRecord(store page.Manager, t *catalog.Table, loc record.Location) (record.Record, bool, error) {
	t.RLock()
	defer t.RUnlock()

	if t.Dropped() {
		return record.Record{}, false, pkgerrors.Wrapf(catalog.ErrTableDropped, "table %s", t.Name)
	}

	rp, err := store.GetRecordPageById(loc.PageId, t.RecordLength())
	if err != nil {
		return record.Record{}, false, err
	}
	if loc.Slot < 0 || loc.Slot >= rp.Capacity() {
		return record.Record{}, false, nil
	}

	data, ok := rp.ReadSlot(loc.Slot)
	if !ok {
		return record.Record{}, false, nil
	}

	values, err := t.Layout().Decode(data)
	if err != nil {
		return record.Record{}, false, pkgerrors.Wrapf(err, "decoding %s at %s", t.Name, loc)
	}
	return record.Record{Loc: loc, Values: values}, true, nil
}

type MatchKind int

type Kind string

// Index maps the values of a fixed set of key columns to record locations.
type Index interface {
	Name() string
	Kind() Kind
	Table() *catalog.Table
	KeyOrdinals() []int
	IsMatchingFor(ordinals []int, kind MatchKind) bool
	BuildRecordSetMatchingEqualityCondition(ordinals []int, values []string) (record.Set, error)
	InsertEntry(rec record.Record) error
	RemoveEntry(rec record.Record) error
	Len() int
}

type entry struct {
	key string
	loc record.Location
}

// base holds what every index kind shares: key columns, matching and the
// lazy resolution of looked up locations into records.
type base struct {
	mu          sync.RWMutex
	name        string
	table       *catalog.Table
	keyOrdinals []int
	store       page.Manager
	lookupFn    func(key string) []record.Location
}
