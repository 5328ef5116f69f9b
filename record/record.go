package record

import (
	"fmt"
	"iter"
)

type Location struct {
	PageId int64
	Slot   int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.PageId, l.Slot)
}

type Record struct {
	Loc    Location
	Values []any
}

// Matches reports whether the record's values at ordinals equal values.
func (r Record) Matches(ordinals []int, values []any) bool {
	for i, ord := range ordinals {
		if !Equal(r.Values[ord], values[i]) {
			return false
		}
	}
	return true
}

// Set is a lazy, finite sequence of records. Each call to All starts over.
type Set interface {
	All() iter.Seq2[Record, error]
}

type SetFunc func() iter.Seq2[Record, error]

func (f SetFunc) All() iter.Seq2[Record, error] {
	return f()
}

func Collect(s Set) ([]Record, error) {
	res := []Record{}
	for rec, err := range s.All() {
		if err != nil {
			return res, err
		}
		res = append(res, rec)
	}
	return res, nil
}
