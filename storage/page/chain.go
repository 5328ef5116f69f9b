package page

import (
	"iter"

	pkgerrors "github.com/pkg/errors"
)

// Chain yields the record pages of a table chain starting at firstPageId.
func Chain(m Manager, firstPageId int64, recordLength int) iter.Seq2[*RecordPage, error] {
	return func(yield func(*RecordPage, error) bool) {
		visited := 0
		for pageId := firstPageId; ; {
			rp, err := m.GetRecordPageById(pageId, recordLength)
			if err != nil {
				yield(nil, pkgerrors.Wrapf(err, "walking chain from page %d", firstPageId))
				return
			}
			if !yield(rp, nil) {
				return
			}

			visited++
			if !rp.HasNext() {
				return
			}
			if int64(visited) >= m.PageCount() {
				yield(nil, pkgerrors.Errorf("chain from page %d has a cycle", firstPageId))
				return
			}
			pageId = rp.NextPageId()
		}
	}
}
