package buffer

import (
	"github.com/jobala/petrodb/storage/disk"
)

func (f *frame) load(pageId int64, data []byte) {
	f.pageId = pageId
	copy(f.data, data)
}

func (f *frame) snapshot() []byte {
	res := make([]byte, disk.PAGE_SIZE)
	copy(res, f.data)
	return res
}

type frame struct {
	id     int
	data   []byte
	pageId int64
}
