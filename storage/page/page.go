package page

import (
	"github.com/jobala/petrodb/storage/disk"
)

const PAGE_SIZE = disk.PAGE_SIZE

type Page struct {
	Id   int64
	Data []byte
}

func newPage(id int64) *Page {
	return &Page{Id: id, Data: make([]byte, PAGE_SIZE)}
}

// Manager hands out fixed-size pages and recycles freed ones.
type Manager interface {
	Init() error
	AllocatePage() (*Page, error)
	FreePage(pageId int64) error
	GetPageById(pageId int64) (*Page, error)
	SavePage(page *Page) error
	GetRecordPageById(pageId int64, recordLength int) (*RecordPage, error)
	PageCount() int64
	FreePageIds() ([]int64, error)
	Close() error
}
