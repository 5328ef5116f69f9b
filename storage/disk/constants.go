package disk

const (
	PAGE_SIZE             = 4096
	INVALID_PAGE_ID       = -1
	DEFAULT_PAGE_CAPACITY = 16
)

// Device is a page-addressed backing store. Page ids map directly to offsets.
type Device interface {
	ReadPage(pageId int64) ([]byte, error)
	WritePage(pageId int64, data []byte) error
	// Pages reports how many pages the device can address without growing.
	Pages() int64
	Close() error
}
