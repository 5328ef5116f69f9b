package page

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jobala/petrodb/logger"
	"github.com/jobala/petrodb/storage/disk"
	"github.com/jobala/petrodb/util"
)

const (
	EMPTY_PAGES_LIST_HEAD_PAGE_ID = 0

	sentinelMagic      = "PTRO"
	sentinelCountOff   = 4
	sentinelHeadOff    = 12
	freePageNextOffset = 0
)

var (
	ErrPageNotFound   = errors.New("page not found")
	ErrNotInitialized = errors.New("page store is not initialized")
)

func NewStore(device disk.Device) *Store {
	return &Store{device: device}
}

func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if s.device.Pages() == 0 {
		return s.bootstrap()
	}

	data, err := s.device.ReadPage(EMPTY_PAGES_LIST_HEAD_PAGE_ID)
	if err != nil {
		return util.NewPageStoreInitError(err, "reading sentinel page")
	}

	if bytes.Equal(data, make([]byte, PAGE_SIZE)) {
		return s.bootstrap()
	}

	if string(data[:len(sentinelMagic)]) != sentinelMagic {
		return util.NewPageStoreInitError(nil, "sentinel page has bad magic %q", data[:len(sentinelMagic)])
	}

	pageCount := int64(binary.LittleEndian.Uint64(data[sentinelCountOff:]))
	freeHead := int64(binary.LittleEndian.Uint64(data[sentinelHeadOff:]))

	if pageCount < 1 || pageCount > s.device.Pages() {
		return util.NewPageStoreInitError(nil, "sentinel page count %d does not fit a device of %d pages", pageCount, s.device.Pages())
	}
	if freeHead < 0 || freeHead >= pageCount {
		return util.NewPageStoreInitError(nil, "free list head %d out of range [0, %d)", freeHead, pageCount)
	}

	s.pageCount = pageCount
	s.freeHead = freeHead
	s.initialized = true

	logger.WithFields(logrus.Fields{"pages": pageCount, "freeHead": freeHead}).Info("opened page store")
	return nil
}

func (s *Store) bootstrap() error {
	s.pageCount = 1
	s.freeHead = EMPTY_PAGES_LIST_HEAD_PAGE_ID

	if err := s.writeSentinel(); err != nil {
		return util.NewPageStoreInitError(err, "writing sentinel page")
	}

	s.initialized = true
	logger.Infof("created page store")
	return nil
}

func (s *Store) AllocatePage() (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	if s.freeHead != EMPTY_PAGES_LIST_HEAD_PAGE_ID {
		return s.popFreePage()
	}

	page := newPage(s.pageCount)
	if err := s.device.WritePage(page.Id, page.Data); err != nil {
		return nil, pkgerrors.Wrapf(err, "extending store to page %d", page.Id)
	}

	s.pageCount += 1
	if err := s.writeSentinel(); err != nil {
		s.pageCount -= 1
		return nil, pkgerrors.Wrap(err, "writing sentinel page")
	}

	logger.WithFields(logrus.Fields{"pageId": page.Id}).Debug("allocated new page")
	return page, nil
}

func (s *Store) popFreePage() (*Page, error) {
	id := s.freeHead

	data, err := s.device.ReadPage(id)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading free page %d", id)
	}

	next := int64(binary.LittleEndian.Uint64(data[freePageNextOffset:]))
	if next < 0 || next >= s.pageCount || next == id {
		return nil, pkgerrors.Errorf("free page %d links to invalid page %d", id, next)
	}

	page := newPage(id)
	if err := s.device.WritePage(id, page.Data); err != nil {
		return nil, pkgerrors.Wrapf(err, "zeroing page %d", id)
	}

	s.freeHead = next
	if err := s.writeSentinel(); err != nil {
		s.freeHead = id
		return nil, pkgerrors.Wrap(err, "writing sentinel page")
	}

	logger.WithFields(logrus.Fields{"pageId": id, "freeHead": next}).Debug("reused free page")
	return page, nil
}

func (s *Store) FreePage(pageId int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if err := s.checkRange(pageId); err != nil {
		return err
	}
	if pageId == s.freeHead {
		return pkgerrors.Errorf("page %d is already free", pageId)
	}

	data := make([]byte, PAGE_SIZE)
	binary.LittleEndian.PutUint64(data[freePageNextOffset:], uint64(s.freeHead))
	if err := s.device.WritePage(pageId, data); err != nil {
		return pkgerrors.Wrapf(err, "freeing page %d", pageId)
	}

	prev := s.freeHead
	s.freeHead = pageId
	if err := s.writeSentinel(); err != nil {
		s.freeHead = prev
		return pkgerrors.Wrap(err, "writing sentinel page")
	}

	logger.WithFields(logrus.Fields{"pageId": pageId, "next": prev}).Debug("freed page")
	return nil
}

func (s *Store) GetPageById(pageId int64) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	if err := s.checkRange(pageId); err != nil {
		return nil, err
	}

	s.reads.Add(1)
	data, err := s.device.ReadPage(pageId)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading page %d", pageId)
	}

	return &Page{Id: pageId, Data: data}, nil
}

func (s *Store) SavePage(page *Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if err := s.checkRange(page.Id); err != nil {
		return err
	}
	if len(page.Data) != PAGE_SIZE {
		return pkgerrors.Errorf("page %d has %d bytes", page.Id, len(page.Data))
	}

	return pkgerrors.Wrapf(s.device.WritePage(page.Id, page.Data), "saving page %d", page.Id)
}

func (s *Store) GetRecordPageById(pageId int64, recordLength int) (*RecordPage, error) {
	page, err := s.GetPageById(pageId)
	if err != nil {
		return nil, err
	}

	return NewRecordPage(page, recordLength), nil
}

func (s *Store) PageCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pageCount
}

// FreePageIds walks the free list from its head.
func (s *Store) FreePageIds() ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := []int64{}
	for id := s.freeHead; id != EMPTY_PAGES_LIST_HEAD_PAGE_ID; {
		if int64(len(res)) >= s.pageCount {
			return res, pkgerrors.Errorf("free list has a cycle at page %d", id)
		}
		res = append(res, id)

		data, err := s.device.ReadPage(id)
		if err != nil {
			return res, pkgerrors.Wrapf(err, "reading free page %d", id)
		}
		id = int64(binary.LittleEndian.Uint64(data[freePageNextOffset:]))
	}

	return res, nil
}

// Reads counts GetPageById calls that reached the device layer.
func (s *Store) Reads() int64 {
	return s.reads.Load()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	return s.device.Close()
}

func (s *Store) checkRange(pageId int64) error {
	if pageId <= EMPTY_PAGES_LIST_HEAD_PAGE_ID || pageId >= s.pageCount {
		return pkgerrors.Wrapf(ErrPageNotFound, "page %d", pageId)
	}
	return nil
}

func (s *Store) writeSentinel() error {
	data := make([]byte, PAGE_SIZE)
	copy(data, sentinelMagic)
	binary.LittleEndian.PutUint64(data[sentinelCountOff:], uint64(s.pageCount))
	binary.LittleEndian.PutUint64(data[sentinelHeadOff:], uint64(s.freeHead))

	return s.device.WritePage(EMPTY_PAGES_LIST_HEAD_PAGE_ID, data)
}

var _ Manager = (*Store)(nil)

// Store keeps page 0 as a sentinel holding the page count and the head of a
// free list threaded through the freed pages themselves.
type Store struct {
	mu          sync.Mutex
	device      disk.Device
	initialized bool
	pageCount   int64
	freeHead    int64
	reads       atomic.Int64
}
