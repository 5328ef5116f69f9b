package page

import (
	"encoding/binary"
	"fmt"

	"github.com/jobala/petrodb/storage/disk"
)

// Record page layout:
//
//	[0:8)   next page id in the table chain, INVALID_PAGE_ID at the end
//	[8:10)  occupied slot count
//	[10:..) occupancy bitmap, one bit per slot
//	then    capacity fixed-length slots
const (
	nextPageOffset     = 0
	countOffset        = 8
	RECORD_PAGE_HEADER = 10
)

func NewRecordPage(page *Page, recordLength int) *RecordPage {
	capacity := RecordCapacity(recordLength)
	if capacity <= 0 {
		panic(fmt.Sprintf("record length %d does not fit a page", recordLength))
	}

	return &RecordPage{
		page:         page,
		recordLength: recordLength,
		capacity:     capacity,
		slotsOffset:  RECORD_PAGE_HEADER + bitmapSize(capacity),
	}
}

// RecordCapacity is the largest slot count whose header, bitmap and slots fit
// in one page.
func RecordCapacity(recordLength int) int {
	if recordLength <= 0 {
		return 0
	}

	n := (PAGE_SIZE - RECORD_PAGE_HEADER) * 8 / (8*recordLength + 1)
	for n > 0 && RECORD_PAGE_HEADER+bitmapSize(n)+n*recordLength > PAGE_SIZE {
		n--
	}
	return n
}

func bitmapSize(capacity int) int {
	return (capacity + 7) / 8
}

// Init resets the header of a freshly allocated page.
func (rp *RecordPage) Init() {
	clear(rp.page.Data[:rp.slotsOffset])
	rp.SetNextPageId(disk.INVALID_PAGE_ID)
}

func (rp *RecordPage) Page() *Page {
	return rp.page
}

func (rp *RecordPage) Id() int64 {
	return rp.page.Id
}

func (rp *RecordPage) Capacity() int {
	return rp.capacity
}

func (rp *RecordPage) RecordLength() int {
	return rp.recordLength
}

func (rp *RecordPage) Count() int {
	return int(binary.LittleEndian.Uint16(rp.page.Data[countOffset:]))
}

func (rp *RecordPage) setCount(n int) {
	binary.LittleEndian.PutUint16(rp.page.Data[countOffset:], uint16(n))
}

func (rp *RecordPage) NextPageId() int64 {
	return int64(binary.LittleEndian.Uint64(rp.page.Data[nextPageOffset:]))
}

// HasNext is false at the end of the chain. Page 0 is never a record page, so
// a zero link also ends the chain.
func (rp *RecordPage) HasNext() bool {
	return rp.NextPageId() > 0
}

func (rp *RecordPage) SetNextPageId(pageId int64) {
	binary.LittleEndian.PutUint64(rp.page.Data[nextPageOffset:], uint64(pageId))
}

func (rp *RecordPage) IsOccupied(i int) bool {
	rp.checkSlot(i)
	return rp.page.Data[RECORD_PAGE_HEADER+i/8]&(1<<(i%8)) != 0
}

func (rp *RecordPage) setOccupied(i int, occupied bool) {
	if occupied {
		rp.page.Data[RECORD_PAGE_HEADER+i/8] |= 1 << (i % 8)
	} else {
		rp.page.Data[RECORD_PAGE_HEADER+i/8] &^= 1 << (i % 8)
	}
}

// ReadSlot returns a copy of slot i's bytes, or false when the slot is empty.
func (rp *RecordPage) ReadSlot(i int) ([]byte, bool) {
	if !rp.IsOccupied(i) {
		return nil, false
	}

	res := make([]byte, rp.recordLength)
	copy(res, rp.page.Data[rp.slotStart(i):])
	return res, true
}

func (rp *RecordPage) WriteSlot(i int, data []byte) {
	rp.checkSlot(i)
	if len(data) != rp.recordLength {
		panic(fmt.Sprintf("writing %d bytes into a slot of %d", len(data), rp.recordLength))
	}

	copy(rp.page.Data[rp.slotStart(i):], data)
	if !rp.IsOccupied(i) {
		rp.setOccupied(i, true)
		rp.setCount(rp.Count() + 1)
	}
}

// DeleteSlot only clears the occupancy bit; the bytes stay behind.
func (rp *RecordPage) DeleteSlot(i int) {
	if !rp.IsOccupied(i) {
		return
	}

	rp.setOccupied(i, false)
	rp.setCount(rp.Count() - 1)
}

func (rp *RecordPage) FirstFreeSlot() (int, bool) {
	if rp.Count() >= rp.capacity {
		return -1, false
	}

	for i := range bitmapSize(rp.capacity) {
		b := rp.page.Data[RECORD_PAGE_HEADER+i]
		if b == 0xff {
			continue
		}

		for bit := range 8 {
			slot := i*8 + bit
			if slot >= rp.capacity {
				return -1, false
			}
			if b&(1<<bit) == 0 {
				return slot, true
			}
		}
	}

	return -1, false
}

func (rp *RecordPage) slotStart(i int) int {
	return rp.slotsOffset + i*rp.recordLength
}

func (rp *RecordPage) checkSlot(i int) {
	if i < 0 || i >= rp.capacity {
		panic(fmt.Sprintf("slot %d out of range [0, %d)", i, rp.capacity))
	}
}

type RecordPage struct {
	page         *Page
	recordLength int
	capacity     int
	slotsOffset  int
}
