package disk

import (
	"errors"
	"sync"
)

var ErrSchedulerClosed = errors.New("disk scheduler is closed")

// NewScheduler starts a worker that applies requests to device in arrival order.
func NewScheduler(device Device) *Scheduler {
	ds := &Scheduler{
		reqCh:  make(chan DiskReq, 100),
		device: device,
		done:   make(chan struct{}),
	}

	go ds.handleDiskReq()
	return ds
}

func NewRequest(pageId int64, data []byte, isWrite bool) DiskReq {
	return DiskReq{
		PageId: pageId,
		Data:   data,
		Write:  isWrite,
		RespCh: make(chan DiskResp, 1),
	}
}

func (ds *Scheduler) Schedule(req DiskReq) <-chan DiskResp {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.closed {
		go func() { req.RespCh <- DiskResp{Err: ErrSchedulerClosed} }()
		return req.RespCh
	}

	ds.reqCh <- req
	return req.RespCh
}

func (ds *Scheduler) ReadPage(pageId int64) ([]byte, error) {
	resp := <-ds.Schedule(NewRequest(pageId, nil, false))
	return resp.Data, resp.Err
}

func (ds *Scheduler) WritePage(pageId int64, data []byte) error {
	resp := <-ds.Schedule(NewRequest(pageId, data, true))
	return resp.Err
}

func (ds *Scheduler) Pages() int64 {
	return ds.device.Pages()
}

// Close drains pending requests, stops the worker and closes the device.
func (ds *Scheduler) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	close(ds.reqCh)
	ds.mu.Unlock()

	<-ds.done
	return ds.device.Close()
}

func (ds *Scheduler) handleDiskReq() {
	defer close(ds.done)

	for req := range ds.reqCh {
		if req.Write {
			err := ds.device.WritePage(req.PageId, req.Data)
			req.RespCh <- DiskResp{Success: err == nil, Err: err}
			continue
		}

		data, err := ds.device.ReadPage(req.PageId)
		req.RespCh <- DiskResp{Success: err == nil, Data: data, Err: err}
	}
}

type Scheduler struct {
	mu     sync.RWMutex
	closed bool
	reqCh  chan DiskReq
	device Device
	done   chan struct{}
}

type DiskReq struct {
	PageId int64
	Data   []byte
	Write  bool
	RespCh chan DiskResp
}

type DiskResp struct {
	Success bool
	Data    []byte
	Err     error
}
