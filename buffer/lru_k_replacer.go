package buffer

import (
	"sync"
)

func NewLrukReplacer(capacity, k int) *lrukReplacer {
	return &lrukReplacer{
		k:            max(k, 1),
		nodeStore:    map[int]*lrukNode{},
		replacerSize: capacity,
	}
}

func (lru *lrukReplacer) recordAccess(frameId int) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if frameId < 0 || frameId >= lru.replacerSize {
		return
	}

	node, ok := lru.nodeStore[frameId]
	if !ok {
		node = newLrukNode(frameId, lru.k)
		lru.nodeStore[frameId] = node
	}

	lru.clock += 1
	node.touch(lru.clock)
}

func (lru *lrukReplacer) setEvictable(frameId int, evictable bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	node, ok := lru.nodeStore[frameId]
	if !ok || node.evictable == evictable {
		return
	}

	node.evictable = evictable
	if evictable {
		lru.currSize += 1
	} else {
		lru.currSize -= 1
	}
}

// evict picks the evictable frame with the largest backward k-distance. Frames
// with fewer than k accesses have infinite distance and go first, oldest first.
func (lru *lrukReplacer) evict() (int, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	var victim *lrukNode
	for _, node := range lru.nodeStore {
		if !node.evictable {
			continue
		}

		if victim == nil || evictsBefore(node, victim, lru.clock) {
			victim = node
		}
	}

	if victim == nil {
		return INVALID_FRAME_ID, false
	}

	delete(lru.nodeStore, victim.frameId)
	lru.currSize -= 1
	return victim.frameId, true
}

func evictsBefore(a, b *lrukNode, now int64) bool {
	da, db := a.backwardDistance(now), b.backwardDistance(now)
	if da != db {
		return da > db
	}
	return a.earliest() < b.earliest()
}

func (lru *lrukReplacer) size() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	return lru.currSize
}

type lrukReplacer struct {
	mu            sync.Mutex
	nodeStore     map[int]*lrukNode
	replacerSize  int
	currSize      int
	clock         int64
	k             int
}
