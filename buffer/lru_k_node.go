package buffer

import "math"

const INVALID_FRAME_ID = -1

// INF_DISTANCE is the backward k-distance of a frame seen fewer than k times.
const INF_DISTANCE = math.MaxInt64

func newLrukNode(frameId, k int) *lrukNode {
	return &lrukNode{frameId: frameId, stamps: make([]int64, k)}
}

// backwardDistance is now minus the time of the k-th most recent access.
func (n *lrukNode) backwardDistance(now int64) int64 {
	if n.seen < len(n.stamps) {
		return INF_DISTANCE
	}
	return now - n.earliest()
}

// earliest is the oldest access still remembered.
func (n *lrukNode) earliest() int64 {
	if n.seen < len(n.stamps) {
		return n.stamps[0]
	}
	return n.stamps[n.head]
}

func (n *lrukNode) touch(now int64) {
	n.stamps[n.head] = now
	n.head = (n.head + 1) % len(n.stamps)
	n.seen = min(n.seen+1, len(n.stamps))
}

// lrukNode remembers the last k access times of a frame in a ring.
type lrukNode struct {
	frameId   int
	stamps    []int64
	head      int
	seen      int
	evictable bool
}
