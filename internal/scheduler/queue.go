// internal/scheduler/queue.go

package scheduler

import (
	"container/heap"
	"time"
)

// waitHeap implements container/heap.Interface, ordered so the room that
// should be dispatched next (highest priority, then earliest wait start) is
// always at index 0 — the same pattern as the teacher's queue.go
// PriorityQueue.
type waitHeap []*waitItem

func (h waitHeap) Len() int { return len(h) }

func (h waitHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].waitFrom.Before(h[j].waitFrom)
}

func (h waitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waitHeap) Push(x interface{}) {
	item := x.(*waitItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *waitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// QueueManager owns the service map and the wait priority queue, and keeps
// an index from room id to heap slot so a room can be found in O(1) and
// removed in O(log n) without a linear scan — grounded in the teacher's
// queue.go waitQueueIndex pattern.
type QueueManager struct {
	serviceOrder []string
	service      map[string]*serviceEntry

	wait      waitHeap
	waitIndex map[string]*waitItem
}

func NewQueueManager() *QueueManager {
	return &QueueManager{
		service:   make(map[string]*serviceEntry),
		wait:      make(waitHeap, 0),
		waitIndex: make(map[string]*waitItem),
	}
}

func (q *QueueManager) ServiceCount() int { return len(q.serviceOrder) }

func (q *QueueManager) IsInService(roomID string) bool {
	_, ok := q.service[roomID]
	return ok
}

func (q *QueueManager) IsWaiting(roomID string) bool {
	_, ok := q.waitIndex[roomID]
	return ok
}

func (q *QueueManager) ServiceRoomIDs() []string {
	out := make([]string, len(q.serviceOrder))
	copy(out, q.serviceOrder)
	return out
}

func (q *QueueManager) ServiceEntry(roomID string) *serviceEntry {
	return q.service[roomID]
}

// WaitEntry returns the room's wait-heap item, or nil if it isn't waiting.
func (q *QueueManager) WaitEntry(roomID string) *waitItem {
	return q.waitIndex[roomID]
}

func (q *QueueManager) AddToService(roomID string, priority int, from time.Time) {
	q.serviceOrder = append(q.serviceOrder, roomID)
	q.service[roomID] = &serviceEntry{roomID: roomID, priority: priority, serviceFrom: from}
}

func (q *QueueManager) RemoveFromService(roomID string) {
	delete(q.service, roomID)
	for i, id := range q.serviceOrder {
		if id == roomID {
			q.serviceOrder = append(q.serviceOrder[:i], q.serviceOrder[i+1:]...)
			break
		}
	}
}

func (q *QueueManager) AddToWait(roomID string, priority int, from time.Time) {
	item := &waitItem{roomID: roomID, priority: priority, waitFrom: from}
	heap.Push(&q.wait, item)
	q.waitIndex[roomID] = item
}

func (q *QueueManager) RemoveFromWait(roomID string) {
	item, ok := q.waitIndex[roomID]
	if !ok {
		return
	}
	heap.Remove(&q.wait, item.index)
	delete(q.waitIndex, roomID)
}

// PeekWait returns the room that should be dispatched next, without
// removing it, or ok=false if the wait queue is empty.
func (q *QueueManager) PeekWait() (item *waitItem, ok bool) {
	if len(q.wait) == 0 {
		return nil, false
	}
	return q.wait[0], true
}

func (q *QueueManager) PopWait() (item *waitItem, ok bool) {
	if len(q.wait) == 0 {
		return nil, false
	}
	it := heap.Pop(&q.wait).(*waitItem)
	delete(q.waitIndex, it.roomID)
	return it, true
}

// WaitItems returns a snapshot of all waiting rooms in no particular order
// (iteration/inspection only — dispatch order always goes through the heap).
func (q *QueueManager) WaitItems() []*waitItem {
	out := make([]*waitItem, len(q.wait))
	copy(out, q.wait)
	return out
}

func (q *QueueManager) WaitLen() int { return len(q.wait) }
