package rosbridge

import (
	"sync"

	json "github.com/goccy/go-json"
)

// Kind of a dispatch work item
type itemKind int

const (
	topicMessageItem itemKind = iota
	correlatedResponseItem
	legacyResponseItem
)

func (k itemKind) String() string {
	switch k {
	case topicMessageItem:
		return "topic_message"
	case correlatedResponseItem:
		return "service_response"
	case legacyResponseItem:
		return "legacy_service_response"
	default:
		return "unknown"
	}
}

// Work item enqueued by the receive loop and consumed by the pump.
type workItem struct {
	kind itemKind
	// Topic name and raw undecoded message for topic messages
	topic string
	msg   json.RawMessage
	// Response for service responses
	response ServiceResponse
}

// Unbounded FIFO queue shared by the receive loop and the pump.
type dispatchQueue struct {
	mu    sync.Mutex
	items []*workItem
}

func newDispatchQueue() *dispatchQueue {
	return &dispatchQueue{items: []*workItem{}}
}

func (q *dispatchQueue) enqueue(item *workItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Remove and return all items currently present, in arrival order.
func (q *dispatchQueue) drain() []*workItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = []*workItem{}
	return items
}

func (q *dispatchQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
