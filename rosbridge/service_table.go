package rosbridge

import (
	"sync"

	json "github.com/goccy/go-json"
)

/*************************************************************************************************/
/* SERVICE RESPONSES AND HANDLERS                                                                */
/*************************************************************************************************/

// Response to a call_service request.
type ServiceResponse struct {
	// Name of the service which has answered
	Service string
	// Correlation id of the request. Empty for responses without an id.
	ID string
	// Raw values returned by the service. Nil when the response has no values.
	Values json.RawMessage
	// Whether the service call succeeded. Responses without a result field are successful.
	Result bool
}

// Handler which receives service responses.
type ServiceHandler interface {
	HandleServiceResponse(response ServiceResponse) error
}

// Adapter which allows the use of an ordinary function as a ServiceHandler.
type ServiceHandlerFunc func(response ServiceResponse) error

func (f ServiceHandlerFunc) HandleServiceResponse(response ServiceResponse) error {
	return f(response)
}

// Handler which receives the text form of the values of responses without a correlation id when
// no handler is registered for the service. values is an empty string if the response has none.
type ServiceTextHandler func(service string, values string) error

/*************************************************************************************************/
/* PENDING SERVICE TABLE                                                                         */
/*************************************************************************************************/

type pendingCall struct {
	handler ServiceHandler
	// Distinguishes successive calls made with the same correlation id
	seq uint64
	// Set once the response is queued for dispatch
	answered bool
}

// One-shot response handlers keyed by correlation id, plus the most recent response without an
// id for each service name.
type pendingServiceTable struct {
	mu      sync.Mutex
	pending map[string]pendingCall
	seq     uint64
	legacy  map[string]*workItem
}

func newPendingServiceTable() *pendingServiceTable {
	return &pendingServiceTable{
		pending: map[string]pendingCall{},
		legacy:  map[string]*workItem{},
	}
}

// Record the handler under the correlation id, replacing any handler already pending for it.
// The returned sequence number can be used to forget this very call.
func (t *pendingServiceTable) record(id string, handler ServiceHandler) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.pending[id] = pendingCall{handler: handler, seq: t.seq}
	return t.seq
}

// Forget the call identified by id and seq if it is still pending.
func (t *pendingServiceTable) forget(id string, seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if call, ok := t.pending[id]; ok && call.seq == seq {
		delete(t.pending, id)
	}
}

// Flag the call pending for id as answered: its response is queued and the handler survives
// dropUnanswered.
func (t *pendingServiceTable) markAnswered(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if call, ok := t.pending[id]; ok {
		call.answered = true
		t.pending[id] = call
	}
}

// Remove and return the handler pending for the correlation id.
func (t *pendingServiceTable) resolve(id string) (ServiceHandler, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.pending[id]
	if !ok {
		return nil, false
	}
	delete(t.pending, id)
	return call.handler, true
}

// Number of calls waiting for a response.
func (t *pendingServiceTable) pendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Make item the most recent response without id for its service.
func (t *pendingServiceTable) setLegacy(item *workItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.legacy[item.response.Service] = item
}

// Clear the slot of the item service and return true if item is still the most recent response
// for the service. Returns false if a newer response replaced it or if the slot has been dropped.
func (t *pendingServiceTable) takeLegacy(item *workItem) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.legacy[item.response.Service] != item {
		return false
	}
	delete(t.legacy, item.response.Service)
	return true
}

// Drop the pending calls whose response has not arrived. Handlers of queued responses and the
// legacy slots are kept so that Pump still delivers what was received.
func (t *pendingServiceTable) dropUnanswered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := 0
	for id, call := range t.pending {
		if !call.answered {
			delete(t.pending, id)
			dropped++
		}
	}
	return dropped
}

// Drop all pending calls and legacy responses. Dropped handlers are never invoked.
func (t *pendingServiceTable) dropAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := len(t.pending)
	t.pending = map[string]pendingCall{}
	t.legacy = map[string]*workItem{}
	return dropped
}
