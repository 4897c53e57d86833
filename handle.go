package gojabind

import (
	"math"
	"sync"
	"sync/atomic"
)

// =============================================================================
// NATIVE HANDLE STORE
// =============================================================================

// FinalizerFunc releases the native payload attached to a wrapped instance.
// It runs at most once per handle and must not call back into the Context.
type FinalizerFunc func(payload interface{})

// Handle is a tagged owning reference to the native data attached to one
// script instance. It is created when the instance is constructed and
// released exactly once through the store.
type Handle struct {
	id      int32
	class   *Class
	payload interface{}
}

// ID returns the store identifier of the handle. 0 is never issued.
func (h *Handle) ID() int32 { return h.id }

// Class returns the class the handle was created for.
func (h *Handle) Class() *Class { return h.class }

// Payload returns the native data the handle owns. After release the
// payload is nil.
func (h *Handle) Payload() interface{} { return h.payload }

// handleStore manages the live handles of one Context.
type handleStore struct {
	handles sync.Map     // int32 -> *Handle
	nextID  atomic.Int32 // IDs are never reused
}

func newHandleStore() *handleStore {
	return &handleStore{} // the counter starts at 0; Add issues IDs from 1
}

func (hs *handleStore) store(h *Handle) int32 {
	id := hs.nextID.Add(1)
	if id <= 0 || id == math.MaxInt32 {
		panic("gojabind: handle store ID overflow, too many live instances")
	}
	h.id = id
	hs.handles.Store(id, h)
	return id
}

func (hs *handleStore) load(id int32) (*Handle, bool) {
	if v, ok := hs.handles.Load(id); ok {
		return v.(*Handle), true
	}
	return nil, false
}

// release removes the handle and runs its class finalizer. LoadAndDelete
// keeps the path idempotent: a second release of the same ID is a no-op, so
// the finalizer fires at most once no matter how the release was triggered.
func (hs *handleStore) release(id int32) bool {
	v, ok := hs.handles.LoadAndDelete(id)
	if !ok {
		return false
	}
	h := v.(*Handle)
	if h.class != nil && h.class.finalizer != nil {
		h.class.finalizer(h.payload)
	}
	h.payload = nil
	return true
}

// clear releases every live handle. Called when the owning Context closes.
func (hs *handleStore) clear() {
	hs.handles.Range(func(key, _ interface{}) bool {
		hs.release(key.(int32))
		return true
	})
}

func (hs *handleStore) count() int {
	count := 0
	hs.handles.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}
