// Package workerbridge turns blocking work (e.g. shader compilation)
// into asynchronous completion messages delivered through an
// eventbus.Bus, ported from EventBus::WorkerThreadBridge<ResultType>.
package workerbridge

import (
	"sync"

	"github.com/vixengraph/rendergraph/internal/eventbus"
)

// WorkID identifies a submitted unit of work.
type WorkID uint64

// Result is the contract a bridge's result message type must satisfy so
// the bridge can stamp success/failure and sender onto it before
// publishing.
type Result interface {
	eventbus.Message
	SetSender(id uint64)
	SetFailure(err string)
}

type workItem[R Result] struct {
	id     WorkID
	sender uint64
	fn     func() (R, error)
}

// Bridge owns one worker goroutine, a FIFO work queue, and a reference
// to the bus results are published to.
type Bridge[R Result] struct {
	bus *eventbus.Bus

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []workItem[R]
	running bool
	nextID  WorkID

	cancelMu sync.Mutex
	canceled map[WorkID]bool

	done chan struct{}
}

// New starts the worker goroutine and returns a ready-to-use Bridge.
func New[R Result](bus *eventbus.Bus) *Bridge[R] {
	b := &Bridge[R]{
		bus:      bus,
		running:  true,
		canceled: make(map[WorkID]bool),
		done:     make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.loop()
	return b
}

// SubmitWork enqueues fn for execution on the worker goroutine and
// returns immediately with an ID for tracking/cancellation.
func (b *Bridge[R]) SubmitWork(sender uint64, fn func() (R, error)) WorkID {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.queue = append(b.queue, workItem[R]{id: id, sender: sender, fn: fn})
	b.mu.Unlock()
	b.cond.Signal()
	return id
}

// Cancel marks workID to be skipped if it has not started yet. Already
// running work is not interrupted.
func (b *Bridge[R]) Cancel(workID WorkID) {
	b.cancelMu.Lock()
	b.canceled[workID] = true
	b.cancelMu.Unlock()
}

// QueuedCount reports how many items are waiting.
func (b *Bridge[R]) QueuedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Close signals the worker goroutine to exit after draining the queue
// and waits for it to finish.
func (b *Bridge[R]) Close() {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
	b.cond.Signal()
	<-b.done
}

func (b *Bridge[R]) loop() {
	defer close(b.done)
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && b.running {
			b.cond.Wait()
		}
		if len(b.queue) == 0 && !b.running {
			b.mu.Unlock()
			return
		}
		item := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		if b.isCanceled(item.id) {
			continue
		}
		b.execute(item)
	}
}

func (b *Bridge[R]) isCanceled(id WorkID) bool {
	b.cancelMu.Lock()
	defer b.cancelMu.Unlock()
	return b.canceled[id]
}

func (b *Bridge[R]) execute(item workItem[R]) {
	result, err := b.safeInvoke(item.fn)
	result.SetSender(item.sender)
	if err != nil {
		result.SetFailure(err.Error())
	}
	b.bus.Publish(result)
}

func (b *Bridge[R]) safeInvoke(fn func() (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			err = panicError{r}
		}
	}()
	return fn()
}

type panicError struct{ v interface{} }

func (p panicError) Error() string { return "worker goroutine panic: " + errString(p.v) }

func errString(v interface{}) string {
	if e, ok := v.(error); ok {
		return e.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}
