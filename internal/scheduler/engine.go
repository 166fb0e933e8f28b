// Package scheduler emits a notification when each planned slot is about to
// start. The pending set is replaced wholesale whenever the queue is rebuilt.
package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/dayplan/internal/planner"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrStopped            = errors.New("scheduler: engine stopped")
)

type Kind string

const (
	KindSlotStart Kind = "slot_start"
	KindSlotEnd   Kind = "slot_end"
)

type SlotEvent struct {
	ID     string
	TaskID string
	Title  string
	Kind   Kind
	At     time.Time
}

// EventsFor turns queued slots into start and end events, dropping any that
// fire before now. Starts fire lead ahead of the slot.
func EventsFor(queue []planner.Slot, now time.Time, lead time.Duration) []SlotEvent {
	out := make([]SlotEvent, 0, len(queue)*2)
	for _, s := range queue {
		start := s.EstimatedStart.Add(-lead)
		if !start.Before(now) {
			out = append(out, SlotEvent{ID: s.Task.ID + ":start", TaskID: s.Task.ID, Title: s.Task.Title, Kind: KindSlotStart, At: start})
		}
		if s.EstimatedEnd.After(now) {
			out = append(out, SlotEvent{ID: s.Task.ID + ":end", TaskID: s.Task.ID, Title: s.Task.Title, Kind: KindSlotEnd, At: s.EstimatedEnd})
		}
	}
	return out
}

type eventHeap []SlotEvent

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].At.Before(h[j].At) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(SlotEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Engine delivers scheduled events on C in time order. Delivery never blocks:
// when the buffer is full the event is counted as dropped.
type Engine struct {
	mu      sync.Mutex
	pending eventHeap
	out     chan SlotEvent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
	now     func() time.Time
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		pending: make(eventHeap, 0),
		out:     make(chan SlotEvent, bufferSize),
		wakeup:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		now:     time.Now,
	}
}

func (e *Engine) C() <-chan SlotEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.pending)
	go e.loop()
}

// Stop halts delivery and closes C. It is safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(ev SlotEvent) error {
	if ev.At.IsZero() {
		return ErrInvalidTriggerTime
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	heap.Push(&e.pending, ev)
	e.signalWakeup()
	return nil
}

// Replace discards every pending event and schedules events instead. Events
// with a zero time are skipped.
func (e *Engine) Replace(events []SlotEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	next := make(eventHeap, 0, len(events))
	for _, ev := range events {
		if !ev.At.IsZero() {
			next = append(next, ev)
		}
	}
	heap.Init(&next)
	e.pending = next
	e.signalWakeup()
	return nil
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, ok := e.peek()
		if !ok {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := next.At.Sub(e.now())
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			for _, ev := range e.popDue(e.now()) {
				select {
				case e.out <- ev:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (SlotEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return SlotEvent{}, false
	}
	return e.pending[0], true
}

func (e *Engine) popDue(now time.Time) []SlotEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []SlotEvent
	for len(e.pending) > 0 && !e.pending[0].At.After(now) {
		out = append(out, heap.Pop(&e.pending).(SlotEvent))
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
