// Package progress implements the room-addressed progress bus of §4.6:
// a best-effort, fan-out publish interface with two event names,
// task_progress and task_finished, addressed to rooms named task_{taskID}.
//
// The handler-slice-under-mutex, snapshot-before-dispatch shape is
// grounded in the teacher's internal/crawler/events event bus.
package progress

import (
	"fmt"
	"sync"
)

// EventName is one of the two event names the bus carries.
type EventName string

const (
	EventTaskProgress EventName = "task_progress"
	EventTaskFinished EventName = "task_finished"
)

// Event is a single published message, addressed to a room.
type Event struct {
	Room string
	Name EventName
	Data map[string]any
}

// Handler receives events published to rooms it is subscribed to.
type Handler func(Event)

// Publisher is the interface the Executor and Scheduler depend on. Tests
// substitute an in-memory Recorder; production wiring substitutes Bus.
type Publisher interface {
	Publish(room string, name EventName, data map[string]any)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a room-addressed, in-process pub/sub hub.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	subsByRoom map[string][]subscription
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subsByRoom: make(map[string][]subscription)}
}

// Join subscribes handler to room, returning a leave func that removes
// only this subscription.
func (b *Bus) Join(room string, handler Handler) (leave func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subsByRoom[room] = append(b.subsByRoom[room], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subsByRoom[room]
		for i, s := range subs {
			if s.id == id {
				b.subsByRoom[room] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish fans out an event to every handler currently subscribed to
// room. The subscriber slice is snapshotted under the lock and dispatched
// without holding it, so emission is non-blocking best-effort and never
// held across handler I/O, matching the teacher's bus.
func (b *Bus) Publish(room string, name EventName, data map[string]any) {
	b.mu.RLock()
	subs := b.subsByRoom[room]
	handlers := make([]Handler, len(subs))
	for i, s := range subs {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	event := Event{Room: room, Name: name, Data: data}
	for _, h := range handlers {
		h(event)
	}
}

// Room returns the canonical room name for a task id.
func Room(taskID int64) string {
	return fmt.Sprintf("task_%d", taskID)
}
