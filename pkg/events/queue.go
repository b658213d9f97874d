package events

import (
	"context"
	"sync"
	"time"

	"paychat/pkg/logger"
)

const queueWriteTimeout = 2 * time.Second

// Queue is the single inbound-event channel between the transport and the
// conversation loop. The transport publishes; exactly one consumer drains.
type Queue struct {
	events    chan Event
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewQueue() *Queue {
	return &Queue{
		events: make(chan Event, 100),
	}
}

func (q *Queue) Publish(evt Event) {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return
	}
	ch := q.events
	q.mu.RUnlock()

	defer func() {
		if recover() != nil {
			logger.WarnCF("events", "Publish on closed queue recovered", map[string]interface{}{
				logger.FieldEventType: evt.EventType(),
			})
		}
	}()

	select {
	case ch <- evt:
	case <-time.After(queueWriteTimeout):
		logger.ErrorCF("events", "Publish timeout (queue full)", map[string]interface{}{
			logger.FieldEventType: evt.EventType(),
		})
	}
}

func (q *Queue) Consume(ctx context.Context) (Event, bool) {
	select {
	case evt, ok := <-q.events:
		return evt, ok
	case <-ctx.Done():
		return nil, false
	}
}

func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.events)
		q.mu.Unlock()
	})
}
