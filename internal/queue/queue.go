package queue

import (
	"log"
	"sync"
	"time"
)

// Topics published by the services.
const (
	TopicEscalations = "escalations"
	TopicDeliveries  = "delivery_events"
)

// Queue decouples state transitions from their notification fan-out. The
// server runs with the in-memory implementation; deployments with a broker
// swap in AMQPQueue.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process pub/sub with bounded retry.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

type job struct {
	payload    any
	retryCount int
	maxRetries int
}

// Publish delivers the payload to every subscriber asynchronously. Topics
// without subscribers drop the payload; the store already holds the durable
// record, the queue is only a notification path.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	for _, handler := range handlers {
		go q.process(topic, handler, job{payload: payload, maxRetries: 3})
	}
	return nil
}

func (q *InMemoryQueue) process(topic string, handler func(payload any) error, j job) {
	for {
		err := handler(j.payload)
		if err == nil {
			return
		}
		j.retryCount++
		if j.retryCount > j.maxRetries {
			log.Printf("[queue] %s handler permanently failed after %d attempts: %v", topic, j.maxRetries, err)
			return
		}
		log.Printf("[queue] %s handler failed (attempt %d/%d): %v", topic, j.retryCount, j.maxRetries, err)
		time.Sleep(time.Duration(j.retryCount*500) * time.Millisecond)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartEscalationLogSubscriber attaches a subscriber that logs every
// escalation notification. Stands in for the external notification worker
// when no broker is configured.
func StartEscalationLogSubscriber(q Queue) {
	err := q.Subscribe(TopicEscalations, func(payload any) error {
		log.Printf("[queue] escalation notification: %+v", payload)
		return nil
	})
	if err != nil {
		log.Printf("[queue] failed to subscribe to %s: %v", TopicEscalations, err)
	}
}

var _ Queue = (*InMemoryQueue)(nil)

// NopQueue discards everything. Useful in tests that don't care about
// notifications.
type NopQueue struct{}

func (NopQueue) Publish(string, any) error                       { return nil }
func (NopQueue) Subscribe(string, func(payload any) error) error { return nil }

var _ Queue = NopQueue{}
