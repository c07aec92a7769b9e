package tasks

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"questrya/internal/services"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// HandlerFunc runs one task and returns its result.
type HandlerFunc func(task Task) (any, error)

// EventHandlerFunc reacts to one user event.
type EventHandlerFunc func(event services.UserEvent) error

// Dispatcher maps task names and user events to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	events   map[string]EventHandlerFunc
	log      logrus.FieldLogger
}

// NewDispatcher creates a Dispatcher with the built-in task and event handlers registered.
func NewDispatcher(log logrus.FieldLogger) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		events:   make(map[string]EventHandlerFunc),
		log:      log,
	}
	d.Register(ComputeTask, Compute)
	d.Register(GenerateRandomStringTask, GenerateRandomString)
	d.RegisterEvent(services.EventUserRegistered, d.logUserEvent)
	d.RegisterEvent(services.EventUserUpdated, d.logUserEvent)
	return d
}

// Register binds a task name to a handler, replacing any previous one.
func (d *Dispatcher) Register(name string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// RegisterEvent binds a user event name to a handler.
func (d *Dispatcher) RegisterEvent(event string, h EventHandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[event] = h
}

// Has reports whether a handler is registered for the task name.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[name]
	return ok
}

// Names returns the registered task names, sorted.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes a decoded task.
func (d *Dispatcher) Run(task Task) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[task.Name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", ErrPoisonMessage, ErrUnknownTask, task.Name)
	}
	return h(task)
}

// HandleTask is the consumer callback for the task queues.
func (d *Dispatcher) HandleTask(msg amqp.Delivery) error {
	task, err := Decode(msg.Body)
	if err != nil {
		return err
	}

	log := d.log.WithFields(logrus.Fields{"task_id": task.ID, "task": task.Name})
	result, err := d.Run(task)
	if err != nil {
		return err
	}
	log.WithField("result", result).Info("task completed")
	return nil
}

// HandleUserEvent is the consumer callback for the user events queue.
func (d *Dispatcher) HandleUserEvent(msg amqp.Delivery) error {
	var event services.UserEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}

	d.mu.RLock()
	h, ok := d.events[event.Event]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown user event %q", ErrPoisonMessage, event.Event)
	}
	return h(event)
}

func (d *Dispatcher) logUserEvent(event services.UserEvent) error {
	d.log.WithFields(logrus.Fields{
		"event":       event.Event,
		"user_id":     event.UserID,
		"username":    event.Username,
		"occurred_at": event.OccurredAt,
	}).Info("user event received")
	return nil
}
