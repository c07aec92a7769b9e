package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrQueueDisabled is returned by Enqueue when no broker is configured.
var ErrQueueDisabled = errors.New("task queue is disabled")

// Publisher delivers a message body to a named queue.
type Publisher interface {
	Publish(queue string, body []byte) error
}

// routes pins tasks to dedicated queues; other tasks go to the default queue.
var routes = map[string]string{
	ComputeTask:              "compute",
	GenerateRandomStringTask: "generate_random_string",
}

// Queues lists every task queue for the given default queue, sorted and without duplicates.
func Queues(defaultQueue string) []string {
	seen := map[string]bool{defaultQueue: true}
	queues := []string{defaultQueue}
	for _, q := range routes {
		if !seen[q] {
			seen[q] = true
			queues = append(queues, q)
		}
	}
	sort.Strings(queues)
	return queues
}

// Enqueuer routes tasks to their queues and publishes them.
type Enqueuer struct {
	pub          Publisher
	defaultQueue string
	log          logrus.FieldLogger
}

// NewEnqueuer creates an Enqueuer. A nil publisher makes every Enqueue fail with ErrQueueDisabled.
func NewEnqueuer(pub Publisher, defaultQueue string, log logrus.FieldLogger) *Enqueuer {
	return &Enqueuer{
		pub:          pub,
		defaultQueue: defaultQueue,
		log:          log,
	}
}

// QueueFor returns the queue a task name is routed to.
func (e *Enqueuer) QueueFor(name string) string {
	if q, ok := routes[name]; ok {
		return q
	}
	return e.defaultQueue
}

// Queues lists every queue the enqueuer can publish to.
func (e *Enqueuer) Queues() []string {
	return Queues(e.defaultQueue)
}

// Enqueue wraps name and args in a Task and publishes it.
func (e *Enqueuer) Enqueue(name string, args map[string]any) (Task, error) {
	if e.pub == nil {
		return Task{}, ErrQueueDisabled
	}

	task := Task{
		ID:         uuid.NewString(),
		Name:       name,
		Args:       args,
		EnqueuedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(task)
	if err != nil {
		return Task{}, fmt.Errorf("failed to marshal task %s: %w", name, err)
	}

	queue := e.QueueFor(name)
	if err := e.pub.Publish(queue, body); err != nil {
		return Task{}, fmt.Errorf("failed to enqueue task %s: %w", name, err)
	}

	e.log.WithFields(logrus.Fields{"task_id": task.ID, "task": name, "queue": queue}).Info("task enqueued")
	return task, nil
}
