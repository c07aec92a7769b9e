package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"questrya/pkg/rabbitmq"
)

const (
	ComputeTask              = "compute"
	GenerateRandomStringTask = "generate_random_string"
)

// ErrPoisonMessage marks a delivery that cannot be decoded or routed. The consumer drops it.
var ErrPoisonMessage = fmt.Errorf("poison message: %w", rabbitmq.ErrUnprocessable)

// ErrUnknownTask is returned for task names with no registered handler.
var ErrUnknownTask = errors.New("unknown task")

// Task is the envelope carried on the task queues.
type Task struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Args       map[string]any `json:"args,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// Decode parses a queue message body into a Task.
func Decode(body []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return Task{}, fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	if t.Name == "" {
		return Task{}, fmt.Errorf("%w: task name is empty", ErrPoisonMessage)
	}
	return t, nil
}
