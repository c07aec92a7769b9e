package handlers

import (
	"fmt"

	"questrya/internal/tasks"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// EnqueueTaskRequest is the body of POST /tasks/:name.
type EnqueueTaskRequest struct {
	Args map[string]any `json:"args"`
}

// TaskHandler lets authenticated clients schedule background tasks.
type TaskHandler struct {
	enqueuer   *tasks.Enqueuer
	dispatcher *tasks.Dispatcher
	log        logrus.FieldLogger
}

// NewTaskHandler creates a new TaskHandler. dispatcher is only used to check task names.
func NewTaskHandler(enqueuer *tasks.Enqueuer, dispatcher *tasks.Dispatcher, log logrus.FieldLogger) *TaskHandler {
	return &TaskHandler{enqueuer: enqueuer, dispatcher: dispatcher, log: log}
}

// RegisterRoutes registers the task routes behind auth.
func (h *TaskHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	taskRoutes := router.Group("/tasks", auth)
	taskRoutes.Post("/:name", h.HandleEnqueue)
}

// HandleEnqueue publishes a task and answers before it runs.
func (h *TaskHandler) HandleEnqueue(c *fiber.Ctx) error {
	name := c.Params("name")
	if !h.dispatcher.Has(name) {
		return badRequest(c, fmt.Sprintf("Unknown task %q", name))
	}

	var req EnqueueTaskRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	task, err := h.enqueuer.Enqueue(name, req.Args)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id": task.ID,
		"name":    task.Name,
		"queue":   h.enqueuer.QueueFor(task.Name),
	})
}
