package services

import (
	"encoding/json"
	"time"

	"questrya/internal/domain"

	"github.com/sirupsen/logrus"
)

// UserEventsQueue is the queue user lifecycle events are published to.
const UserEventsQueue = "user_events"

const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
)

// EventPublisher delivers a message body to a named queue.
type EventPublisher interface {
	Publish(queue string, body []byte) error
}

// UserEvent is the message published after a user is stored.
type UserEvent struct {
	Event      string    `json:"event"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publishUserEvent never fails the caller; delivery problems are only logged.
func publishUserEvent(p EventPublisher, log logrus.FieldLogger, event string, u *domain.User) {
	if p == nil {
		log.WithField("event", event).Debug("no event publisher configured, skipping")
		return
	}

	body, err := json.Marshal(UserEvent{
		Event:      event,
		UserID:     u.ID().String(),
		Username:   u.Username(),
		Email:      u.Email().Address(),
		OccurredAt: u.LastUpdatedAt(),
	})
	if err != nil {
		log.WithError(err).WithField("event", event).Error("failed to marshal user event")
		return
	}

	if err := p.Publish(UserEventsQueue, body); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"event": event, "user_id": u.ID()}).Warn("failed to publish user event")
		return
	}
	log.WithFields(logrus.Fields{"event": event, "user_id": u.ID()}).Debug("published user event")
}
