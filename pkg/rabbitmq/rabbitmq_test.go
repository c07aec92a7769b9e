package rabbitmq

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type recordingAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (r *recordingAck) Ack(bool) error {
	r.acked = true
	return nil
}

func (r *recordingAck) Nack(_, requeue bool) error {
	r.nacked = true
	r.requeued = requeue
	return nil
}

func TestSettle(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	tests := []struct {
		name     string
		err      error
		acked    bool
		requeued bool
	}{
		{name: "success acks", err: nil, acked: true},
		{name: "transient error requeues", err: errors.New("db down"), requeued: true},
		{name: "unprocessable is dropped", err: fmt.Errorf("bad json: %w", ErrUnprocessable)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAck{}
			Settle(ack, tt.err, log)
			assert.Equal(t, tt.acked, ack.acked)
			assert.Equal(t, !tt.acked, ack.nacked)
			assert.Equal(t, tt.requeued, ack.requeued)
		})
	}
}
