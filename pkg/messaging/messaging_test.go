package messaging

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := TaskStatusChangedEvent{
		TaskID:       "task-1",
		ProjectID:    "project-1",
		OldStatus:    "TODO",
		NewStatus:    "IN_PROGRESS",
		ChangedBy:    "user-1",
		TenantID:     "tenant-1",
		TenantSchema: "tenant_acme",
	}

	event, err := NewEvent(EventTaskStatusChanged, "task-service", "corr-1", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventTaskStatusChanged, event.Type)
	assert.Equal(t, "task-service", event.Source)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Minute)

	var decoded TaskStatusChangedEvent
	require.NoError(t, event.UnmarshalData(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestRetryCount(t *testing.T) {
	tests := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{"nil headers", nil, 0},
		{"no counter", amqp.Table{}, 0},
		{"int32 counter", amqp.Table{retryCountHeader: int32(2)}, 2},
		{"int64 counter", amqp.Table{retryCountHeader: int64(3)}, 3},
		{"int counter", amqp.Table{retryCountHeader: 1}, 1},
		{"unrelated type ignored", amqp.Table{retryCountHeader: "two"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryCount(tt.headers))
		})
	}
}
