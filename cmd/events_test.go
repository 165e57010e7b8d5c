package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/internal/mq"
	"github.com/scholarhub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := logEvent(zap.New(core))

	event := types.ApplicationEvent{
		Type:          "application.status_changed",
		ApplicationID: uuid.New(),
		Status:        types.StatusCompleted,
		Actor:         "mod@example.com",
		OccurredAt:    time.Now().UTC(),
	}
	data, err := event.Encode()
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), mq.Message{ID: "1", Data: data}))
	require.NoError(t, handler(context.Background(), mq.Message{ID: "2", Data: []byte("{")}))

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0].ContextMap()
	assert.Equal(t, event.ApplicationID.String(), first["application_id"])
	assert.Equal(t, "completed", first["status"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}
