package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRabbitPublisher_DisabledWithoutURI(t *testing.T) {
	p, err := NewRabbitPublisher("", "", nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), AttemptEvent{Type: AttemptRecorded}))
	assert.NoError(t, p.Close())
}

func TestNewRabbitPublisher_BadURI(t *testing.T) {
	_, err := NewRabbitPublisher("not-a-url", "", nil)
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), AttemptEvent{Type: AttemptRecorded, AttemptID: "a1"}))

	got := r.Events()
	require.Len(t, got, 1)
	got[0].AttemptID = "changed"
	assert.Equal(t, "a1", r.Events()[0].AttemptID)
}

func TestAttemptEvent_JSON(t *testing.T) {
	b, err := json.Marshal(AttemptEvent{Type: AttemptAggregateLost, AttemptID: "a1", Score: 8})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "attempt.aggregate_lost", m["eventType"])
	assert.Equal(t, 8.0, m["score"])
	assert.NotContains(t, m, "error")
}
