package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingHandler(t *testing.T) {
	h := NewRecordingHandler("AccountRegistered", "AccountDeleted")
	assert.Equal(t, []string{"AccountRegistered", "AccountDeleted"}, h.EventTypes())

	first := NewTestEvent("AccountRegistered")
	second := NewTestEvent("AccountDeleted")
	require.NoError(t, h.Handle(context.Background(), first))
	require.NoError(t, h.Handle(context.Background(), second))

	assert.Equal(t, 2, h.HandledCount())
	assert.Same(t, first, h.Handled()[0])
	assert.Equal(t, []string{"AccountRegistered", "AccountDeleted"}, h.HandledTypes())
}

func TestRecordingHandler_ErrorAndReset(t *testing.T) {
	h := NewRecordingHandler("X")
	h.SetError(assert.AnError)

	err := h.Handle(context.Background(), NewTestEvent("X"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, h.HandledCount())

	h.Reset()
	assert.Zero(t, h.HandledCount())
	assert.NoError(t, h.Handle(context.Background(), NewTestEvent("X")))
}

func TestNewTestEventWithID(t *testing.T) {
	id := uuid.New()
	e := NewTestEventWithID(id, "IngestionLogged")

	assert.Equal(t, id, e.EventID())
	assert.Equal(t, "IngestionLogged", e.EventType())
	assert.Equal(t, "TestAggregate", e.AggregateType())
	assert.NotEqual(t, uuid.Nil, e.AggregateID())
	assert.WithinDuration(t, time.Now(), e.OccurredAt(), time.Second)
}

func TestWaitForEventCount(t *testing.T) {
	h := NewRecordingHandler("X")
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = h.Handle(context.Background(), NewTestEvent("X"))
	}()

	WaitForEventCount(t, h, 1, time.Second)
}
