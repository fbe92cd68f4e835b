package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueStatusValid(t *testing.T) {
	for _, s := range []QueueStatus{
		QueueStatusScheduled, QueueStatusInProgress, QueueStatusCompleted,
		QueueStatusNoShow, QueueStatusEmergency,
	} {
		assert.True(t, s.Valid(), s)
	}

	assert.False(t, QueueStatus("cancelled").Valid())
	assert.False(t, QueueStatus("").Valid())
	assert.False(t, QueueStatus("Scheduled").Valid())
}

func TestQueueTransitionTable(t *testing.T) {
	allowed := []struct{ from, to QueueStatus }{
		{QueueStatusScheduled, QueueStatusInProgress},
		{QueueStatusScheduled, QueueStatusNoShow},
		{QueueStatusScheduled, QueueStatusEmergency},
		{QueueStatusInProgress, QueueStatusCompleted},
		{QueueStatusEmergency, QueueStatusInProgress},
		{QueueStatusEmergency, QueueStatusCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	// completed and no-show are terminal
	for _, target := range []QueueStatus{
		QueueStatusScheduled, QueueStatusInProgress, QueueStatusCompleted,
		QueueStatusNoShow, QueueStatusEmergency,
	} {
		assert.False(t, QueueStatusCompleted.CanTransitionTo(target))
		assert.False(t, QueueStatusNoShow.CanTransitionTo(target))
	}

	assert.False(t, QueueStatusScheduled.CanTransitionTo(QueueStatusCompleted))
	assert.False(t, QueueStatusInProgress.CanTransitionTo(QueueStatusEmergency))
}

func TestPriorityOrder(t *testing.T) {
	assert.Equal(t, 1, QueueStatusInProgress.PriorityOrder())
	assert.Equal(t, 2, QueueStatusScheduled.PriorityOrder())
	assert.Equal(t, 3, QueueStatusCompleted.PriorityOrder())
	assert.Equal(t, 4, QueueStatusNoShow.PriorityOrder())
	assert.Equal(t, 4, QueueStatusEmergency.PriorityOrder())
	assert.Equal(t, 4, QueueStatus("rescheduled").PriorityOrder())
}
