package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRecordsLevels(t *testing.T) {
	q := NewQueue(10, nil)

	q.Success("create folder", "Folder created")
	q.Info("move", "already there")
	q.Failure("delete", errors.New("denied"))
	q.Failure("delete", nil)

	notices := q.Recent(0)
	require.Len(t, notices, 3)
	assert.Equal(t, LevelSuccess, notices[0].Level)
	assert.Equal(t, LevelInfo, notices[1].Level)
	assert.Equal(t, LevelError, notices[2].Level)
	assert.Equal(t, "denied", notices[2].Message)
	assert.False(t, notices[2].At.IsZero())
}

func TestQueueIsBounded(t *testing.T) {
	q := NewQueue(2, nil)
	q.Success("a", "1")
	q.Success("b", "2")
	q.Success("c", "3")

	notices := q.Recent(5)
	require.Len(t, notices, 2)
	assert.Equal(t, "2", notices[0].Message)
	assert.Equal(t, "3", notices[1].Message)

	last, ok := q.Last()
	require.True(t, ok)
	assert.Equal(t, "c", last.Op)
}

func TestQueueDescriber(t *testing.T) {
	q := NewQueue(5, func(err error) string { return "friendly: " + err.Error() })
	q.Failure("upload", errors.New("boom"))

	drained := q.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "friendly: boom", drained[0].Message)
	assert.Empty(t, q.Drain())

	_, ok := q.Last()
	assert.False(t, ok)
}
