package publisher

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "electiondesk/pkg/platform/audit"
)

func TestRingBuffer_FIFO(t *testing.T) {
	b := NewRingBuffer(4)
	for i := range 3 {
		b.Enqueue(audit.Event{RecordID: strconv.Itoa(i)})
	}

	batch := b.DequeueBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, "0", batch[0].RecordID)
	assert.Equal(t, "1", batch[1].RecordID)
	assert.Equal(t, 1, b.Len())
}

func TestRingBuffer_FullDropsOldest(t *testing.T) {
	b := NewRingBuffer(2)
	assert.False(t, b.Enqueue(audit.Event{RecordID: "a"}))
	assert.False(t, b.Enqueue(audit.Event{RecordID: "b"}))
	assert.True(t, b.Enqueue(audit.Event{RecordID: "c"}))

	batch := b.DequeueBatch(10)
	require.Len(t, batch, 2)
	assert.Equal(t, "b", batch[0].RecordID)
	assert.Equal(t, "c", batch[1].RecordID)
	assert.Equal(t, int64(1), b.Dropped())
}

func TestRingBuffer_EmptyDequeue(t *testing.T) {
	b := NewRingBuffer(2)
	assert.Nil(t, b.DequeueBatch(5))
}
