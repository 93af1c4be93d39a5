package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "electiondesk/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestStore_AppendBatchKeysByRecord(t *testing.T) {
	producer := &fakeProducer{}
	store := New(producer, "vote-audit")

	err := store.AppendBatch(context.Background(), []audit.Event{
		{Action: audit.ActionVoteSubmitted, RecordID: "r-1", ActorID: "off-1"},
		{Action: audit.ActionVoteVerified, RecordID: "r-1", ActorID: "ver-1"},
	})
	require.NoError(t, err)
	require.Len(t, producer.records, 2)

	rec := producer.records[1]
	assert.Equal(t, "vote-audit", rec.Topic)
	assert.Equal(t, "r-1", string(rec.Key))
	assert.Equal(t, "vote_verified", string(rec.Headers[0].Value))

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, "ver-1", decoded.ActorID)
}

func TestStore_AppendPropagatesProduceError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	store := New(producer, "vote-audit")

	err := store.Append(context.Background(), audit.Event{RecordID: "r-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestStore_EmptyBatchIsNoop(t *testing.T) {
	producer := &fakeProducer{}
	require.NoError(t, New(producer, "t").AppendBatch(context.Background(), nil))
	assert.Empty(t, producer.records)
}
