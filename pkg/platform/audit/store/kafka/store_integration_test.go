//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	platformkafka "electiondesk/internal/platform/kafka"
	audit "electiondesk/pkg/platform/audit"
	auditkafka "electiondesk/pkg/platform/audit/store/kafka"
	"electiondesk/pkg/testutil/containers"
)

func TestStore_ProducesToRedpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rp := containers.GetManager().GetRedpanda(t)
	const topic = "vote-audit-it"

	producer := rp.NewClient(t)
	require.NoError(t, platformkafka.EnsureTopic(ctx, producer, topic, 1))
	require.NoError(t, platformkafka.EnsureTopic(ctx, producer, topic, 1), "second call is a no-op")

	store := auditkafka.New(producer, topic)
	require.NoError(t, store.AppendBatch(ctx, []audit.Event{
		{Action: audit.ActionVoteSubmitted, RecordID: "r-1", ActorID: "off-1"},
		{Action: audit.ActionVoteVerified, RecordID: "r-1", ActorID: "ver-1"},
	}))

	consumer := rp.NewClient(t, kgo.ConsumeTopics(topic), kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	var got []audit.Event
	for len(got) < 2 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			var e audit.Event
			require.NoError(t, json.Unmarshal(r.Value, &e))
			got = append(got, e)
		})
	}
	require.Equal(t, audit.ActionVoteSubmitted, got[0].Action)
	require.Equal(t, audit.ActionVoteVerified, got[1].Action)
}
