// Package kafka publishes audit events to a Kafka topic as JSON, keyed by record ID
// so every event for a record lands on the same partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "electiondesk/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Store struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	return s.AppendBatch(ctx, []audit.Event{event})
}

func (s *Store) AppendBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		rec, err := s.record(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := s.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}
	return nil
}

func (s *Store) record(e audit.Event) (*kgo.Record, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode audit event: %w", err)
	}
	return &kgo.Record{
		Topic: s.topic,
		Key:   []byte(e.RecordID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(e.Action)},
		},
	}, nil
}
