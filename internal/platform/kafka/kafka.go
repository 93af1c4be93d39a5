// Package kafka builds the franz-go client used to ship audit events.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"electiondesk/internal/platform/config"
)

// NewClient returns nil, nil when no brokers are configured.
func NewClient(cfg config.KafkaConfig) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
		kgo.RecordDeliveryTimeout(deliveryTimeout(cfg.DeliveryTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// deliveryTimeout keeps a produce from retrying forever against unreachable
// brokers, which would otherwise hang the final audit drain.
func deliveryTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32) error {
	if partitions <= 0 {
		partitions = 1
	}
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, -1, nil, topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}
