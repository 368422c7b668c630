// Package events carries the audit pipeline for completed auth operations.
// Events are best-effort on both sinks: a broker or warehouse outage is
// logged and never fails the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/favourolaoye/boride-v3-api/internal/bucketing"
	"github.com/favourolaoye/boride-v3-api/internal/client"
	"github.com/favourolaoye/boride-v3-api/internal/models"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

// Sink receives auth events.
type Sink interface {
	Record(ctx context.Context, event *models.AuthEvent) error
}

// KafkaSink publishes auth events to the configured topic, keyed by
// principal id so per-principal ordering is preserved.
type KafkaSink struct {
	producer *client.KafkaProducer
}

func NewKafkaSink(producer *client.KafkaProducer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Record(ctx context.Context, event *models.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal auth event: %w", err)
	}
	return s.producer.Publish(ctx, []byte(event.PrincipalID), payload)
}

// ClickHouseSink writes auth events into the audit table.
type ClickHouseSink struct {
	client *client.ClickHouseClient
}

func NewClickHouseSink(chClient *client.ClickHouseClient) *ClickHouseSink {
	return &ClickHouseSink{client: chClient}
}

func (s *ClickHouseSink) Record(ctx context.Context, event *models.AuthEvent) error {
	return s.client.Exec(ctx, `
		INSERT INTO auth_events
			(event_bucket, principal_type, principal_id, event_type, event_time, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.EventBucket, event.PrincipalType, event.PrincipalID,
		event.EventType, event.EventTime, event.Details)
}

// Dispatcher fans an event out to every configured sink. Sinks may be nil
// when their backing service is not available (mirrors startup behavior:
// kafka and clickhouse are optional outside production).
type Dispatcher struct {
	sinks   []Sink
	buckets *bucketing.BucketingManager
}

func NewDispatcher(buckets *bucketing.BucketingManager, sinks ...Sink) *Dispatcher {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Dispatcher{sinks: active, buckets: buckets}
}

// Emit records an event on all sinks concurrently. Failures are logged and
// swallowed; the caller has already committed its state change.
func (d *Dispatcher) Emit(ctx context.Context, principalType, principalID, eventType, details string) {
	if len(d.sinks) == 0 {
		return
	}

	event := &models.AuthEvent{
		EventBucket:   d.buckets.EventBucket(principalID),
		PrincipalType: principalType,
		PrincipalID:   principalID,
		EventType:     eventType,
		EventTime:     time.Now().UTC(),
		Details:       details,
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range d.sinks {
		sink := sink
		g.Go(func() error {
			if err := sink.Record(ctx, event); err != nil {
				util.Warn("Failed to record auth event",
					zap.String("event_type", event.EventType),
					zap.String("principal_id", event.PrincipalID),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
