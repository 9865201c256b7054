// Package metricsink records criteria evaluations off the request path.
// Records are buffered on a channel and drained by a background worker
// that persists them and publishes a Kafka event; a full buffer drops the
// record rather than blocking the evaluation that produced it.
package metricsink

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
)

const flushTimeout = 10 * time.Second

// Publisher is the Kafka surface the sink needs.
type Publisher interface {
	PublishEvaluation(ctx context.Context, msg *kafka.EvaluationEventMessage) error
}

// Config holds sink configuration
type Config struct {
	BufferSize int
	Topic      string
}

// Sink drains evaluation records to the metrics table and Kafka.
type Sink struct {
	records   chan models.MetricRecord
	repo      *repositories.MetricRepository
	publisher Publisher
	logger    ectologger.Logger
	topic     string

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

// NewSink creates a sink and starts its worker. The publisher may be nil
// when Kafka is not configured.
func NewSink(cfg Config, repo *repositories.MetricRepository, publisher Publisher, logger ectologger.Logger) *Sink {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1024
	}

	sink := &Sink{
		records:   make(chan models.MetricRecord, size),
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		topic:     cfg.Topic,
		done:      make(chan struct{}),
	}

	sink.wg.Add(1)
	go sink.worker()
	return sink
}

// Record enqueues an evaluation record. It never blocks: when the buffer
// is full the record is dropped and counted.
func (s *Sink) Record(record models.MetricRecord) {
	if record.Date.IsZero() {
		record.Date = time.Now().UTC()
	}

	select {
	case s.records <- record:
	default:
		metrics.MetricRecordsDropped.Inc()
		s.logger.WithFields(map[string]any{
			"config_key": record.ConfigKey,
		}).Warn("metric sink buffer full, dropping evaluation record")
	}
}

// Close stops the worker after draining buffered records.
func (s *Sink) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
		close(s.records)
	})
	s.wg.Wait()
}

func (s *Sink) worker() {
	defer s.wg.Done()

	for record := range s.records {
		s.flush(record)
	}
}

// flush persists one record and emits its Kafka event. Failures are
// logged and swallowed; the evaluation that produced the record has long
// since been answered.
func (s *Sink) flush(record models.MetricRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := s.repo.Insert(ctx, &record); err != nil {
		metrics.MetricRecordsPersisted.WithLabelValues("error").Inc()
		s.logger.WithError(err).WithFields(map[string]any{
			"config_key": record.ConfigKey,
		}).Warn("failed to persist evaluation record")
	} else {
		metrics.MetricRecordsPersisted.WithLabelValues("success").Inc()
	}

	if s.publisher == nil {
		return
	}

	event := &kafka.EvaluationEventMessage{
		DomainID:    record.DomainID.String(),
		ConfigKey:   record.ConfigKey,
		Component:   record.Component,
		Environment: record.Environment,
		Result:      record.Result,
		Reason:      record.Reason,
		Timestamp:   record.Date,
	}
	if err := s.publisher.PublishEvaluation(ctx, event); err != nil {
		metrics.RecordKafkaPublish(s.topic, "error")
		s.logger.WithError(err).Warn("failed to publish evaluation event")
		return
	}
	metrics.RecordKafkaPublish(s.topic, "success")
}
