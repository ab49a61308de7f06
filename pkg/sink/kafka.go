package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/telemetry/metrics"
	"mercator-hq/csmlog/pkg/telemetry/tracing"
)

// SinkKafka is the sink name used in metrics and span attributes.
const SinkKafka = "kafka"

// Message header keys set on every published check.
const (
	HeaderSource = "csmlog-source"
	HeaderLine   = "csmlog-line"
)

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOption configures a KafkaSink.
type KafkaOption func(*KafkaSink)

// WithWriter replaces the kafka.Writer built from the configuration.
func WithWriter(w MessageWriter) KafkaOption {
	return func(s *KafkaSink) { s.writer = w }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) KafkaOption {
	return func(s *KafkaSink) {
		if logger != nil {
			s.logger = logger.With("component", "sink.kafka")
		}
	}
}

// WithMetrics counts published messages.
func WithMetrics(c *metrics.Collector) KafkaOption {
	return func(s *KafkaSink) { s.metrics = c }
}

// WithTracer wraps each publish in a span and propagates its context in
// message headers.
func WithTracer(t *tracing.Tracer) KafkaOption {
	return func(s *KafkaSink) { s.tracer = t }
}

// KafkaSink publishes checks as JSON messages keyed by channel URI, so
// checks for one URI land on one partition in order.
type KafkaSink struct {
	writer  MessageWriter
	topic   string
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// NewKafkaSink creates a KafkaSink from cfg.
func NewKafkaSink(cfg *config.KafkaConfig, opts ...KafkaOption) (*KafkaSink, error) {
	if cfg == nil || cfg.Topic == "" {
		return nil, errors.New("kafka sink configuration incomplete: topic is required")
	}

	s := &KafkaSink{
		topic:  cfg.Topic,
		logger: slog.Default().With("component", "sink.kafka"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.writer == nil {
		if len(cfg.Brokers) == 0 {
			return nil, errors.New("kafka sink configuration incomplete: brokers are required")
		}
		s.writer = newWriter(cfg, s.logger)
	}

	s.logger.Info("Kafka sink created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return s, nil
}

func newWriter(cfg *config.KafkaConfig, logger *slog.Logger) *kafka.Writer {
	var requiredAcks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "all":
		requiredAcks = kafka.RequireAll
	default:
		requiredAcks = kafka.RequireOne
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: requiredAcks,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error("kafka writer error", "detail", fmt.Sprintf(msg, args...))
		}),
	}
}

// Publish writes one message per check.
func (s *KafkaSink) Publish(ctx context.Context, source string, checks []*check.ContentSecurityCheck) error {
	if len(checks) == 0 {
		return nil
	}

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "csmlog.sink.publish")
		defer span.End()
		tracing.SetSinkAttributes(span, SinkKafka, s.topic, len(checks))
	}

	err := s.publish(ctx, source, checks)
	if span != nil {
		tracing.SetError(span, err)
	}
	if s.metrics != nil {
		s.metrics.RecordPublish(SinkKafka, len(checks), err)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "publishing checks failed", "source", source, "count", len(checks), "error", err)
		return err
	}

	s.logger.DebugContext(ctx, "checks published", "source", source, "count", len(checks), "topic", s.topic)
	return nil
}

func (s *KafkaSink) publish(ctx context.Context, source string, checks []*check.ContentSecurityCheck) error {
	carrier := map[string]string{}
	tracing.InjectToMap(ctx, carrier)

	msgs := make([]kafka.Message, 0, len(checks))
	for _, c := range checks {
		if c == nil {
			continue
		}
		value, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to serialize check (%s:%d): %w", source, c.Line, err)
		}

		msg := kafka.Message{
			Value: value,
			Headers: []kafka.Header{
				{Key: HeaderSource, Value: []byte(source)},
				{Key: HeaderLine, Value: []byte(strconv.Itoa(c.Line))},
			},
		}
		if c.HasChannelURI() {
			msg.Key = []byte(c.ChannelURI)
		}
		for k, v := range carrier {
			msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		msgs = append(msgs, msg)
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d messages to kafka: %w", len(msgs), err)
	}
	return nil
}

// Close flushes buffered messages and closes the writer.
func (s *KafkaSink) Close() error {
	s.logger.Info("closing Kafka sink")
	return s.writer.Close()
}

var _ Sink = (*KafkaSink)(nil)
