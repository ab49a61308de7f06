package tracing

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/csmlog/pkg/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
	}{
		{name: "nil config", config: nil, wantErr: true},
		{name: "disabled", config: &config.TracingConfig{Enabled: false}},
		{
			name:   "enabled always",
			config: &config.TracingConfig{Enabled: true, Sampler: "always", ServiceName: "test"},
		},
		{
			name:   "enabled ratio",
			config: &config.TracingConfig{Enabled: true, Sampler: "ratio", SampleRatio: 0.5, ServiceName: "test"},
		},
		{
			name:    "invalid sampler",
			config:  &config.TracingConfig{Enabled: true, Sampler: "sometimes"},
			wantErr: true,
		},
		{
			name:    "invalid ratio",
			config:  &config.TracingConfig{Enabled: true, Sampler: "ratio", SampleRatio: 1.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config, WithSpanProcessor(tracetest.NewSpanRecorder()))
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer tracer.Shutdown(context.Background())
			if tracer.Enabled() != tt.config.Enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.config.Enabled)
			}
		})
	}
}

func TestDisabledTracerProducesNoTraceID(t *testing.T) {
	tracer, err := New(&config.TracingConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, span := tracer.Start(context.Background(), "noop")
	defer span.End()

	if id := TraceID(ctx); id != "" {
		t.Errorf("TraceID() = %q, want empty", id)
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSpanRecording(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer, err := New(
		&config.TracingConfig{Enabled: true, Sampler: "always", ServiceName: "test"},
		WithSpanProcessor(recorder),
		WithVersion("1.2.3"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.Start(context.Background(), "csmlog.extract")
	SetSourceAttribute(span, "firefox.log")
	SetScanAttributes(span, ScanCounts{Lines: 10, Blocks: 2, Decoded: 1, Failed: 1})
	SetError(span, errors.New("boom"))
	SetStatus(span, errors.New("boom"))
	if TraceID(ctx) == "" {
		t.Error("TraceID() is empty for a sampled span")
	}
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	got := ended[0]
	if got.Name() != "csmlog.extract" {
		t.Errorf("Name() = %q, want csmlog.extract", got.Name())
	}
	if got.Status().Code != codes.Error {
		t.Errorf("Status().Code = %v, want Error", got.Status().Code)
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if v := attrs[AttrSource]; v.AsString() != "firefox.log" {
		t.Errorf("%s = %v, want firefox.log", AttrSource, v.AsString())
	}
	if v := attrs[AttrFailed]; v.AsInt64() != 1 {
		t.Errorf("%s = %v, want 1", AttrFailed, v.AsInt64())
	}
	if len(got.Events()) != 1 {
		t.Errorf("events = %d, want 1 recorded error", len(got.Events()))
	}
}

func TestPropagationRoundTrip(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer, err := New(
		&config.TracingConfig{Enabled: true, Sampler: "always"},
		WithSpanProcessor(recorder),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.Start(context.Background(), "publish")
	defer span.End()

	carrier := map[string]string{}
	InjectToMap(ctx, carrier)
	if carrier["traceparent"] == "" {
		t.Fatalf("traceparent not injected: %v", carrier)
	}

	extracted := ExtractFromMap(context.Background(), carrier)
	if got, want := TraceID(extracted), TraceID(ctx); got != want {
		t.Errorf("extracted TraceID = %q, want %q", got, want)
	}
}

func TestCreateSampler(t *testing.T) {
	for _, strategy := range []string{SamplerAlways, SamplerNever, SamplerRatio} {
		if _, err := createSampler(strategy, 0.25); err != nil {
			t.Errorf("createSampler(%q) error = %v", strategy, err)
		}
	}
	if _, err := createSampler("bogus", 0); err == nil {
		t.Error("createSampler(bogus) expected error")
	}
}
