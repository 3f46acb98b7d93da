package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/go-message-backend/internal/config"
)

// keepGlobals restores the global tracer provider and propagator after t.
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func tracingConfig(name string, ratio float64) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: ratio,
	}
}

func TestSetupOTel_Disabled(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	cfg := tracingConfig("message-backend", 1)
	cfg.Enabled = false
	shutdown, err := SetupOTel(context.Background(), cfg, "dev")
	if err != nil || shutdown == nil {
		t.Fatalf("SetupOTel = %v, %v", shutdown, err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("disabled tracing replaced the global provider")
	}
}

func TestSetupOTel_InstallsProvider(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name     string
		ctx      context.Context
		insecure bool
	}{
		{"insecure", context.Background(), true},
		{"tls", context.Background(), false},
		// the exporter connects lazily
		{"canceled context", canceled, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keepGlobals(t)
			cfg := tracingConfig("message-backend", 1)
			cfg.Insecure = tc.insecure

			shutdown, err := SetupOTel(tc.ctx, cfg, "v1.0.0")
			if err != nil {
				t.Fatalf("SetupOTel: %v", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
				defer cancel()
				_ = shutdown(ctx)
			}()

			if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
				t.Fatalf("global provider is %T", otel.GetTracerProvider())
			}

			ctx, span := otel.Tracer("test").Start(context.Background(), "messages.create")
			defer span.End()
			if !span.SpanContext().IsSampled() {
				t.Fatalf("ratio 1 must sample root spans")
			}
			carrier := propagation.MapCarrier{}
			otel.GetTextMapPropagator().Inject(ctx, carrier)
			if carrier.Get("traceparent") == "" {
				t.Fatalf("traceparent not injected: %v", carrier)
			}
		})
	}
}

func TestSetupOTel_FailureLeavesGlobals(t *testing.T) {
	cases := []struct {
		name  string
		patch func() (restore func())
		want  string
	}{
		{
			name: "exporter",
			patch: func() func() {
				orig := newOTLPExporterFn
				newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
					return nil, errors.New("dial refused")
				}
				return func() { newOTLPExporterFn = orig }
			},
			want: "otel exporter: dial refused",
		},
		{
			name: "resource",
			patch: func() func() {
				orig := newServiceResourceFn
				newServiceResourceFn = func(context.Context, string, string) (*resource.Resource, error) {
					return nil, errors.New("bad attributes")
				}
				return func() { newServiceResourceFn = orig }
			},
			want: "otel resource: bad attributes",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keepGlobals(t)
			defer tc.patch()()
			tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()

			_, err := SetupOTel(context.Background(), tracingConfig("message-backend", 1), "v0")
			if err == nil || err.Error() != tc.want {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
			if otel.GetTracerProvider() != tp || otel.GetTextMapPropagator() != prop {
				t.Fatalf("globals changed on failure")
			}
		})
	}
}

func TestSetupOTel_ZeroRatioDropsRootSpans(t *testing.T) {
	keepGlobals(t)
	shutdown, err := SetupOTel(context.Background(), tracingConfig("message-backend", 0), "v0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, span := otel.Tracer("test").Start(context.Background(), "health")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Fatalf("ratio 0 sampled a root span")
	}
}

func TestSampler(t *testing.T) {
	cases := []struct {
		ratio float64
		root  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tc := range cases {
		desc := Sampler(tc.ratio).Description()
		if !strings.HasPrefix(desc, "ParentBased{root:"+tc.root) {
			t.Fatalf("Sampler(%v) = %s, want root %s", tc.ratio, desc, tc.root)
		}
	}
}
