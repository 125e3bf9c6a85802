package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"modwallet/internal/platform/config"
)

func TestSetupDisabled(t *testing.T) {
	for name, cfg := range map[string]config.TracingConfig{
		"no endpoint": {ServiceName: "modwallet", SampleRatio: 1},
		"disabled":    {Endpoint: "http://192.0.2.1:4318/v1/traces", Disabled: true, SampleRatio: 1},
	} {
		t.Run(name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), cfg)
			require.NoError(t, err)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}

func TestNewProviderRecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(),
		config.TracingConfig{ServiceName: "modwallet-test", SampleRatio: 1},
		sdktrace.WithSpanProcessor(rec),
	)
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := Start(context.Background(), tp.Tracer("test"), "op", attribute.Int64("document_number", 7))
	End(span, errors.New("boom"))

	_, ok := Start(context.Background(), tp.Tracer("test"), "ok")
	End(ok, nil)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("document_number", 7))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	name, found := spans[0].Resource().Set().Value("service.name")
	require.True(t, found)
	assert.Equal(t, "modwallet-test", name.AsString())
}

func TestNewProviderSampleRatioZeroDropsRootSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(), config.TracingConfig{SampleRatio: 0}, sdktrace.WithSpanProcessor(rec))
	require.NoError(t, err)

	_, span := Start(context.Background(), tp.Tracer("test"), "op")
	End(span, nil)
	assert.Empty(t, rec.Ended())
}
