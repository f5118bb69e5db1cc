package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Host: "localhost"}.Enabled())
	assert.True(t, Config{Host: "localhost", Port: 6831}.Enabled())
}

func TestConfig_Sampler(t *testing.T) {
	assert.Equal(t, "const", Config{}.sampler().Type)
	assert.Equal(t, "const", Config{SampleRate: 1}.sampler().Type)

	s := Config{SampleRate: 0.25}.sampler()
	assert.Equal(t, "probabilistic", s.Type)
	assert.InDelta(t, 0.25, s.Param, 1e-9)
}

func TestInit_DisabledIsNoop(t *testing.T) {
	closer, err := Init("bt", Config{})
	require.NoError(t, err)
	closer()
}

func TestSpan_TagsAndError(t *testing.T) {
	mt := mocktracer.New()
	prev := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(mt)
	defer opentracing.SetGlobalTracer(prev)

	s, ctx := Start(context.Background(), "runner.batch")
	assert.NotNil(t, opentracing.SpanFromContext(ctx))
	s.Tag("orders", 3)
	s.Fail(nil)
	s.Fail(errors.New("boom"))
	s.Finish()

	spans := mt.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "runner.batch", spans[0].OperationName)
	assert.Equal(t, 3, spans[0].Tag("orders"))
	assert.Equal(t, true, spans[0].Tag("error"))
	assert.Equal(t, "boom", spans[0].Tag("error.message"))
}
