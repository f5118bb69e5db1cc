package tracing

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	jCfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"

	"momentum_bot/pkg/logger"
)

// Config - адрес jaeger-агента. Пустой host => трейсинг выключен, глобальный tracer остаётся noop.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// доля сэмплируемых батчей, 0 => 1 (всё)
	SampleRate float64 `yaml:"sample_rate"`
	LogSpans   bool    `yaml:"log_spans"`
}

func (c Config) Enabled() bool { return c.Host != "" && c.Port > 0 }

func (c Config) sampler() *jCfg.SamplerConfig {
	if c.SampleRate <= 0 || c.SampleRate >= 1 {
		return &jCfg.SamplerConfig{Type: "const", Param: 1}
	}
	return &jCfg.SamplerConfig{Type: "probabilistic", Param: c.SampleRate}
}

// Init ставит глобальный jaeger tracer и возвращает closer для OnStop.
func Init(service string, conf Config) (func(), error) {
	if !conf.Enabled() {
		return func() {}, nil
	}
	cfg := &jCfg.Configuration{
		ServiceName: service,
		Sampler:     conf.sampler(),
		Reporter: &jCfg.ReporterConfig{
			LogSpans:           conf.LogSpans,
			LocalAgentHostPort: fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		},
	}

	tracer, closer, err := cfg.NewTracer(jCfg.Metrics(metrics.NullFactory))
	if err != nil {
		return nil, fmt.Errorf("tracing.Init: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	logger.Info("tracing: jaeger agent %s:%d", conf.Host, conf.Port)
	return func() {
		if err := closer.Close(); err != nil {
			logger.Error("Error closing Jaeger tracer: %v", err)
		}
	}, nil
}

// Span - тонкая обёртка, чтобы не тащить ext/log в каждый пакет.
type Span struct {
	span opentracing.Span
}

func Start(ctx context.Context, op string) (*Span, context.Context) {
	s, ctx := opentracing.StartSpanFromContext(ctx, op)
	return &Span{span: s}, ctx
}

func (s *Span) Tag(key string, v any) { s.span.SetTag(key, v) }

// Fail помечает спан как ошибочный, nil игнорируется.
func (s *Span) Fail(err error) {
	if err == nil {
		return
	}
	ext.Error.Set(s.span, true)
	s.span.SetTag("error.message", err.Error())
}

func (s *Span) Finish() { s.span.Finish() }
