package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/tracing"
)

// TestDisabledIsNoop 未启用时 span 仍可正常创建与结束.
func TestDisabledIsNoop(t *testing.T) {
	if err := tracing.InitTracer(configs.TracingConfig{}); err != nil {
		t.Fatal(err)
	}

	ctx, span := tracing.StartSpan(context.Background(), "sweep")
	if ctx == nil || span == nil {
		t.Fatal("nil span")
	}

	tracing.EndSpan(span, errors.New("boom"))

	if err := tracing.ShutdownTracer(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestUnknownExporter(t *testing.T) {
	cfg := configs.Defaults().Tracing
	cfg.Enabled = true
	cfg.ExporterType = "jaeger"

	if err := tracing.InitTracer(cfg); err == nil {
		t.Error("expected error for unknown exporter")
	}
}
