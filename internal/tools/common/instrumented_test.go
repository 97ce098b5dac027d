package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/toolstest"
)

type fixture struct {
	sc     *server.ServerContext
	reader *sdkmetric.ManualReader
	audit  *bytes.Buffer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), true)
	require.NoError(t, err)

	var audit bytes.Buffer
	al := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&audit, nil)))
	sc := toolstest.NewServerContext(t, nil, true, server.WithMetrics(metrics), server.WithAuditLogger(al))
	return fixture{sc: sc, reader: reader, audit: &audit}
}

func (f fixture) invocations(t *testing.T) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value("status")
				out[status.AsString()] += dp.Value
			}
		}
	}
	return out
}

func (f fixture) auditRecords(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(f.audit)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		out = append(out, rec)
	}
	return out
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "test_tool"
	req.Params.Arguments = args
	return req
}

func TestInstrumented_Success(t *testing.T) {
	f := newFixture(t)
	called := false
	wrapped := Instrumented("test_tool", instrumentation.ServiceGmail, "get message", f.sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			called = true
			return mcp.NewToolResultText("ok"), nil
		})

	res, err := wrapped(context.Background(), request(map[string]any{"account": "work"}))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", ResultText(res))
	assert.Equal(t, map[string]int64{instrumentation.StatusSuccess: 1}, f.invocations(t))

	recs := f.auditRecords(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "tool_executed", recs[0]["msg"])
	assert.Equal(t, "gmail", recs[0]["service"])
}

func TestInstrumented_ErrorResult(t *testing.T) {
	f := newFixture(t)
	wrapped := Instrumented("test_tool", instrumentation.ServiceHolded, "get invoice", f.sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("get invoice failed: not found"), nil
		})

	res, err := wrapped(context.Background(), request(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, map[string]int64{instrumentation.StatusError: 1}, f.invocations(t))

	recs := f.auditRecords(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "tool_failed", recs[0]["msg"])
	assert.Equal(t, "get invoice failed: not found", recs[0]["error"])
}

func TestInstrumented_HandlerError(t *testing.T) {
	f := newFixture(t)
	expected := errors.New("boom")
	wrapped := Instrumented("test_tool", instrumentation.ServiceNotion, "get page", f.sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, expected
		})

	_, err := wrapped(context.Background(), request(nil))
	assert.ErrorIs(t, err, expected)
	assert.Equal(t, map[string]int64{instrumentation.StatusError: 1}, f.invocations(t))
}

func TestInstrumented_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	wrapped := Instrumented("test_tool", instrumentation.ServiceWhatsApp, "send text message", f.sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			panic("nil map")
		})

	var res *mcp.CallToolResult
	var err error
	require.NotPanics(t, func() {
		res, err = wrapped(context.Background(), request(nil))
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)
	assert.Contains(t, ResultText(res), "internal error")
	assert.Equal(t, map[string]int64{instrumentation.StatusError: 1}, f.invocations(t))
}

func TestInstrumented_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	f := newFixture(t)
	wrapped := Instrumented("list_calendars", instrumentation.ServiceCalendar, "list calendars", f.sc,
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("{}"), nil
		})
	_, err := wrapped(context.Background(), request(nil))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "calendar.list_calendars", spans[0].Name)
	assert.Equal(t, "tool.list_calendars", spans[1].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}
