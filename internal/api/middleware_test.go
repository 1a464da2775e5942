package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// installSpanRecorder swaps in a recording tracer provider for the test and
// restores the previous one afterwards.
func installSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestInstrumentEmitsServerSpan(t *testing.T) {
	recorder := installSpanRecorder(t)
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "geo/healthz", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())

	attrs := make(map[attribute.Key]attribute.Value, len(span.Attributes()))
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "GET", attrs["http.method"].AsString())
	assert.Equal(t, "healthz", attrs["http.route"].AsString())
	assert.Equal(t, int64(http.StatusOK), attrs["http.status_code"].AsInt64())
	assert.NotEmpty(t, attrs["request_id"].AsString())
}

func TestInstrumentSpanRecordsErrorStatus(t *testing.T) {
	recorder := installSpanRecorder(t)
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/geo/position/calculate", map[string]string{"target_id": "missing"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "geo/position_calculate", span.Name())
	for _, kv := range span.Attributes() {
		if kv.Key == "http.status_code" {
			assert.Equal(t, int64(http.StatusNotFound), kv.Value.AsInt64())
			return
		}
	}
	t.Fatal("span missing http.status_code attribute")
}

func TestInstrumentSpanCarriesIncomingRequestID(t *testing.T) {
	recorder := installSpanRecorder(t)
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-trace-42")
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "request_id" {
			assert.Equal(t, "req-trace-42", kv.Value.AsString())
			return
		}
	}
	t.Fatal("span missing request_id attribute")
}
