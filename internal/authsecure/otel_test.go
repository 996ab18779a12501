package authsecure

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "authsecure/internal/errors"
	"authsecure/internal/hwid"
	"authsecure/internal/shared/testutil"
	"authsecure/internal/transport"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, outcomeSuccess},
		{&transport.TransportError{Kind: transport.KindStatus, Status: 502}, outcomeTransport},
		{apperrors.NewInvalidRequest("login", errors.New("empty")), outcomeInvalid},
		{apperrors.NewInitializationFailed("App paused"), outcomeInitFailed},
		{apperrors.NewRejected("login", "bad password"), outcomeRejected},
		{errors.New("other"), outcomeUnclassified},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err))
	}
}

func TestOperationTelemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	logger, _ := testutil.NewTestLogger(t)
	tr := testutil.NewFakeTransport(testutil.InitSuccessBody, testutil.InvalidLoginBody, testutil.BobLoginBody)
	c, err := New(testutil.SampleClientConfig(), tr, hwid.Static("h"), Options{
		Logger: logger,
		Tracer: tp.Tracer("test"),
		Meter:  mp.Meter("test"),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Init(ctx))
	_, err = c.Login(ctx, "bob", "wrong")
	require.Error(t, err)
	_, err = c.Login(ctx, "bob", "pw1")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "authsecure.init", spans[0].Name())
	assert.Equal(t, "authsecure.login", spans[1].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), totals["authsecure_requests_total"])
	assert.Equal(t, int64(1), totals["authsecure_request_failures_total"])
}
