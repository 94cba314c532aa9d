package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/resgraph/internal/eventbus"
	events "github.com/hanpama/resgraph/internal/events"
	reqid "github.com/hanpama/resgraph/internal/reqid"
)

func TestSubscriberSpans(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	detach := newSubscriber(tp.Tracer("test")).register()
	defer detach()

	ctx, _ := reqid.NewContext(context.Background())
	boom := errors.New("boom")

	eventbus.Publish(ctx, events.HTTPStart{Request: httptest.NewRequest("GET", "/people", nil)})
	eventbus.Publish(ctx, events.EncodeStart{ID: "people", URI: "/people"})
	eventbus.Publish(ctx, events.MembersFetchStart{ID: "people", URI: "/people"})
	eventbus.Publish(ctx, events.MembersFetchFinish{ID: "people", URI: "/people", Err: boom})
	eventbus.Publish(ctx, events.EncodeFinish{ID: "people", URI: "/people", Resources: 1, Err: boom})
	eventbus.Publish(ctx, events.HTTPFinish{Status: 502, ContentType: ""})

	spans := rec.Ended()
	require.Len(t, spans, 3)
	members, encode, req := spans[0], spans[1], spans[2]
	require.Equal(t, "resgraph.members", members.Name())
	require.Equal(t, "resgraph.encode", encode.Name())
	require.Equal(t, "http.request", req.Name())

	require.Equal(t, encode.SpanContext().SpanID(), members.Parent().SpanID())
	require.Equal(t, req.SpanContext().SpanID(), encode.Parent().SpanID())
	require.Equal(t, codes.Error, members.Status().Code)
	require.Equal(t, codes.Error, encode.Status().Code)
	require.Equal(t, codes.Error, req.Status().Code)
}

func TestSubscriberIgnoresUnmatchedFinish(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	detach := newSubscriber(tp.Tracer("test")).register()

	ctx, _ := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.EncodeFinish{ID: "x"})
	eventbus.Publish(ctx, events.MembersFetchFinish{URI: "/x"})
	require.Empty(t, rec.Ended())

	detach()
	eventbus.Publish(ctx, events.EncodeStart{ID: "x"})
	require.Empty(t, rec.Started())
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup("", "resgraph")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSubscriberGRPCSpanNestsInFetch(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer newSubscriber(tp.Tracer("test")).register()()

	ctx, _ := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.MembersFetchStart{ID: "people", URI: "/people"})
	eventbus.Publish(ctx, events.GRPCClientStart{Method: "ListMembers", Target: "localhost:9090", URI: "/people"})
	eventbus.Publish(ctx, events.GRPCClientFinish{Method: "ListMembers", Target: "localhost:9090", URI: "/people"})
	eventbus.Publish(ctx, events.MembersFetchFinish{ID: "people", URI: "/people", Count: 2})

	spans := rec.Ended()
	require.Len(t, spans, 2)
	call, fetch := spans[0], spans[1]
	require.Equal(t, "grpc.client", call.Name())
	require.Equal(t, fetch.SpanContext().SpanID(), call.Parent().SpanID())
	require.Equal(t, codes.Unset, call.Status().Code)
}
