package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/resgraph/internal/eventbus"
	events "github.com/hanpama/resgraph/internal/events"
	reqid "github.com/hanpama/resgraph/internal/reqid"
	"github.com/hanpama/resgraph/internal/wire/protowire"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

const tracerName = "resgraph"

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	detach := newSubscriber(tp.Tracer(tracerName)).register()

	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

// fetchKey identifies an in-flight member fetch or remote call. A request
// fetches members of one collection at a time, so the URI is enough within
// a request.
type fetchKey struct {
	rid reqid.ID
	uri string
}

type subscriber struct {
	tracer      trace.Tracer
	httpSpans   sync.Map // rid -> trace.Span
	encodeSpans sync.Map // rid -> trace.Span
	fetchSpans  sync.Map // fetchKey -> trace.Span
	grpcSpans   sync.Map // fetchKey -> trace.Span
}

func newSubscriber(tracer trace.Tracer) *subscriber {
	return &subscriber{tracer: tracer}
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context, rid reqid.ID) context.Context {
	if v, ok := s.encodeSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// register subscribes the span handlers and returns a func removing them.
func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("request.id", rid.String()),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				semconv.HTTPStatusCodeKey.Int(e.Status),
				attribute.String("http.response.content_type", e.ContentType),
				attribute.Int("http.response.body.size", e.Bytes),
			)
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.EncodeStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx, rid), "resgraph.encode")
			span.SetAttributes(
				attribute.String("resource.id", e.ID),
				attribute.String("resource.uri", e.URI),
			)
			s.encodeSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.EncodeFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.encodeSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("resgraph.resources", e.Resources))
			end(span, e.Err)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.MembersFetchStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx, rid), "resgraph.members")
			span.SetAttributes(
				attribute.String("resource.id", e.ID),
				attribute.String("resource.uri", e.URI),
			)
			s.fetchSpans.Store(fetchKey{rid: rid, uri: e.URI}, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.MembersFetchFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.fetchSpans.LoadAndDelete(fetchKey{rid: rid, uri: e.URI})
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("resgraph.members.count", e.Count))
			end(span, e.Err)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientStart) {
			rid, _ := reqid.FromContext(ctx)
			key := fetchKey{rid: rid, uri: e.URI}
			parent := s.parent(ctx, rid)
			if v, ok := s.fetchSpans.Load(key); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "grpc.client")
			span.SetAttributes(
				semconv.RPCServiceKey.String(protowire.StoreService),
				semconv.RPCMethodKey.String(e.Method),
				attribute.String("net.peer.name", e.Target),
				attribute.String("resource.uri", e.URI),
			)
			s.grpcSpans.Store(key, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.grpcSpans.LoadAndDelete(fetchKey{rid: rid, uri: e.URI})
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
			end(span, e.Err)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
