// Package eventlog writes bus events to a structured logger.
package eventlog

import (
	"context"
	"log/slog"

	eventbus "github.com/hanpama/resgraph/internal/eventbus"
	events "github.com/hanpama/resgraph/internal/events"
	reqid "github.com/hanpama/resgraph/internal/reqid"
)

// Attach subscribes logger to request, encode, member fetch and remote call
// events on the global bus. Finish events log at Info, or at Warn when they
// carry an error or a 5xx status. Start events log at Debug. The returned
// func detaches.
func Attach(logger *slog.Logger) (detach func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			logger.DebugContext(ctx, "http request",
				requestID(ctx),
				slog.String("method", e.Request.Method),
				slog.String("path", e.Request.URL.Path),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			level := slog.LevelInfo
			if e.Status >= 500 {
				level = slog.LevelWarn
			}
			attrs := []slog.Attr{
				requestID(ctx),
				slog.Int("status", e.Status),
				slog.Int("bytes", e.Bytes),
				slog.Duration("duration", e.Duration),
			}
			if e.Request != nil {
				attrs = append(attrs, slog.String("method", e.Request.Method), slog.String("path", e.Request.URL.Path))
			}
			if e.ContentType != "" {
				attrs = append(attrs, slog.String("content_type", e.ContentType))
			}
			logger.LogAttrs(ctx, level, "http response", attrs...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.EncodeStart) {
			logger.DebugContext(ctx, "encode start", requestID(ctx), slog.String("uri", e.URI))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.EncodeFinish) {
			logger.LogAttrs(ctx, level(e.Err), "encode finish",
				requestID(ctx),
				slog.String("uri", e.URI),
				slog.Int("resources", e.Resources),
				slog.Duration("duration", e.Duration),
				errAttr(e.Err),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.MembersFetchStart) {
			logger.DebugContext(ctx, "members fetch", requestID(ctx), slog.String("uri", e.URI))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.MembersFetchFinish) {
			logger.LogAttrs(ctx, level(e.Err), "members fetched",
				requestID(ctx),
				slog.String("uri", e.URI),
				slog.Int("count", e.Count),
				slog.Duration("duration", e.Duration),
				errAttr(e.Err),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			logger.LogAttrs(ctx, level(e.Err), "remote call",
				requestID(ctx),
				slog.String("method", e.Method),
				slog.String("target", e.Target),
				slog.String("uri", e.URI),
				slog.String("code", e.Code.String()),
				slog.Duration("duration", e.Duration),
				errAttr(e.Err),
			)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func level(err error) slog.Level {
	if err != nil {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// errAttr is empty for a nil error; slog drops empty attributes.
func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

func requestID(ctx context.Context) slog.Attr {
	if id, ok := reqid.FromContext(ctx); ok {
		return slog.String("request_id", id.String())
	}
	return slog.Attr{}
}
