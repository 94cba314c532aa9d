package remote

import (
	"time"

	"google.golang.org/grpc"
)

// Options configures a Client.
//
// Defaults:
// - MaxConnsPerEndpoint: 2
// - RPCTimeout:          3s (used only if the incoming context has no deadline)
// - DialOptions:         insecure credentials
//
// Endpoints must name at least one host:port; calls fail with
// ErrNoEndpoints otherwise.
type Options struct {
	Endpoints []string

	MaxConnsPerEndpoint int
	RPCTimeout          time.Duration

	DialOptions []grpc.DialOption
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		MaxConnsPerEndpoint: 2,
		RPCTimeout:          3 * time.Second,
	}
}

func WithEndpoints(eps ...string) Option    { return func(o *Options) { o.Endpoints = eps } }
func WithMaxConnsPerEndpoint(n int) Option  { return func(o *Options) { o.MaxConnsPerEndpoint = n } }
func WithRPCTimeout(d time.Duration) Option { return func(o *Options) { o.RPCTimeout = d } }
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *Options) { o.DialOptions = opts }
}
