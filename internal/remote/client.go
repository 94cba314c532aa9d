// Package remote serves resource trees over gRPC and browses them from the
// other side. Service answers the Store service of the wire schema for a
// local tree; Client.Open returns resources whose members are listed with
// one call per collection, so a remote tree encodes like a local one.
package remote

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	eventbus "github.com/hanpama/resgraph/internal/eventbus"
	events "github.com/hanpama/resgraph/internal/events"
	"github.com/hanpama/resgraph/internal/store"
)

var (
	// ErrNoEndpoints indicates the client has no endpoint to call.
	ErrNoEndpoints = errors.New("remote: no endpoints configured")

	errClosed = errors.New("remote: client closed")
)

// Client calls a Store service with pooled connections and a default
// deadline. Resources it returns enumerate their members through it.
type Client struct {
	opts *Options

	mu     sync.RWMutex
	pools  map[string]*connPool // key: endpoint
	closed atomic.Bool
}

func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	return &Client{
		opts:  o,
		pools: make(map[string]*connPool),
	}
}

// call invokes method with a ResourceRequest for uri.
func (c *Client) call(ctx context.Context, method protoreflect.MethodDescriptor, uri string) (protoreflect.Message, error) {
	if c.closed.Load() {
		return nil, errClosed
	}
	if len(c.opts.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if _, ok := ctx.Deadline(); !ok && c.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RPCTimeout)
		defer cancel()
	}

	endpoint := c.opts.Endpoints[rand.IntN(len(c.opts.Endpoints))]
	cc, err := c.getConn(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer c.returnConn(endpoint, cc)

	req := dynamicpb.NewMessage(requestDesc)
	req.Set(requestURI, protoreflect.ValueOfString(uri))
	resp := dynamicpb.NewMessage(method.Output())
	fullMethod := fmt.Sprintf("/%s/%s", method.Parent().FullName(), method.Name())

	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Method: string(method.Name()), Target: endpoint, URI: uri})
	err = cc.Invoke(ctx, fullMethod, req, resp)
	eventbus.Publish(ctx, events.GRPCClientFinish{
		Method:   string(method.Name()),
		Target:   endpoint,
		URI:      uri,
		Code:     status.Code(err),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, callError(ctx, method, uri, err)
	}
	return resp, nil
}

// callError maps a failed call onto errors the encoder and server classify:
// an expired context surfaces as the context error, NotFound as
// store.ErrNotFound.
func callError(ctx context.Context, method protoreflect.MethodDescriptor, uri string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("remote: %s %q: %w", method.Name(), uri, cerr)
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", store.ErrNotFound, uri)
	case codes.DeadlineExceeded:
		return fmt.Errorf("remote: %s %q: %w", method.Name(), uri, context.DeadlineExceeded)
	}
	return fmt.Errorf("remote: %s %q: %w", method.Name(), uri, err)
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pools {
		p.close()
	}
	c.pools = map[string]*connPool{}
	return nil
}

type connPool struct {
	endpoint string
	opts     *Options
	conns    chan *grpc.ClientConn
	closed   atomic.Bool
}

func newConnPool(endpoint string, opts *Options) *connPool {
	n := opts.MaxConnsPerEndpoint
	if n <= 0 {
		n = 2
	}
	return &connPool{
		endpoint: endpoint,
		opts:     opts,
		conns:    make(chan *grpc.ClientConn, n),
	}
}

func (p *connPool) get() (*grpc.ClientConn, error) {
	if p.closed.Load() {
		return nil, errClosed
	}
	select {
	case cc := <-p.conns:
		return cc, nil
	default:
		return grpc.NewClient(p.endpoint, p.opts.DialOptions...)
	}
}

func (p *connPool) put(cc *grpc.ClientConn) {
	if cc == nil || p.closed.Load() {
		if cc != nil {
			_ = cc.Close()
		}
		return
	}
	select {
	case p.conns <- cc:
	default:
		_ = cc.Close()
	}
}

func (p *connPool) close() {
	if p.closed.Swap(true) {
		return
	}
	close(p.conns)
	for cc := range p.conns {
		_ = cc.Close()
	}
}

func (c *Client) getConn(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	pool := c.pools[endpoint]
	c.mu.RUnlock()
	if pool == nil {
		c.mu.Lock()
		pool = c.pools[endpoint]
		if pool == nil {
			pool = newConnPool(endpoint, c.opts)
			c.pools[endpoint] = pool
		}
		c.mu.Unlock()
	}
	return pool.get()
}

func (c *Client) returnConn(endpoint string, cc *grpc.ClientConn) {
	c.mu.RLock()
	pool := c.pools[endpoint]
	c.mu.RUnlock()
	if pool != nil {
		pool.put(cc)
		return
	}
	_ = cc.Close()
}
