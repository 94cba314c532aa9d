package remote

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/hanpama/resgraph/internal/encoder"
	"github.com/hanpama/resgraph/internal/resource"
	"github.com/hanpama/resgraph/internal/state"
	"github.com/hanpama/resgraph/internal/store"
	"github.com/hanpama/resgraph/internal/wire/protowire"
)

// Service serves the tree below root as a Store service. Requests address
// resources the way resource.PathAddresser does, root id first.
type Service struct {
	root resource.Resource
}

// NewService returns a Service for root.
func NewService(root resource.Resource) *Service { return &Service{root: root} }

// Register adds the Store service to g.
func (s *Service) Register(g *grpc.Server) { g.RegisterService(&serviceDesc, s) }

type storeServer interface {
	get(ctx context.Context, uri string) (any, error)
	listMembers(ctx context.Context, uri string) (any, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: protowire.StoreService,
	HandlerType: (*storeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Get",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				return unary(ctx, srv, dec, interceptor, "Get", srv.(storeServer).get)
			},
		},
		{
			MethodName: "ListMembers",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				return unary(ctx, srv, dec, interceptor, "ListMembers", srv.(storeServer).listMembers)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "resgraph/wire/v1/document.proto",
}

func unary(ctx context.Context, srv any, dec func(any) error, interceptor grpc.UnaryServerInterceptor, method string, fn func(context.Context, string) (any, error)) (any, error) {
	req := dynamicpb.NewMessage(requestDesc)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return fn(ctx, req.Get(requestURI).String())
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + protowire.StoreService + "/" + method}
	return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
		return fn(ctx, r.(*dynamicpb.Message).Get(requestURI).String())
	})
}

func (s *Service) get(ctx context.Context, uri string) (any, error) {
	res, err := store.Resolve(ctx, s.root, uri)
	if err != nil {
		return nil, statusError(err)
	}
	return member(res)
}

func (s *Service) listMembers(ctx context.Context, uri string) (any, error) {
	res, err := store.Resolve(ctx, s.root, uri)
	if err != nil {
		return nil, statusError(err)
	}
	coll, ok := res.(resource.Collection)
	if !ok {
		return nil, status.Errorf(codes.FailedPrecondition, "%q is not a collection", uri)
	}
	members, err := coll.Members(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	resp := dynamicpb.NewMessage(listDesc)
	list := resp.Mutable(listMembers).List()
	for _, m := range members {
		if resource.IsNil(m) {
			return nil, status.Errorf(codes.Internal, "nil member in %q", uri)
		}
		msg, err := member(m)
		if err != nil {
			return nil, err
		}
		list.Append(protoreflect.ValueOfMessage(msg))
	}
	return resp, nil
}

func statusError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// member describes res without its members. Property values are classified
// like the encoder does; resources travel as references.
func member(res resource.Resource) (*dynamicpb.Message, error) {
	doc := &state.Document{ID: res.ID()}
	var err error
	if props := res.Properties(); props != nil {
		props.Range(func(name string, v any) bool {
			var out any
			out, err = wireValue(res, name, v)
			if err != nil {
				return false
			}
			doc.Properties = append(doc.Properties, state.Property{Name: name, Value: out})
			return true
		})
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	dm, err := protowire.DocumentMessage(doc)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	m := dynamicpb.NewMessage(memberDesc)
	m.Set(memberDocument, protoreflect.ValueOfMessage(dm))
	_, isColl := res.(resource.Collection)
	m.Set(memberCollected, protoreflect.ValueOfBool(isColl))
	return m, nil
}

func wireValue(res resource.Resource, name string, v any) (any, error) {
	var addr resource.PathAddresser
	c := encoder.Classify(v)
	switch c.Kind {
	case encoder.KindScalar:
		return c.Scalar, nil
	case encoder.KindReference:
		return resource.RefTo(addr, c.Resources[0])
	case encoder.KindReferenceList:
		refs := make([]resource.Ref, len(c.Resources))
		for i, r := range c.Resources {
			ref, err := resource.RefTo(addr, r)
			if err != nil {
				return nil, err
			}
			refs[i] = ref
		}
		return refs, nil
	default:
		return nil, &encoder.UnsupportedValueError{Resource: res.ID(), Property: name, Value: v}
	}
}
