package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service names. Requests and responses are google.protobuf.Struct messages,
// so the services are described by hand instead of generated code.
const (
	ContentServiceName      = "contentkit.v1.Content"
	ContentTypesServiceName = "contentkit.v1.ContentTypes"
)

// StructMethod is a unary RPC taking and returning a Struct
type StructMethod func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// ContentServer is the server API for the Content service
type ContentServer interface {
	Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Relations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Relate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Unrelate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Render(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ContentTypesServer is the server API for the ContentTypes service
type ContentTypesServer interface {
	Write(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Read(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ContentServiceDesc describes the Content service
var ContentServiceDesc = grpc.ServiceDesc{
	ServiceName: ContentServiceName,
	HandlerType: (*ContentServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ContentServiceName, "Get", func(s interface{}) StructMethod { return s.(ContentServer).Get }),
		unary(ContentServiceName, "Submit", func(s interface{}) StructMethod { return s.(ContentServer).Submit }),
		unary(ContentServiceName, "Relations", func(s interface{}) StructMethod { return s.(ContentServer).Relations }),
		unary(ContentServiceName, "Relate", func(s interface{}) StructMethod { return s.(ContentServer).Relate }),
		unary(ContentServiceName, "Unrelate", func(s interface{}) StructMethod { return s.(ContentServer).Unrelate }),
		unary(ContentServiceName, "Delete", func(s interface{}) StructMethod { return s.(ContentServer).Delete }),
		unary(ContentServiceName, "Render", func(s interface{}) StructMethod { return s.(ContentServer).Render }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "contentkit/v1/content.proto",
}

// ContentTypesServiceDesc describes the ContentTypes service
var ContentTypesServiceDesc = grpc.ServiceDesc{
	ServiceName: ContentTypesServiceName,
	HandlerType: (*ContentTypesServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ContentTypesServiceName, "Write", func(s interface{}) StructMethod { return s.(ContentTypesServer).Write }),
		unary(ContentTypesServiceName, "Read", func(s interface{}) StructMethod { return s.(ContentTypesServer).Read }),
		unary(ContentTypesServiceName, "Validate", func(s interface{}) StructMethod { return s.(ContentTypesServer).Validate }),
		unary(ContentTypesServiceName, "Delete", func(s interface{}) StructMethod { return s.(ContentTypesServer).Delete }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "contentkit/v1/content.proto",
}

// RegisterContentServer registers the Content service
func RegisterContentServer(s grpc.ServiceRegistrar, srv ContentServer) {
	s.RegisterService(&ContentServiceDesc, srv)
}

// RegisterContentTypesServer registers the ContentTypes service
func RegisterContentTypesServer(s grpc.ServiceRegistrar, srv ContentTypesServer) {
	s.RegisterService(&ContentTypesServiceDesc, srv)
}

// unary builds the method descriptor of a Struct-to-Struct RPC
func unary(service, method string, bind func(srv interface{}) StructMethod) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			call := bind(srv)
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls Struct-to-Struct RPCs of a service
type Client struct {
	cc      grpc.ClientConnInterface
	service string
}

// NewContentClient creates a client for the Content service
func NewContentClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, service: ContentServiceName}
}

// NewContentTypesClient creates a client for the ContentTypes service
func NewContentTypesClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, service: ContentTypesServiceName}
}

// Call invokes a method with a request built from a plain map
func (c *Client) Call(ctx context.Context, method string, req map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+c.service+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
