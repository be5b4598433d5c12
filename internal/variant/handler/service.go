package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The variant service speaks google.protobuf.Struct on the wire, so clients
// need no generated stubs beyond the well-known types.
const ServiceName = "omnipos.variant.v1.VariantService"

type VariantServiceServer interface {
	DeriveCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListVariants(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CommitVariant(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetVariantVerified(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv VariantServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VariantServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(VariantServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var VariantServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VariantServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("DeriveCode", VariantServiceServer.DeriveCode),
		unaryMethod("ListVariants", VariantServiceServer.ListVariants),
		unaryMethod("CommitVariant", VariantServiceServer.CommitVariant),
		unaryMethod("SetVariantVerified", VariantServiceServer.SetVariantVerified),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/variant/v1/variant.proto",
}

func RegisterVariantServiceServer(s grpc.ServiceRegistrar, srv VariantServiceServer) {
	s.RegisterService(&VariantServiceDesc, srv)
}

// VariantServiceClient calls the service over any connection.
type VariantServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewVariantServiceClient(cc grpc.ClientConnInterface) *VariantServiceClient {
	return &VariantServiceClient{cc: cc}
}

func (c *VariantServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
