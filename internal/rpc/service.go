// Package rpc exposes the transforms as the decoder.v1.Transformer gRPC
// service. Messages are google.protobuf.Struct values so no generated code
// is needed; the service descriptor below is written by hand in the shape
// protoc-gen-go-grpc produces.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "decoder.v1.Transformer"

// TransformerServer is the server API for the Transformer service.
type TransformerServer interface {
	Encrypt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decrypt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AutoDecrypt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Merge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Unmerge(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(TransformerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TransformerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TransformerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TransformerServiceDesc describes the Transformer service for grpc.Server.
var TransformerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransformerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Encrypt", Handler: unaryHandler("Encrypt", TransformerServer.Encrypt)},
		{MethodName: "Decrypt", Handler: unaryHandler("Decrypt", TransformerServer.Decrypt)},
		{MethodName: "AutoDecrypt", Handler: unaryHandler("AutoDecrypt", TransformerServer.AutoDecrypt)},
		{MethodName: "Merge", Handler: unaryHandler("Merge", TransformerServer.Merge)},
		{MethodName: "Unmerge", Handler: unaryHandler("Unmerge", TransformerServer.Unmerge)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "decoder/v1/transformer.proto",
}

// RegisterTransformerServer registers srv with s.
func RegisterTransformerServer(s grpc.ServiceRegistrar, srv TransformerServer) {
	s.RegisterService(&TransformerServiceDesc, srv)
}

// TransformerClient is the client API for the Transformer service.
type TransformerClient struct {
	cc grpc.ClientConnInterface
}

func NewTransformerClient(cc grpc.ClientConnInterface) *TransformerClient {
	return &TransformerClient{cc: cc}
}

func (c *TransformerClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TransformerClient) Encrypt(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Encrypt", in, opts...)
}

func (c *TransformerClient) Decrypt(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Decrypt", in, opts...)
}

func (c *TransformerClient) AutoDecrypt(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "AutoDecrypt", in, opts...)
}

func (c *TransformerClient) Merge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Merge", in, opts...)
}

func (c *TransformerClient) Unmerge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Unmerge", in, opts...)
}
