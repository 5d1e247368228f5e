package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CompilerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Require", Handler: unaryHandler("Require", CompilerServer.Require)},
		{MethodName: "Eval", Handler: unaryHandler("Eval", CompilerServer.Eval)},
		{MethodName: "TypeOf", Handler: unaryHandler("TypeOf", CompilerServer.TypeOf)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bridje/compiler",
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unaryHandler(name string, call func(CompilerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CompilerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CompilerServer), ctx, req.(*structpb.Struct))
		})
	}
}
