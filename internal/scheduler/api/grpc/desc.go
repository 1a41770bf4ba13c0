package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName      = "gomandel.v1.TileService"
	renderTileMethod = "/" + ServiceName + "/RenderTile"
)

// TileServiceServer renders map tiles. The request carries numeric fields
// x, y, z and optionally iterations; the response is the PNG encoded tile.
type TileServiceServer interface {
	RenderTile(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error)
}

// TileServiceDesc describes gomandel.v1.TileService using well-known message
// types, so no generated code is needed.
var TileServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RenderTile",
			Handler:    renderTileHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gomandel/v1/tile.proto",
}

func RegisterTileServiceServer(s grpc.ServiceRegistrar, srv TileServiceServer) {
	s.RegisterService(&TileServiceDesc, srv)
}

func renderTileHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TileServiceServer).RenderTile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: renderTileMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TileServiceServer).RenderTile(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
