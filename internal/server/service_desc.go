package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "menuimport.v1.MenuImportService"

// MenuImportServer is the gRPC surface. Messages are google.protobuf.Struct values
// holding the JSON form of the pipeline requests and responses.
type MenuImportServer interface {
	PreviewUpload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveConflicts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FinalizeImport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetImportJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteImportJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(MenuImportServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MenuImportServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MenuImportServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MenuImportServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("PreviewUpload", MenuImportServer.PreviewUpload),
		unary("ResolveConflicts", MenuImportServer.ResolveConflicts),
		unary("FinalizeImport", MenuImportServer.FinalizeImport),
		unary("GetImportJob", MenuImportServer.GetImportJob),
		unary("DeleteImportJob", MenuImportServer.DeleteImportJob),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "menuimport/v1/menu_import.proto",
}

func RegisterMenuImportServer(s grpc.ServiceRegistrar, srv MenuImportServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Client calls MenuImportService over any client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method (e.g. "PreviewUpload") with in and returns the response struct.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
