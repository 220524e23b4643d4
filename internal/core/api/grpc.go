package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/thomson/internal/core/history"
)

// The Transformer service carries documents as google.protobuf.Struct, so no
// generated code is needed. Request fields: "rules" and "source". Response
// fields: "run_id", "entries" and "output".
//
// Struct numbers are doubles: integers beyond 2^53 lose precision on this
// surface. Use the HTTP surface for exact integers.
const (
	TransformerServiceName  = "thomson.v1.Transformer"
	TransformFullMethodName = "/" + TransformerServiceName + "/Transform"
)

// TransformerServer is the server API for the Transformer service.
type TransformerServer interface {
	Transform(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterTransformerServer registers srv with s.
func RegisterTransformerServer(s grpc.ServiceRegistrar, srv TransformerServer) {
	s.RegisterService(&Transformer_ServiceDesc, srv)
}

func _Transformer_Transform_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformerServer).Transform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TransformFullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransformerServer).Transform(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Transformer_ServiceDesc is the grpc.ServiceDesc for the Transformer service.
var Transformer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TransformerServiceName,
	HandlerType: (*TransformerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transform",
			Handler:    _Transformer_Transform_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "thomson/v1/transformer.proto",
}

// TransformerClient is the client API for the Transformer service.
type TransformerClient interface {
	Transform(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type transformerClient struct {
	cc grpc.ClientConnInterface
}

// NewTransformerClient returns a client bound to cc.
func NewTransformerClient(cc grpc.ClientConnInterface) TransformerClient {
	return &transformerClient{cc}
}

func (c *transformerClient) Transform(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TransformFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GRPCHandler adapts Service to TransformerServer.
type GRPCHandler struct {
	service *Service
}

var _ TransformerServer = (*GRPCHandler)(nil)

// NewGRPCHandler creates the gRPC adapter for service.
func NewGRPCHandler(service *Service) *GRPCHandler {
	return &GRPCHandler{service: service}
}

// Transform executes one transform request.
func (h *GRPCHandler) Transform(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	rulesValue, ok := fields["rules"]
	if !ok {
		return nil, status.Error(grpcCode(ErrBadRequest), `missing "rules" field`)
	}
	sourceValue, ok := fields["source"]
	if !ok {
		return nil, status.Error(grpcCode(ErrBadRequest), `missing "source" field`)
	}

	outcome, err := h.service.Execute(ctx, history.OriginGRPC, rulesValue.AsInterface(), sourceValue.AsInterface())
	if err != nil {
		return nil, status.Error(grpcCode(err), err.Error())
	}

	output, err := structpb.NewValue(outcome.Output)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode output: %v", err))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"run_id":  structpb.NewStringValue(string(outcome.RunID)),
		"entries": structpb.NewNumberValue(float64(outcome.Entries)),
		"output":  output,
	}}, nil
}
