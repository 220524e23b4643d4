package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newGRPCClient(t *testing.T, svc *Service) TransformerClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterTransformerServer(server, NewGRPCHandler(svc))
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewTransformerClient(conn)
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return req
}

func TestGRPC_Transform(t *testing.T) {
	client := newGRPCClient(t, newService(t, &memStore{}))

	resp, err := client.Transform(context.Background(), request(t, map[string]any{
		"rules":  map[string]any{"items": []any{map[string]any{"v.w": 1}}},
		"source": map[string]any{"items": []any{map[string]any{"v": map[string]any{"w": 1}}, map[string]any{"v": map[string]any{"w": 2}}}},
	}))
	require.NoError(t, err)

	out := resp.AsMap()
	assert.Equal(t, map[string]any{
		"items": []any{map[string]any{"v.w": 1.0}, map[string]any{"v.w": 2.0}},
	}, out["output"])
	assert.Equal(t, 2.0, out["entries"])
	assert.NotEmpty(t, out["run_id"])
}

func TestGRPC_Errors(t *testing.T) {
	client := newGRPCClient(t, newService(t, nil))

	tests := []struct {
		name   string
		fields map[string]any
		want   codes.Code
	}{
		{"missing rules", map[string]any{"source": 1}, codes.InvalidArgument},
		{"missing source", map[string]any{"rules": map[string]any{}}, codes.InvalidArgument},
		{"conflict", map[string]any{
			"rules":  map[string]any{"a.b": 1},
			"source": map[string]any{"a.b": 1, "a": map[string]any{"b": 2}},
		}, codes.InvalidArgument},
		{"rule value", map[string]any{"rules": map[string]any{"a.": 1}, "source": nil}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Transform(context.Background(), request(t, tt.fields))
			assert.Equal(t, tt.want, status.Code(err), err)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantGRPC codes.Code
		wantHTTP int
	}{
		{context.DeadlineExceeded, codes.DeadlineExceeded, 504},
		{ErrHistoryUnavailable, codes.Unavailable, 503},
		{ErrHistoryDisabled, codes.FailedPrecondition, 404},
		{ErrBadRequest, codes.InvalidArgument, 400},
		{assert.AnError, codes.Internal, 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantGRPC, grpcCode(tt.err), tt.err)
		assert.Equal(t, tt.wantHTTP, httpStatus(tt.err), tt.err)
	}
}
