package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client ClosingService 的呼叫端
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ExecuteClosing(ctx context.Context, req *ExecuteClosingRequest, opts ...grpc.CallOption) (*ClosingResponse, error) {
	out := new(ClosingResponse)
	if err := c.invoke(ctx, ExecuteClosingMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteClosing(ctx context.Context, req *DeleteClosingRequest, opts ...grpc.CallOption) (*ClosingResponse, error) {
	out := new(ClosingResponse)
	if err := c.invoke(ctx, DeleteClosingMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetExercise(ctx context.Context, req *GetExerciseRequest, opts ...grpc.CallOption) (*ExerciseResponse, error) {
	out := new(ExerciseResponse)
	if err := c.invoke(ctx, GetExerciseMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
