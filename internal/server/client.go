package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote bridje.Compiler service.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *Client) Require(ctx context.Context, namespaces ...string) (map[string]any, error) {
	list := make([]any, len(namespaces))
	for i, ns := range namespaces {
		list[i] = ns
	}
	return c.invoke(ctx, "Require", map[string]any{"namespaces": list})
}

func (c *Client) Eval(ctx context.Context, ns, source string) (map[string]any, error) {
	return c.invoke(ctx, "Eval", map[string]any{"ns": ns, "source": source})
}

func (c *Client) TypeOf(ctx context.Context, ns, symbol string) (map[string]any, error) {
	return c.invoke(ctx, "TypeOf", map[string]any{"ns": ns, "symbol": symbol})
}
