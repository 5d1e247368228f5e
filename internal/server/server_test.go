package server

import (
	"context"
	"io"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/funvibe/bridje/internal/backend"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/evaluator"
	"github.com/funvibe/bridje/internal/modules"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	store := env.NewStore(nil)
	in := backend.New(store.Working, backend.WithOutput(io.Discard))
	ev := evaluator.New(store, in, evaluator.WithSource(modules.MapSource{
		"util": "(ns util) (def (twice n) (* n 2))",
		"app":  "(ns app {:refers {util #{twice}}}) (def answer (twice 21))",
		"bad":  `(ns bad) (def x (+ 1 "s"))`,
	}))
	if err := backend.InstallCore(context.Background(), ev, in); err != nil {
		t.Fatalf("installing core: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	g := grpc.NewServer()
	New(ev).Register(g)
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(g.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func TestRequire(t *testing.T) {
	c := newTestClient(t)
	res, err := c.Require(context.Background(), "app")
	if err != nil {
		t.Fatalf("require: %v", err)
	}
	committed, _ := res["committed"].([]any)
	if len(committed) != 2 || committed[0] != "util" || committed[1] != "app" {
		t.Errorf("committed = %v, want [util app]", res["committed"])
	}
	if id, _ := res["request_id"].(string); id == "" {
		t.Error("missing request_id")
	}
}

func TestEvalAndTypeOf(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	res, err := c.Eval(ctx, "app", "answer")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if res["value"] != "42" || res["type"] != "Int" {
		t.Errorf("eval = %v", res)
	}

	res, err = c.TypeOf(ctx, "util", "twice")
	if err != nil {
		t.Fatalf("type-of: %v", err)
	}
	if res["type"] != "(Fn Int Int)" {
		t.Errorf("type = %v", res["type"])
	}
}

func TestErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"missing namespace", func() error { _, err := c.Require(ctx, "nowhere"); return err }, codes.NotFound},
		{"no namespaces", func() error { _, err := c.Require(ctx); return err }, codes.InvalidArgument},
		{"ill typed", func() error { _, err := c.Require(ctx, "bad"); return err }, codes.InvalidArgument},
		{"unknown namespace", func() error { _, err := c.TypeOf(ctx, "nowhere", "x"); return err }, codes.NotFound},
		{"missing field", func() error { _, err := c.invoke(ctx, "Eval", map[string]any{"ns": "user"}); return err }, codes.InvalidArgument},
		{"runtime failure", func() error { _, err := c.Eval(ctx, "user", "(defx (boom! Int) Int) (boom! 1)"); return err }, codes.Aborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if got := status.Code(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}
