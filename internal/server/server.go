// Package server exposes the evaluator as the bridje.Compiler gRPC
// service. Requests and responses are structpb.Struct messages.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/funvibe/bridje/internal/backend"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/evaluator"
	"github.com/funvibe/bridje/internal/symbols"
)

const ServiceName = "bridje.Compiler"

// CompilerServer is the handler type of the service.
type CompilerServer interface {
	Require(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Eval(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	TypeOf(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	ev     *evaluator.Evaluator
	logger *slog.Logger
	sf     singleflight.Group
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(ev *evaluator.Evaluator, opts ...Option) *Server {
	s := &Server{ev: ev, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&serviceDesc, s)
}

// Serve listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	g := grpc.NewServer()
	s.Register(g)

	go func() {
		<-ctx.Done()
		g.GracefulStop()
	}()
	s.logger.Info("serving", "service", ServiceName, "addr", lis.Addr().String())
	if err := g.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Require loads namespaces. Concurrent calls for the same set of
// namespaces share one load.
func (s *Server) Require(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	names, err := stringList(req, "namespaces")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, status.Error(codes.InvalidArgument, "namespaces is required")
	}
	key := append([]string(nil), names...)
	sort.Strings(key)

	v, err, shared := s.sf.Do(strings.Join(key, ","), func() (any, error) {
		roots := make([]*symbols.Symbol, len(names))
		for i, n := range names {
			roots[i] = symbols.Intern(n)
		}
		return s.ev.Require(ctx, roots...)
	})
	if err != nil {
		return nil, toStatus(err)
	}
	res := v.(*evaluator.Result)
	s.logger.Debug("require", "request", res.RequestID, "namespaces", names, "shared", shared)

	committed := make([]any, len(res.Committed))
	for i, ns := range res.Committed {
		committed[i] = ns.String()
	}
	return structpb.NewStruct(map[string]any{
		"request_id": res.RequestID,
		"committed":  committed,
		"version":    float64(res.Version),
	})
}

// Eval evaluates source in a namespace and reports the last form's value
// and type.
func (s *Server) Eval(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ns, err := stringField(req, "ns")
	if err != nil {
		return nil, err
	}
	src, err := stringField(req, "source")
	if err != nil {
		return nil, err
	}
	v, err := s.ev.EvalString(ctx, symbols.Intern(ns), src)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"request_id": v.RequestID,
		"value":      backend.Format(v.Value),
		"type":       v.Type.String(),
	})
}

func (s *Server) TypeOf(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ns, err := stringField(req, "ns")
	if err != nil {
		return nil, err
	}
	sym, err := stringField(req, "symbol")
	if err != nil {
		return nil, err
	}
	t, err := s.ev.TypeOf(symbols.Intern(ns), symbols.Intern(sym))
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"type": t.String()})
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return sv.StringValue, nil
}

func stringList(req *structpb.Struct, name string) ([]string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list", name)
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s must hold strings", name)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

// toStatus maps diagnostics onto gRPC codes. The diagnostic code is
// carried in the message.
func toStatus(err error) error {
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	switch diagnostics.CodeOf(err) {
	case diagnostics.ErrNamespaceNotFound, diagnostics.ErrUnknownNamespace, diagnostics.ErrUnresolvedSymbol:
		return status.Error(codes.NotFound, err.Error())
	case diagnostics.ErrEmitter:
		return status.Error(codes.Aborted, err.Error())
	case "":
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(codes.InvalidArgument, err.Error())
}
