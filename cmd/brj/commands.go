package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/bridje/internal/backend"
	"github.com/funvibe/bridje/internal/server"
	"github.com/funvibe/bridje/internal/symbols"
)

func parseFlags(name string, args []string, extra func(fs *flag.FlagSet)) (commonFlags, []string, bool) {
	var flags commonFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.register(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return flags, nil, false
	}
	return flags, fs.Args(), true
}

func toSymbols(names []string) []*symbols.Symbol {
	out := make([]*symbols.Symbol, len(names))
	for i, n := range names {
		out[i] = symbols.Intern(n)
	}
	return out
}

// check loads roots, or every namespace the project has when roots is
// empty.
func (a *app) check(ctx context.Context, roots []string) error {
	if len(roots) == 0 {
		var err error
		if roots, err = a.allNamespaces(ctx); err != nil {
			return err
		}
	}
	if len(roots) == 0 {
		return fmt.Errorf("no namespaces found under %s", strings.Join(a.proj.SourceDirs(), ", "))
	}
	res, err := a.ev.Require(ctx, toSymbols(roots)...)
	if err != nil {
		return err
	}
	for _, ns := range res.Committed {
		ok("%s", ns)
	}
	return nil
}

func cmdCheck(ctx context.Context, args []string) int {
	flags, rest, parsed := parseFlags("check", args, nil)
	if !parsed {
		return 2
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		report(err)
		return 1
	}
	defer a.Close()

	if err := a.check(ctx, rest); err != nil {
		report(err)
		return 1
	}
	return 0
}

func cmdRun(ctx context.Context, args []string) int {
	flags, rest, parsed := parseFlags("run", args, nil)
	if !parsed {
		return 2
	}
	if len(rest) < 1 || len(rest) > 2 {
		fmt.Fprintln(os.Stderr, "usage: brj run <ns> [fn]")
		return 2
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		report(err)
		return 1
	}
	defer a.Close()

	ns := symbols.Intern(rest[0])
	if _, err := a.ev.Require(ctx, ns); err != nil {
		report(err)
		return 1
	}
	if len(rest) == 1 {
		return 0
	}
	v, err := a.ev.EvalString(ctx, ns, "("+rest[1]+")")
	if err != nil {
		report(err)
		return 1
	}
	fmt.Println(backend.Format(v.Value))
	return 0
}

func cmdEval(ctx context.Context, args []string) int {
	var ns, addr string
	flags, rest, parsed := parseFlags("eval", args, func(fs *flag.FlagSet) {
		fs.StringVar(&ns, "ns", "user", "namespace to evaluate in")
		fs.StringVar(&addr, "addr", "", "evaluate on a running brj serve instead of locally")
	})
	if !parsed {
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: brj eval [-ns n] [-addr a] <src>")
		return 2
	}
	src := strings.Join(rest, " ")

	if addr != "" {
		return evalRemote(ctx, addr, ns, src)
	}

	a, err := newApp(ctx, flags)
	if err != nil {
		report(err)
		return 1
	}
	defer a.Close()

	v, err := a.ev.EvalString(ctx, symbols.Intern(ns), src)
	if err != nil {
		report(err)
		return 1
	}
	fmt.Printf("%s : %s\n", backend.Format(v.Value), v.Type)
	return 0
}

func evalRemote(ctx context.Context, addr, ns, src string) int {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		report(err)
		return 1
	}
	defer conn.Close()

	res, err := server.NewClient(conn).Eval(ctx, ns, src)
	if err != nil {
		report(err)
		return 1
	}
	fmt.Printf("%v : %v\n", res["value"], res["type"])
	return 0
}

func cmdServe(ctx context.Context, args []string) int {
	var addr string
	var preload string
	flags, _, parsed := parseFlags("serve", args, func(fs *flag.FlagSet) {
		fs.StringVar(&addr, "addr", "", "listen address (default from config)")
		fs.StringVar(&preload, "require", "", "comma-separated namespaces to load before serving")
	})
	if !parsed {
		return 2
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		report(err)
		return 1
	}
	defer a.Close()

	if preload != "" {
		if _, err := a.ev.Require(ctx, toSymbols(strings.Split(preload, ","))...); err != nil {
			report(err)
			return 1
		}
	}
	if addr == "" {
		addr = a.proj.Server.Addr
	}
	if err := server.New(a.ev, server.WithLogger(a.logger)).Serve(ctx, addr); err != nil {
		report(err)
		return 1
	}
	return 0
}

func cmdStore(ctx context.Context, args []string) int {
	flags, rest, parsed := parseFlags("store", args, nil)
	if !parsed {
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: brj store put <ns> <file> | brj store list")
		return 2
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		report(err)
		return 1
	}
	defer a.Close()
	if a.store == nil {
		report(fmt.Errorf("no store configured in %s", a.proj.Dir))
		return 1
	}

	switch rest[0] {
	case "put":
		if len(rest) != 3 {
			fmt.Fprintln(os.Stderr, "usage: brj store put <ns> <file>")
			return 2
		}
		data, err := os.ReadFile(rest[2])
		if err != nil {
			report(err)
			return 1
		}
		if err := a.store.Put(ctx, rest[1], string(data)); err != nil {
			report(err)
			return 1
		}
		ok("stored %s", rest[1])
	case "list":
		names, err := a.store.List(ctx)
		if err != nil {
			report(err)
			return 1
		}
		for _, n := range names {
			fmt.Println(n)
		}
	default:
		fmt.Fprintf(os.Stderr, "brj store: unknown subcommand %q\n", rest[0])
		return 2
	}
	return 0
}
