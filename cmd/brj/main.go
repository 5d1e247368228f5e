package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: brj <command> [flags] [args]

commands:
  check [ns...]          load namespaces and report errors (all when none given)
  run <ns> [fn]          load ns, then call its zero-argument fn
  eval [-ns n] <src>     evaluate source in a namespace
  repl [-ns n]           interactive session
  watch [ns...]          re-check whenever a source file changes
  serve [-addr a]        run the bridje.Compiler gRPC service
  store put <ns> <file>  save a namespace's source in the configured store
  store list             list namespaces in the store

flags common to every command:
  -config path           project file (default: bridje.yaml found upwards)
  -v                     debug logging
`

type command func(ctx context.Context, args []string) int

var commands = map[string]command{
	"check": cmdCheck,
	"run":   cmdRun,
	"eval":  cmdEval,
	"repl":  cmdRepl,
	"watch": cmdWatch,
	"serve": cmdServe,
	"store": cmdStore,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		fmt.Print(usage)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "brj: unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd(ctx, os.Args[2:])
	stop()
	os.Exit(code)
}
