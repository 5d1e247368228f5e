package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/funvibe/bridje/internal/backend"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
)

const historyFile = ".brj_history"

func cmdRepl(ctx context.Context, args []string) int {
	var nsName string
	flags, _, parsed := parseFlags("repl", args, func(fs *flag.FlagSet) {
		fs.StringVar(&nsName, "ns", "user", "starting namespace")
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

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	ns := symbols.Intern(nsName)
	for {
		src, more := readForms(ln, ns.String()+"=> ", strings.Repeat(" ", len(ns.String()))+"   ")
		if !more {
			fmt.Println()
			return 0
		}
		line := strings.TrimSpace(src)
		switch {
		case line == "":
			continue
		case line == ":quit":
			return 0
		case strings.HasPrefix(line, ":ns "):
			ns = symbols.Intern(strings.TrimSpace(strings.TrimPrefix(line, ":ns ")))
			continue
		case strings.HasPrefix(line, ":type "):
			t, err := a.ev.TypeOf(ns, symbols.Intern(strings.TrimSpace(strings.TrimPrefix(line, ":type "))))
			if err != nil {
				report(err)
			} else {
				fmt.Println(t)
			}
			continue
		case strings.HasPrefix(line, ":"):
			fmt.Println("commands: :ns <name>, :type <symbol>, :quit")
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		v, err := a.ev.EvalString(ctx, ns, src)
		if err != nil {
			report(err)
			continue
		}
		fmt.Printf("%s : %s\n", backend.Format(v.Value), v.Type)
	}
}

// readForms prompts until the input reads as complete forms. It reports
// false at end of input.
func readForms(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := reader.ReadString(src, "<repl>"); errors.Is(err, reader.ErrIncomplete) {
			continue
		}
		return src, true
	}
}
