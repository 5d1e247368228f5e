package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/bridje/internal/diagnostics"
)

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(w io.Writer, color, s string) string {
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		return color + s + colorReset
	}
	return s
}

// report prints err to stderr. Diagnostics are printed with their code
// name and subjects.
func report(err error) {
	w := os.Stderr
	var de *diagnostics.DiagnosticError
	if errors.As(err, &de) {
		fmt.Fprintf(w, "%s %s\n", paint(w, colorRed, de.Code.Name()+":"), err)
		for _, s := range de.Subjects {
			fmt.Fprintf(w, "  - %s\n", s)
		}
		return
	}
	fmt.Fprintf(w, "%s %s\n", paint(w, colorRed, "error:"), err)
}

func ok(format string, args ...any) {
	fmt.Println(paint(os.Stdout, colorGreen, "ok"), fmt.Sprintf(format, args...))
}
