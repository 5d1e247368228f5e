package analyzer

import (
	"testing"

	"github.com/funvibe/bridje/internal/reader"
)

// FuzzAnalyze feeds arbitrary readable source through analysis and
// inference. Errors are expected; panics are not.
func FuzzAnalyze(f *testing.F) {
	f.Add("(let [x 1] (+ x 1))")
	f.Add("(:: :a Int) {:a 1}")
	f.Add("(:: :Ok Int) (case (:Ok 1) (:Ok n) n 0)")
	f.Add("(defx (log! Str) Str) (with-fx [(def (log! s) s)] (log! \"x\"))")
	f.Add("(loop [i 0] (if true i (recur (inc i))))")
	f.Add("(deftype (T a) [a]) (:: x (T Int))")

	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 2048 {
			return
		}
		if _, err := reader.ReadString(src, "fuzz.brj"); err != nil {
			return
		}
		ns := newTestNS(t, "", WithMaxMacroDepth(16))
		_, _ = ns.eval(src)
	})
}
