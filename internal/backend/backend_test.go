package backend

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/evaluator"
	"github.com/funvibe/bridje/internal/symbols"
)

var userNS = symbols.Intern("user")

type testRuntime struct {
	t   *testing.T
	ev  *evaluator.Evaluator
	out *bytes.Buffer
}

func newTestRuntime(t *testing.T) *testRuntime {
	t.Helper()
	store := env.NewStore(nil)
	out := &bytes.Buffer{}
	in := New(store.Working, WithOutput(out))
	ev := evaluator.New(store, in)
	if err := InstallCore(context.Background(), ev, in); err != nil {
		t.Fatalf("installing core: %v", err)
	}
	return &testRuntime{t: t, ev: ev, out: out}
}

func (r *testRuntime) eval(src string) (any, error) {
	r.t.Helper()
	v, err := r.ev.EvalString(context.Background(), userNS, src)
	if err != nil {
		return nil, err
	}
	return v.Value, nil
}

func (r *testRuntime) mustEval(src string) any {
	r.t.Helper()
	v, err := r.eval(src)
	if err != nil {
		r.t.Fatalf("eval %q: %v", src, err)
	}
	return v
}

func TestEvalValues(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"true", "true"},
		{`"s"`, `"s"`},
		{"42", "42"},
		{"12N", "12N"},
		{"1.5", "1.5"},
		{"'foo", "foo"},
		{"[1 2 3]", "[1 2 3]"},
		{"#{1 1 2}", "#{1 2}"},
		{"(+ 1 2)", "3"},
		{"(if (< 1 2) \"yes\" \"no\")", `"yes"`},
		{"(do 1 2 3)", "3"},
		{"(let [x 1 y (+ x 1)] (* x y))", "2"},
		{"((fn [x] (inc x)) 41)", "42"},
		{"(let [a 10] ((fn [b] (+ a b)) 5))", "15"},
		{"(conj [1 2] 3)", "[1 2 3]"},
		{"(count (concat [1] [2 3]))", "3"},
		{"(str 12)", `"12"`},
		{"(= [1 2] [1 2])", "true"},
		{"((fn fact [n] (if (< n 2) 1 (* n (fact (dec n))))) 5)", "120"},
		{"(let [f (fn [x] x)] ((fn f [n] (if (< n 1) 0 (f (dec n)))) 3))", "0"},
		{"(reduce + 0 [1 2 3])", "6"},
		{"(reduce (fn [acc x] (conj acc (inc x))) [] [1 2])", "[2 3]"},
		{"(reduce + 7 [])", "7"},
		{`(pr-str "s")`, `"\"s\""`},
		{"(pr-str [1 2])", `"[1 2]"`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			r := newTestRuntime(t)
			if got := Format(r.mustEval(tt.src)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoopRecur(t *testing.T) {
	r := newTestRuntime(t)
	got := r.mustEval("(loop [i 0 acc []] (if (< i 5) (recur (inc i) (conj acc i)) acc))")
	if s := Format(got); s != "[0 1 2 3 4]" {
		t.Errorf("got %s", s)
	}

	// Deep enough that a non-tail implementation would exhaust the guard.
	got = r.mustEval("(loop [i 0] (if (< i 100000) (recur (inc i)) i))")
	if got != int64(100000) {
		t.Errorf("got %v, want 100000", got)
	}
}

func TestRecursiveDefs(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval("(def (fact n) (if (< n 2) 1 (* n (fact (dec n)))))")
	if got := r.mustEval("(fact 10)"); got != int64(3628800) {
		t.Errorf("fact 10 = %v", got)
	}

	r.mustEval("(def (sum-to n acc) (if (< n 1) acc (recur (dec n) (+ acc n))))")
	if got := r.mustEval("(sum-to 100 0)"); got != int64(5050) {
		t.Errorf("sum-to 100 = %v", got)
	}
}

func TestRecords(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval(`(:: :name Str) (:: :age Int)`)

	if got := Format(r.mustEval(`{:name "ada" :age 36}`)); got != `{:user/name "ada", :user/age 36}` {
		t.Errorf("record = %s", got)
	}
	if got := r.mustEval(`(:age {:name "ada" :age 36})`); got != int64(36) {
		t.Errorf("accessor = %v", got)
	}
	if got := r.mustEval(`(= {:name "a" :age 1} {:age 1 :name "a"})`); got != true {
		t.Errorf("records with the same entries should be equal")
	}
}

func TestDuplicateRecordKey(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval(`(:: :a Int) (:: :b Int)`)

	rec := r.mustEval(`{:a (do (println! "first") 1) :b 2 :a (do (println! "second") 3)}`)
	if got := Format(rec); got != "{:user/b 2, :user/a 3}" {
		t.Errorf("record = %s", got)
	}
	if got := r.out.String(); got != "first\nsecond\n" {
		t.Errorf("output = %q, want both entries evaluated in order", got)
	}
}

func TestVariantsAndCase(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval(`
(deftype IntList)
(:: :Cons Int IntList)
(:: :Nil)
(deftype IntList (+ :Nil (:Cons Int IntList)))
(:: (total IntList) Int)
(def (total l) (case l (:Cons h t) (+ h (total t)) :Nil 0))`)

	if got := Format(r.mustEval("(:Cons 1 :Nil)")); got != "(:user/Cons 1 :user/Nil)" {
		t.Errorf("variant = %s", got)
	}
	if got := r.mustEval("(total (:Cons 1 (:Cons 2 (:Cons 3 :Nil))))"); got != int64(6) {
		t.Errorf("total = %v", got)
	}

	r.mustEval(`(:: :Ok Int) (:: :Err Str)`)
	if got := r.mustEval(`(case (:Err "e") (:Ok n) n 7)`); got != int64(7) {
		t.Errorf("default clause = %v", got)
	}
}

func TestEffects(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval(`
(defx (log! Str) Str)
(def (log! s) "default")
(def (greet) (log! "hi"))`)

	if got := r.mustEval("(greet)"); got != "default" {
		t.Errorf("default = %v", got)
	}
	if got := r.mustEval(`(with-fx [(def (log! s) s)] (greet))`); got != "hi" {
		t.Errorf("handled = %v", got)
	}

	// A handler that raises its own effect reaches the next handler out.
	got := r.mustEval(`
(with-fx [(def (log! s) "outer")]
  (with-fx [(def (log! s) (log! s))]
    (greet)))`)
	if got != "outer" {
		t.Errorf("nested = %v", got)
	}
}

func TestEffectfulClosureDefinition(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval(`
(defx (log! Str) Str)
(def (log! s) "default")
(def greet (let [p "hi"] (fn [] (log! p))))`)

	if got := r.mustEval("(greet)"); got != "default" {
		t.Errorf("default = %v", got)
	}
	if got := r.mustEval(`(with-fx [(def (log! s) s)] (greet))`); got != "hi" {
		t.Errorf("handled = %v", got)
	}
}

func TestNamedFnInEffectfulDefinition(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval(`
(defx (log! Str) Str)
(def (log! s) "default")
(def walk (fn walk [n] (if (< n 1) (log! "done") (walk (dec n)))))`)

	if got := r.mustEval("(walk 3)"); got != "default" {
		t.Errorf("default = %v", got)
	}
	if got := r.mustEval(`(with-fx [(def (log! s) s)] (walk 3))`); got != "done" {
		t.Errorf("handled = %v", got)
	}
}

func TestNow(t *testing.T) {
	store := env.NewStore(nil)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := New(store.Working, WithOutput(&bytes.Buffer{}), WithClock(func() time.Time { return at }))
	ev := evaluator.New(store, in)
	if err := InstallCore(context.Background(), ev, in); err != nil {
		t.Fatalf("installing core: %v", err)
	}
	r := &testRuntime{t: t, ev: ev}

	if got := r.mustEval("(now!)"); got != at.UnixMilli() {
		t.Errorf("now! = %v, want %d", got, at.UnixMilli())
	}
	if got := r.mustEval(`(with-fx [(def (now!) 42)] (now!))`); got != int64(42) {
		t.Errorf("handled now! = %v", got)
	}
	v, err := ev.EvalString(context.Background(), userNS, "(def (stamp) (now!))")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Type.Effects.Has(symbols.InternQ("brj.core/now!")) {
		t.Errorf("stamp should carry now!, type %s", v.Type)
	}
}

func TestPrintln(t *testing.T) {
	r := newTestRuntime(t)
	if got := r.mustEval(`(println! "hi")`); got != "hi" {
		t.Errorf("println! returned %v", got)
	}
	if got := r.out.String(); got != "hi\n" {
		t.Errorf("output = %q, want %q", got, "hi\n")
	}

	r.out.Reset()
	r.mustEval(`(with-fx [(def (println! s) "quiet")] (println! "x"))`)
	if r.out.Len() != 0 {
		t.Errorf("handled println! should not write, got %q", r.out.String())
	}
}

func TestEffectWithoutDefault(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval(`(defx (ask! Str) Str) (def (question) (ask! "name?"))`)

	_, err := r.eval("(question)")
	if !diagnostics.HasCode(err, diagnostics.ErrEmitter) {
		t.Fatalf("expected %s, got %v", diagnostics.ErrEmitter, err)
	}
	if !strings.Contains(err.Error(), "user/ask!") {
		t.Errorf("error should name the effect: %v", err)
	}

	if got := r.mustEval(`(with-fx [(def (ask! q) "ada")] (question))`); got != "ada" {
		t.Errorf("handled = %v", got)
	}

	// Defining the default afterwards is seen by earlier callers.
	r.mustEval(`(def (ask! q) "default")`)
	if got := r.mustEval("(question)"); got != "default" {
		t.Errorf("late default = %v", got)
	}
}

func TestMacros(t *testing.T) {
	r := newTestRuntime(t)
	if got := r.mustEval("(unless false 1 2)"); got != int64(1) {
		t.Errorf("unless = %v", got)
	}

	r.mustEval(`(defmacro (twice x) (:ListForm [(:SymbolForm 'do) x x]))`)
	r.mustEval(`(twice (println! "a"))`)
	if got := r.out.String(); got != "a\na\n" {
		t.Errorf("output = %q", got)
	}
}

func TestCallDepthLimit(t *testing.T) {
	r := newTestRuntime(t)
	r.mustEval("(def (down n) (if (< n 1) 0 (inc (down (dec n)))))")
	if got := r.mustEval("(down 100)"); got != int64(100) {
		t.Errorf("down 100 = %v", got)
	}
	_, err := r.eval("(down 50000)")
	if !diagnostics.HasCode(err, diagnostics.ErrEmitter) {
		t.Fatalf("expected %s, got %v", diagnostics.ErrEmitter, err)
	}
	if !strings.Contains(err.Error(), "maximum call depth") {
		t.Errorf("error = %v", err)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{nil, "nil"},
		{"a\"b", `"a\"b"`},
		{[]any{int64(1), "x"}, `[1 "x"]`},
		{NewSet(int64(1), int64(1), int64(2)), "#{1 2}"},
		{&Builtin{Name: "inc"}, "<builtin inc>"},
	}
	for _, tt := range tests {
		if got := Format(tt.v); got != tt.want {
			t.Errorf("Format(%#v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}
