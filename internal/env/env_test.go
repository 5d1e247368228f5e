package env

import (
	"fmt"
	"sync"
	"testing"

	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

func TestPersistentMap(t *testing.T) {
	m := EmptyMap[string, int](StringHash)
	var snapshots []*PersistentMap[string, int]
	for i := 0; i < 2000; i++ {
		m = m.Put(fmt.Sprintf("k%d", i), i)
		if i%500 == 0 {
			snapshots = append(snapshots, m)
		}
	}

	if m.Len() != 2000 {
		t.Fatalf("Len() = %d, want 2000", m.Len())
	}
	for i := 0; i < 2000; i++ {
		if v, ok := m.Get(fmt.Sprintf("k%d", i)); !ok || v != i {
			t.Fatalf("Get(k%d) = %d, %v", i, v, ok)
		}
	}

	m2 := m.Put("k7", 70)
	if v, _ := m.Get("k7"); v != 7 {
		t.Errorf("old map changed after Put: k7 = %d", v)
	}
	if v, _ := m2.Get("k7"); v != 70 {
		t.Errorf("new map k7 = %d, want 70", v)
	}
	if m2.Len() != 2000 {
		t.Errorf("overwrite changed Len to %d", m2.Len())
	}

	for i, s := range snapshots {
		if want := i*500 + 1; s.Len() != want {
			t.Errorf("snapshot %d Len() = %d, want %d", i, s.Len(), want)
		}
		if _, ok := s.Get("k1999"); ok {
			t.Errorf("snapshot %d sees a later key", i)
		}
	}
}

func TestPersistentMapCollisions(t *testing.T) {
	m := EmptyMap[string, int](func(string) uint32 { return 42 })
	for i := 0; i < 10; i++ {
		m = m.Put(fmt.Sprintf("k%d", i), i)
	}
	for i := 0; i < 10; i++ {
		if v, ok := m.Get(fmt.Sprintf("k%d", i)); !ok || v != i {
			t.Errorf("Get(k%d) = %d, %v", i, v, ok)
		}
	}
	if len(m.Keys()) != 10 {
		t.Errorf("Keys() = %v", m.Keys())
	}
}

func TestNSEnvDeclareShadows(t *testing.T) {
	ns := symbols.Intern("env-test")
	x := symbols.Qualify(ns, symbols.Intern("x"))

	e0 := NewNSEnv(ns, nil)
	e1 := e0.Declare(&DefVar{QSym: x, T: typesystem.Type{Mono: typesystem.IntType}, Value: int64(1), Defined: true})
	e2 := e1.Declare(&DefVar{QSym: x, T: typesystem.Type{Mono: typesystem.StrType}, Value: "one", Defined: true})

	if _, ok := e0.Get(x.Base); ok {
		t.Errorf("Declare mutated the original environment")
	}
	v1, _ := e1.Get(x.Base)
	v2, _ := e2.Get(x.Base)
	if RuntimeValue(v1) != int64(1) || RuntimeValue(v2) != "one" {
		t.Errorf("values = %v, %v", RuntimeValue(v1), RuntimeValue(v2))
	}
	if e2.Len() != 1 {
		t.Errorf("shadowing should not add an entry, Len() = %d", e2.Len())
	}
}

func TestParseHeader(t *testing.T) {
	forms, err := reader.ReadString(`(ns my.app {:aliases {u my.users}
	                                         :refers {my.util #{helper :first-name}
	                                                  my.users [User]}})`, "")
	if err != nil {
		t.Fatal(err)
	}
	h, err := ParseHeader(forms[0])
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}

	if h.NS != symbols.Intern("my.app") {
		t.Errorf("NS = %s", h.NS)
	}
	if target, ok := h.Alias(symbols.Intern("u")); !ok || target != symbols.Intern("my.users") {
		t.Errorf("alias u = %v", target)
	}
	if target, ok := h.Refer(symbols.Intern(":first-name")); !ok || target != symbols.InternQ(":my.util/first-name") {
		t.Errorf("refer :first-name = %v", target)
	}

	var deps []string
	for _, d := range h.Deps() {
		deps = append(deps, d.String())
	}
	if fmt.Sprint(deps) != "[my.users my.util]" {
		t.Errorf("Deps() = %v", deps)
	}
}

func TestParseHeaderHostAlias(t *testing.T) {
	forms, err := reader.ReadString(`(ns my.app {:aliases {s (host strings (:: (to-upper Str) Str))
	                                                   u my.users}})`, "")
	if err != nil {
		t.Fatal(err)
	}
	h, err := ParseHeader(forms[0])
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	host, ok := h.Host(symbols.Intern("s"))
	if !ok {
		t.Fatalf("host alias s missing, Hosts = %v", h.Hosts)
	}
	if host.Package != symbols.Intern("strings") || len(host.Decls) != 1 {
		t.Errorf("host alias s = %s with %d decls", host.Package, len(host.Decls))
	}
	if _, ok := h.Alias(symbols.Intern("s")); ok {
		t.Error("host alias should not be a namespace alias")
	}
	if deps := h.Deps(); len(deps) != 1 || deps[0] != symbols.Intern("my.users") {
		t.Errorf("Deps() = %v", deps)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	for _, src := range []string{
		`(def x 1)`,
		`(ns)`,
		`(ns :foo)`,
		`(ns foo {:aliases [a b]})`,
		`(ns foo {:imports {}})`,
		`(ns foo {:refers {bar baz}})`,
		`(ns foo {:aliases {s (strings)}})`,
		`(ns foo {:aliases {s (host "strings")}})`,
	} {
		forms, err := reader.ReadString(src, "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseHeader(forms[0]); err == nil {
			t.Errorf("ParseHeader(%s): expected error", src)
		}
	}
}

func TestStoreVersions(t *testing.T) {
	s := NewStore(nil)
	base := s.Snapshot()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Exclusive(func() error {
				ns := symbols.Intern(fmt.Sprintf("store-test.ns%d", i))
				s.Publish(s.Snapshot().Merge(NewNSEnv(ns, nil)))
				return nil
			})
		}(i)
	}
	wg.Wait()

	if got := s.Snapshot().Version; got != 8 {
		t.Errorf("Version = %d, want 8", got)
	}
	if len(base.Namespaces()) != 0 {
		t.Errorf("initial snapshot changed: %v", base.Namespaces())
	}
	if len(s.Snapshot().Namespaces()) != 8 {
		t.Errorf("namespaces = %v", s.Snapshot().Namespaces())
	}
}

func TestStoreStaging(t *testing.T) {
	s := NewStore(nil)
	ns := symbols.Intern("store-test.staged")

	_ = s.Exclusive(func() error {
		s.Stage(s.Working().Merge(NewNSEnv(ns, nil)))
		if !s.Working().Has(ns) {
			t.Error("staged namespace should be visible to the writer")
		}
		if s.Snapshot().Has(ns) {
			t.Error("staged namespace should not be published yet")
		}
		s.Discard()
		if s.Working().Has(ns) {
			t.Error("discarded namespace is still visible")
		}

		s.Stage(s.Working().Merge(NewNSEnv(ns, nil)))
		s.Publish(s.Working())
		return nil
	})
	if !s.Snapshot().Has(ns) {
		t.Error("published namespace is missing")
	}

	other := symbols.Intern("store-test.abandoned")
	_ = s.Exclusive(func() error {
		s.Stage(s.Working().Merge(NewNSEnv(other, nil)))
		return nil
	})
	if s.Working().Has(other) {
		t.Error("Exclusive should drop what was left staged")
	}
}
