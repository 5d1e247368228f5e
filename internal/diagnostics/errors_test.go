package diagnostics

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/funvibe/bridje/internal/token"
)

func TestErrorFormat(t *testing.T) {
	pos := token.Position{File: "a.brj", Line: 2, Column: 5}
	tests := []struct {
		err  error
		want string
	}{
		{NewError(ErrUnresolvedSymbol, pos, "unresolved %s", "x"), "a.brj:2:5: error[A001] unresolved x"},
		{NewError(ErrTypeMismatch, token.Position{}, "mismatch"), "error[T001] mismatch"},
		{Wrap(ErrEmitter, pos, errors.New("boom"), "calling f"), "a.brj:2:5: error[R001] calling f: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestWithSubjectsSorts(t *testing.T) {
	in := []string{"c", "a", "b"}
	e := NewError(ErrCyclicNamespace, token.Position{}, "cycle").WithSubjects(in...)
	if !reflect.DeepEqual(e.Subjects, []string{"a", "b", "c"}) {
		t.Errorf("subjects = %v", e.Subjects)
	}
	if in[0] != "c" {
		t.Error("caller's slice was reordered")
	}
}

func TestAtPos(t *testing.T) {
	pos := token.Position{Line: 3, Column: 1}
	e := NewError(ErrMalformedSpecialForm, token.Position{}, "bad if")
	AtPos(e, pos)
	if e.Pos != pos {
		t.Errorf("pos = %v, want %v", e.Pos, pos)
	}

	set := token.Position{Line: 1, Column: 1}
	e = NewError(ErrMalformedSpecialForm, set, "bad if")
	AtPos(e, pos)
	if e.Pos != set {
		t.Errorf("an existing position was overwritten: %v", e.Pos)
	}

	plain := errors.New("plain")
	if AtPos(plain, pos) != plain {
		t.Error("plain errors should pass through")
	}
}

func TestCodeLookup(t *testing.T) {
	inner := NewError(ErrMissingRecordKeys, token.Position{}, "missing")
	outer := Wrap(ErrTypeMismatch, token.Position{}, inner, "in def")
	err := fmt.Errorf("stage: %w", outer)

	if CodeOf(err) != ErrTypeMismatch {
		t.Errorf("CodeOf = %q", CodeOf(err))
	}
	if CodeOf(errors.New("x")) != "" {
		t.Error("uncoded errors should have no code")
	}
	if !HasCode(err, ErrMissingRecordKeys) || HasCode(err, ErrEmitter) {
		t.Error("HasCode should walk the whole chain")
	}
	if Find(err, ErrMissingRecordKeys) != inner {
		t.Error("Find should return the inner error")
	}
	if Find(err, ErrSyntax) != nil {
		t.Error("Find should return nil for absent codes")
	}
	if ErrEmitter.Name() != "emitter error" || ErrorCode("Z9").Name() != "Z9" {
		t.Error("unexpected code names")
	}
}
