package reader

import (
	"testing"
)

// FuzzReadString checks that the reader never panics and that every form
// it returns carries a position.
func FuzzReadString(f *testing.F) {
	f.Add("(def (inc x) (+ x 1))")
	f.Add(`[1 2N 3.5 4.5M "s" 'a :k :ns/k ns/x]`)
	f.Add("#{1 2} {:a 1 :b} ; comment\n(a,b)")
	f.Add("(((")
	f.Add(`"unterminated`)

	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 4096 {
			return
		}
		forms, err := ReadString(src, "fuzz.brj")
		if err != nil {
			return
		}
		var check func(Form)
		check = func(form Form) {
			if form.Pos().Line < 1 {
				t.Fatalf("form %s has no position", form)
			}
			switch form := form.(type) {
			case *ListForm:
				for _, c := range form.Forms {
					check(c)
				}
			case *VectorForm:
				for _, c := range form.Forms {
					check(c)
				}
			case *SetForm:
				for _, c := range form.Forms {
					check(c)
				}
			case *RecordForm:
				for _, c := range form.Forms {
					check(c)
				}
			case *QuoteForm:
				check(form.Form)
			}
		}
		for _, form := range forms {
			check(form)
		}
	})
}
