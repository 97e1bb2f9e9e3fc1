package vm

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Atom table
// ---------------------------------------------------------------------------

func TestAtomTable(t *testing.T) {
	at := NewAtomTable()
	a := at.Intern("alpha")
	b := at.Intern("beta")
	if a == b {
		t.Fatalf("distinct names share atom %d", a)
	}
	if got := at.Intern("alpha"); got != a {
		t.Errorf("re-intern alpha = %d, want %d", got, a)
	}
	if got := at.Lookup("gamma"); got != NoAtom {
		t.Errorf("Lookup(gamma) = %d, want NoAtom", got)
	}
	if got := at.Name(b); got != "beta" {
		t.Errorf("Name(%d) = %q, want beta", b, got)
	}
	if got := at.Name(b + 1); got != "" {
		t.Errorf("Name(%d) = %q, want empty", b+1, got)
	}
}

// ---------------------------------------------------------------------------
// Context lookup
// ---------------------------------------------------------------------------

func TestContextLookupSortedAndUnsorted(t *testing.T) {
	at := NewAtomTable()
	names := []string{"zeta", "alpha", "mu", "beta"}
	atoms := make([]Atom, len(names))
	for n, name := range names {
		atoms[n] = at.Intern(name)
	}

	ctx := NewContext(4)
	for _, a := range atoms[:2] {
		ctx.Append(a)
	}
	check := func(stage string) {
		t.Helper()
		for n, a := range atoms {
			want := -1
			if n < ctx.Len() {
				want = n
			}
			if got := ctx.Lookup(a); got != want {
				t.Errorf("%s: Lookup(%s) = %d, want %d", stage, names[n], got, want)
			}
		}
	}

	check("unsorted")
	ctx.Sort()
	check("sorted")
	ctx.Append(atoms[2])
	ctx.Append(atoms[3])
	check("sorted prefix plus tail")
	ctx.Sort()
	check("resorted")
}

func TestContextSetGet(t *testing.T) {
	at := NewAtomTable()
	x := at.Intern("x")
	ctx := NewContext(1)
	if _, ok := ctx.Get(x); ok {
		t.Fatalf("Get on empty context succeeded")
	}
	ctx.Set(x, Int(3))
	ctx.Set(x, Int(4))
	v, ok := ctx.Get(x)
	if !ok || v.Int() != 4 || ctx.Len() != 1 {
		t.Errorf("Get(x) = %v %v len %d, want 4 true len 1", v, ok, ctx.Len())
	}
}

func TestFrozenContextRejectsAppend(t *testing.T) {
	at := NewAtomTable()
	ctx := NewContext(1)
	ctx.Append(at.Intern("a"))
	ctx.Freeze()
	defer func() {
		if recover() == nil {
			t.Errorf("Append to frozen context did not panic")
		}
	}()
	ctx.Append(at.Intern("b"))
}

func TestAccessorPanicsOnWrongType(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil || !strings.Contains(r.(string), "int!") {
			t.Errorf("recover() = %v, want type panic", r)
		}
	}()
	String("x").Int()
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

func TestPathSelection(t *testing.T) {
	i := newTestInterpreter(t, "")
	mustEval(t, i, `blk: [x 10 y 20 "s"] s: "héllo" n: 2`)
	tests := []struct {
		src  string
		want string
	}{
		{`blk/y`, "20"},
		{`blk/2`, "10"},
		{`blk/9`, "none"},
		{`blk/0`, "none"},
		{`blk/missing`, "none"},
		{`blk/:n`, "10"},
		{`s/2`, "é"},
		{`s/10`, "none"},
		{`c: context [inner: [k 1]] c/inner/k`, "1"},
	}
	for _, tt := range tests {
		if got := mustEval(t, i, tt.src).String(); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestPathErrors(t *testing.T) {
	i := newTestInterpreter(t, "")
	tests := []struct {
		src string
		msg string
	}{
		{`n: 3 n/1`, "cannot select int! with int!"},
		{`zz/1`, "path word 'zz is unset"},
		{`blk: [1] blk/1: 2 blk/5: 0`, "index 5 out of range"},
		{`blk: [a 1] blk/b: 2`, "no value after 'b"},
		{`n: 3 n/x: 1`, "cannot set path: int! with word!"},
	}
	for _, tt := range tests {
		e := evalError(t, i, tt.src)
		if e.Kind != ErrScript || !strings.Contains(e.Message, tt.msg) {
			t.Errorf("%q error = %v, want %q", tt.src, e, tt.msg)
		}
	}
}

func TestSetPath(t *testing.T) {
	i := newTestInterpreter(t, "")
	tests := []struct {
		src  string
		want string
	}{
		{`blk: [1 2 3] blk/2: 9 mold blk`, "[1 9 3]"},
		{`blk: [a 1 b 2] blk/b: "x" mold blk`, `[a 1 b "x"]`},
		{`s: "abc" s/2: 'Z' s`, "aZc"},
		{`c: context [v: 1] c/v: c/v c/v: 7 c/v`, "7"},
		{`n: 2 blk: [1 2 3] blk/:n: 0 mold blk`, "[1 0 3]"},
	}
	for _, tt := range tests {
		if got := mustEval(t, i, tt.src).String(); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestSelfContainingBlock(t *testing.T) {
	i := newTestInterpreter(t, "")
	mustEval(t, i, `b: [1] b/1: b c: [1] c/1: c`)
	tests := []struct {
		src  string
		want string
	}{
		{`mold b`, "[[...]]"},
		{`b`, "[...]"},
		{`join "" b`, "[...]"},
		{`mold reduce [b b]`, "[[[...]] [[...]]]"},
		{`equal? b b`, "true"},
		{`equal? b c`, "true"},
		{`equal? b [1]`, "false"},
		{`ctx: context [x: 1] ctx/x: ctx mold ctx`, "context [x: [...]]"},
	}
	for _, tt := range tests {
		if got := mustEval(t, i, tt.src).String(); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.src, got, tt.want)
		}
	}

	for _, src := range []string{`func [] b`, `does b`, `context b`} {
		e := evalError(t, i, src)
		if e.Kind != ErrScript || e.Message != "block contains itself" {
			t.Errorf("%q error = %v, want block contains itself", src, e)
		}
	}
}

// ---------------------------------------------------------------------------
// Reader and printer
// ---------------------------------------------------------------------------

func TestReadTypes(t *testing.T) {
	vm := NewVM(Config{})
	blk, err := vm.Read(`a: 'b :c /d e/f 'g/h i/j: 1 -2 3.5 "s" {t} 'u' int!/string! [x (y)]`)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var got []string
	for _, c := range blk.cells {
		got = append(got, c.typ.String())
	}
	want := []string{
		"set-word!", "lit-word!", "get-word!", "option!", "path!", "lit-path!", "set-path!",
		"int!", "int!", "double!", "string!", "string!", "char!", "datatype!", "block!",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestMold(t *testing.T) {
	vm := NewVM(Config{})
	tests := []struct {
		src  string
		want string
	}{
		{`a: 'b :c /d`, `a: 'b :c /d`},
		{`e/f/1 'g/h i/j:`, `e/f/1 'g/h i/j:`},
		{`1 -2 3.5 4.0`, `1 -2 3.5 4.0`},
		{`"a^"b" {line^/two}`, `"a^"b" "line^/two"`},
		{`'x' '^-'`, `'x' '^-'`},
		{`[x (y [z])]`, `[x (y [z])]`},
		{`int!/string!`, `int!/string!`},
	}
	for _, tt := range tests {
		blk, err := vm.Read(tt.src)
		if err != nil {
			t.Fatalf("Read(%q): %v", tt.src, err)
		}
		got := vm.Mold(Block(blk))
		if want := "[" + tt.want + "]"; got != want {
			t.Errorf("Mold(%q) = %q, want %q", tt.src, got, want)
		}
	}
}

func TestReadErrors(t *testing.T) {
	vm := NewVM(Config{})
	for _, src := range []string{`[1 2`, `(1]`, `1]`, `"open`, `a:b`, `foo!`} {
		if _, err := vm.Read(src); err == nil {
			t.Errorf("Read(%q) succeeded, want syntax error", src)
		}
	}
}

func TestReadIncomplete(t *testing.T) {
	vm := NewVM(Config{})
	tests := []struct {
		src  string
		want bool
	}{
		{`[1 2`, true},
		{`f: func [x] [`, true},
		{`(1`, true},
		{`1]`, false},
		{`"open`, false},
	}
	for _, tt := range tests {
		_, err := vm.Read(tt.src)
		var e *Error
		if !errors.As(err, &e) {
			t.Fatalf("Read(%q) error = %v, want *Error", tt.src, err)
		}
		if e.Incomplete != tt.want {
			t.Errorf("Read(%q) Incomplete = %v, want %v", tt.src, e.Incomplete, tt.want)
		}
	}
}

func TestWords(t *testing.T) {
	words := NewVM(Config{}).Words()
	for _, w := range []string{"jptr", "jval", "now", "none", "either"} {
		n := sort.SearchStrings(words, w)
		if n == len(words) || words[n] != w {
			t.Errorf("Words() lacks %s", w)
		}
	}
	if !sort.StringsAreSorted(words) {
		t.Error("Words() not sorted")
	}
}
