package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/kutes/jsondoc"
)

const podsDoc = `{"kind":"List","items":[{"kind":"Pod","status":{"phase":"Running"}},{"kind":"Pod","status":{"phase":"Pending"}}],"meta":{"name":"web","empty":"","replicas":3,"ratio":0.5,"ready":true,"note":null}}`

func newTestInterpreter(t *testing.T, doc string) *Interpreter {
	t.Helper()
	i := NewVM(Config{}).NewInterpreter()
	if doc != "" {
		d, err := jsondoc.Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		i.SetRoot(d.Root)
	}
	return i
}

func mustEval(t *testing.T, i *Interpreter, src string) Result {
	t.Helper()
	r, err := i.Evaluate(src)
	if err != nil {
		t.Fatalf("Evaluate(%q) error: %v", src, err)
	}
	return r
}

func evalError(t *testing.T, i *Interpreter, src string) *Error {
	t.Helper()
	r, err := i.Evaluate(src)
	if err == nil {
		t.Fatalf("Evaluate(%q) = %s, want error", src, r)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("Evaluate(%q) error %T is not *Error", src, err)
	}
	if r.Kind != KindError {
		t.Errorf("Evaluate(%q) kind = %v, want error", src, r.Kind)
	}
	return e
}

// ---------------------------------------------------------------------------
// End to end
// ---------------------------------------------------------------------------

func TestEndToEndPhaseCount(t *testing.T) {
	i := newTestInterpreter(t, `{"items":[{"status":{"phase":"Running"}},{"status":{"phase":"Pending"}}]}`)
	src := `ait: jait {/items} nxt: janv ait r: 0 t: 0 while [value? 'nxt][if jval jptr/root {/status/phase} nxt {Running} [++ r] ++ t nxt: janv ait] join r ['/' t]`

	r := mustEval(t, i, src)
	if r.Kind != KindString || r.Str() != "1/2" {
		t.Errorf("result = %v %q, want string \"1/2\"", r.Kind, r.Str())
	}
	if i.StackDepth() != 0 || i.FrameDepth() != 0 {
		t.Errorf("after evaluation stack=%d frames=%d, want 0 0", i.StackDepth(), i.FrameDepth())
	}

	// Same interpreter, same script: the compiled form is reused.
	r = mustEval(t, i, src)
	if r.Str() != "1/2" {
		t.Errorf("second run = %q, want \"1/2\"", r.Str())
	}
	if i.CachedScripts() != 1 {
		t.Errorf("CachedScripts() = %d, want 1", i.CachedScripts())
	}
}

func TestScriptCacheLimit(t *testing.T) {
	i := NewVM(Config{MaxScripts: 2}).NewInterpreter()
	first, err := i.Compile(`n: 1`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mustEval(t, i, `2`)
	if n := i.CachedScripts(); n != 2 {
		t.Fatalf("CachedScripts() = %d, want 2", n)
	}
	mustEval(t, i, `3`)
	if n := i.CachedScripts(); n != 1 {
		t.Errorf("CachedScripts() after overflow = %d, want 1", n)
	}

	r, err := i.Run(first)
	if err != nil || r.Int() != 1 {
		t.Errorf("Run(dropped script) = %v, %v, want 1", r, err)
	}
	again, err := i.Compile(`n: 1`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if again == first {
		t.Error("dropped script was still cached")
	}
}

func TestResultKinds(t *testing.T) {
	i := newTestInterpreter(t, podsDoc)
	tests := []struct {
		src  string
		kind Kind
		form string
	}{
		{`"abc"`, KindString, "abc"},
		{`42`, KindInt, "42"},
		{`true`, KindBool, "true"},
		{`1.5`, KindDouble, "1.5"},
		{`jptr {/meta/replicas}`, KindJSON, "3"},
		{`none`, KindOther, "none"},
		{`[1 2]`, KindOther, "1 2"},
		{``, KindUnset, ""},
		{`jptr {/nothing}`, KindUnset, ""},
	}
	for _, tt := range tests {
		r := mustEval(t, i, tt.src)
		if r.Kind != tt.kind {
			t.Errorf("%q kind = %v, want %v", tt.src, r.Kind, tt.kind)
		}
		if got := r.String(); got != tt.form {
			t.Errorf("%q form = %q, want %q", tt.src, got, tt.form)
		}
	}
}

// ---------------------------------------------------------------------------
// Words and assignment
// ---------------------------------------------------------------------------

func TestSetWordChain(t *testing.T) {
	i := newTestInterpreter(t, "")
	r := mustEval(t, i, `a: b: 3 join a b`)
	if r.Str() != "33" {
		t.Errorf("result = %q, want \"33\"", r.Str())
	}
}

func TestThreadWordsPersist(t *testing.T) {
	i := newTestInterpreter(t, "")
	mustEval(t, i, `x: 5`)
	if r := mustEval(t, i, `x`); r.Int() != 5 {
		t.Errorf("x = %s, want 5", r)
	}
}

func TestUnsetWord(t *testing.T) {
	i := newTestInterpreter(t, "")
	e := evalError(t, i, `foo`)
	if e.Kind != ErrScript || !strings.Contains(e.Message, "unset word 'foo") {
		t.Errorf("error = %v, want unset word script error", e)
	}
	// The interpreter is usable after a failure.
	if r := mustEval(t, i, `1`); r.Int() != 1 {
		t.Errorf("after error result = %s, want 1", r)
	}
}

func TestEndOfBlock(t *testing.T) {
	i := newTestInterpreter(t, "")
	e := evalError(t, i, `join 1`)
	if e.Message != "end of block" {
		t.Errorf("message = %q, want \"end of block\"", e.Message)
	}
	e = evalError(t, i, `a:`)
	if e.Message != "end of block" {
		t.Errorf("message = %q, want \"end of block\"", e.Message)
	}
}

func TestProtectedEnvironment(t *testing.T) {
	i := newTestInterpreter(t, "")
	e := evalError(t, i, `set 'join 1`)
	if !strings.Contains(e.Message, "word 'join is protected") {
		t.Errorf("message = %q, want protected word", e.Message)
	}
}

func TestValueQ(t *testing.T) {
	i := newTestInterpreter(t, "")
	tests := []struct {
		src  string
		want bool
	}{
		{`v: 1 value? 'v`, true},
		{`value? 'never-set`, false},
		{`value? 'join`, true},
	}
	for _, tt := range tests {
		if r := mustEval(t, i, tt.src); r.Bool() != tt.want {
			t.Errorf("%q = %s, want %v", tt.src, r, tt.want)
		}
	}
}

func TestStepWords(t *testing.T) {
	i := newTestInterpreter(t, "")
	r := mustEval(t, i, `n: 1 old: ++ n join old ["," n]`)
	if r.Str() != "1,2" {
		t.Errorf("++ = %q, want \"1,2\"", r.Str())
	}
	r = mustEval(t, i, `n: 1 -- n -- n n`)
	if r.Int() != -1 {
		t.Errorf("-- = %s, want -1", r)
	}
	e := evalError(t, i, `s: "x" ++ s`)
	if e.Kind != ErrType {
		t.Errorf("++ on string kind = %v, want type", e.Kind)
	}
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func TestConditionals(t *testing.T) {
	i := newTestInterpreter(t, "")
	tests := []struct {
		src  string
		want string
	}{
		{`if true [1]`, "1"},
		{`if false [1]`, "none"},
		{`if none [1]`, "none"},
		{`either 0 ["yes"] ["no"]`, "yes"},
		{`either false ["yes"] ["no"]`, "no"},
		{`either true 4 5`, "4"},
		{`if "a" "a" ["match"]`, "match"},
		{`if "a" "b" ["match"]`, "none"},
		{`x: if 2 2 [7] x`, "7"},
		{`not none`, "true"},
		{`equal? 2 2.0`, "true"},
		{`equal? [1 "a"] [1 "a"]`, "true"},
		{`equal? 'a 'b`, "false"},
		{`do [1 2 3]`, "3"},
		{`do (4)`, "4"},
		{`do 5`, "5"},
		{`type? "s"`, "string!"},
		{`type? jait {/x}`, "unset!"},
	}
	for _, tt := range tests {
		if got := mustEval(t, i, tt.src).String(); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestIfMatchNeedsBlock(t *testing.T) {
	i := newTestInterpreter(t, "")
	e := evalError(t, i, `if 1 1 2`)
	if e.Kind != ErrType || e.Message != "unexpected int! for argument 3" || e.ArgN != 3 {
		t.Errorf("error = %+v, want type error for argument 3", e)
	}
}

func TestWhileLoop(t *testing.T) {
	i := newTestInterpreter(t, "")
	r := mustEval(t, i, `n: 0 s: "" while [not equal? n 3][s: join s n ++ n] s`)
	if r.Str() != "012" {
		t.Errorf("result = %q, want \"012\"", r.Str())
	}
	r = mustEval(t, i, `while [false][1]`)
	if r.Kind != KindUnset {
		t.Errorf("empty loop kind = %v, want unset", r.Kind)
	}
}

func TestReduceAndJoin(t *testing.T) {
	i := newTestInterpreter(t, "")
	tests := []struct {
		src  string
		want string
	}{
		{`mold reduce [1 join "a" "b" 'w]`, `[1 "ab" w]`},
		{`join "a" 1`, "a1"},
		{`join 1 [2 "-" 3]`, "12-3"},
		{`mold join [1] [2 3]`, "[1 2 3]"},
		{`join "x" mold "y"`, `x"y"`},
	}
	for _, tt := range tests {
		if got := mustEval(t, i, tt.src).String(); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.src, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

func TestCatchThrow(t *testing.T) {
	i := newTestInterpreter(t, "")
	tests := []struct {
		src  string
		want string
	}{
		{`catch [throw 5 1]`, "5"},
		{`catch [1 2]`, "2"},
		{`catch [do [do [throw "deep"]]]`, "deep"},
		{`join "a" catch [join 1 [2 throw "b"]]`, "ab"},
		{`catch [catch [throw 1] throw 2]`, "2"},
	}
	for _, tt := range tests {
		if got := mustEval(t, i, tt.src).String(); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.src, got, tt.want)
		}
		if i.StackDepth() != 0 || i.FrameDepth() != 0 {
			t.Errorf("%q left stack=%d frames=%d", tt.src, i.StackDepth(), i.FrameDepth())
		}
	}
}

func TestCatchPassesErrors(t *testing.T) {
	i := newTestInterpreter(t, "")
	e := evalError(t, i, `catch [undefined-word]`)
	if e.Kind != ErrScript {
		t.Errorf("kind = %v, want script", e.Kind)
	}
}

func TestTry(t *testing.T) {
	i := newTestInterpreter(t, "")
	r, err := i.Evaluate(`try [while 1 [2]]`)
	if err != nil {
		t.Fatalf("try returned error %v", err)
	}
	if r.Kind != KindError || r.Err == nil || r.Err.Kind != ErrType {
		t.Fatalf("try result = %v %v, want type error value", r.Kind, r.Err)
	}

	r = mustEval(t, i, `type? try [1]`)
	if r.String() != "int!" {
		t.Errorf("try without error = %s, want int!", r)
	}

	// try does not absorb thrown values.
	e := evalError(t, i, `try [throw 3]`)
	if e.Kind != ErrThrow {
		t.Errorf("kind = %v, want throw", e.Kind)
	}
}

func TestUnwindRestoresStack(t *testing.T) {
	vm := NewVM(Config{})
	depth := func(i *Interpreter, a Args, res *Cell) error {
		*res = Int(int64(i.StackDepth()))
		return nil
	}
	frames := func(i *Interpreter, a Args, res *Cell) error {
		*res = Int(int64(i.FrameDepth()))
		return nil
	}
	if err := vm.Define("depth", depth); err != nil {
		t.Fatal(err)
	}
	if err := vm.Define("frames", frames); err != nil {
		t.Fatal(err)
	}
	i := vm.NewInterpreter()

	for _, body := range []string{
		`catch [do [do [do [throw 1]]]]`,
		`try [do [do [jptr 5]]]`,
		`catch [join "a" [1 2 throw 3]]`,
		`catch [g: func [x] [do [throw x]] g 1]`,
		`h: func [] [catch [return 1] 2] h`,
	} {
		src := `f: func [] [a: depth b: frames ` + body + ` c: depth d: frames join "" [a "/" b " " c "/" d]] f`
		r := mustEval(t, i, src)
		before, after, _ := strings.Cut(r.Str(), " ")
		if before != after || before == "0/0" {
			t.Errorf("%s: depth/frames before %s, after %s", body, before, after)
		}
	}
}

func TestUncaughtThrow(t *testing.T) {
	i := newTestInterpreter(t, "")
	e := evalError(t, i, `throw 7`)
	if e.Kind != ErrThrow {
		t.Fatalf("kind = %v, want throw", e.Kind)
	}
	if e.Value.Type() != TypeInt || e.Value.Int() != 7 {
		t.Errorf("thrown value = %v, want 7", i.VM().Mold(e.Value))
	}
	if !i.Exception().IsUnset() {
		t.Errorf("exception not reset after failed evaluation")
	}
}

func TestArgumentTypeError(t *testing.T) {
	i := newTestInterpreter(t, "")
	tests := []struct {
		src  string
		argN int
		msg  string
	}{
		{`while 1 [2]`, 1, "unexpected int! for argument 1"},
		{`while [false] 2`, 2, "unexpected int! for argument 2"},
		{`jait 5`, 1, "unexpected int! for argument 1"},
		{`++ 5`, 1, "unexpected int! for argument 1"},
	}
	for _, tt := range tests {
		e := evalError(t, i, tt.src)
		if e.Kind != ErrType || e.ArgN != tt.argN || e.Message != tt.msg {
			t.Errorf("%q error = %+v, want type error %q at %d", tt.src, e, tt.msg, tt.argN)
		}
	}
}

func TestErrorWhere(t *testing.T) {
	i := newTestInterpreter(t, "")
	e := evalError(t, i, `a: 1 b: missing c: 2`)
	if !strings.Contains(e.Error(), "near") || !strings.Contains(e.Where, "missing") {
		t.Errorf("Error() = %q, want location mentioning missing", e.Error())
	}
}

func TestFrameOverflowIsNotCatchable(t *testing.T) {
	i := NewVM(Config{MaxFrames: 16}).NewInterpreter()
	for _, src := range []string{
		`f: func [n] [f n] f 1`,
		`f: func [n] [f n] catch [f 1]`,
		`f: func [n] [f n] try [f 1]`,
	} {
		e := evalError(t, i, src)
		if e.Kind != ErrInternal || e.Message != "EvalFrame overflow" {
			t.Errorf("%q error = %v, want internal EvalFrame overflow", src, e)
		}
		if i.FrameDepth() != 0 || i.StackDepth() != 0 {
			t.Errorf("%q left frames=%d stack=%d", src, i.FrameDepth(), i.StackDepth())
		}
	}
}

func TestStackOverflowIsCatchable(t *testing.T) {
	i := NewVM(Config{MaxStack: 16}).NewInterpreter()
	e := evalError(t, i, `f: func [n] [f n] f 1`)
	if e.Kind != ErrScript || e.Message != "stack overflow" {
		t.Fatalf("error = %v, want script stack overflow", e)
	}
	r := mustEval(t, i, `try [f 1]`)
	if r.Kind != KindError || r.Err.Message != "stack overflow" {
		t.Errorf("try result = %v %v, want caught stack overflow", r.Kind, r.Err)
	}
}

// ---------------------------------------------------------------------------
// Contexts
// ---------------------------------------------------------------------------

func TestContextNative(t *testing.T) {
	i := newTestInterpreter(t, "")
	tests := []struct {
		src  string
		want string
	}{
		{`c: context [a: 1 b: join "x" a] c/b`, "x1"},
		{`c: context [a: 1] c/a: 5 c/a`, "5"},
		{`c: context [a: 1 b: 2] mold c`, "context [a: 1 b: 2]"},
		{`a: 10 c: context [a: 1] a`, "10"},
	}
	for _, tt := range tests {
		if got := mustEval(t, i, tt.src).String(); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.src, got, tt.want)
		}
	}
	e := evalError(t, i, `c: context [a: 1] c/zz`)
	if !strings.Contains(e.Message, "context has no word 'zz") {
		t.Errorf("message = %q", e.Message)
	}
}
