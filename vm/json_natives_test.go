package vm

import (
	"strings"
	"testing"
	"time"
)

func TestBridgeLookups(t *testing.T) {
	i := newTestInterpreter(t, podsDoc)
	tests := []struct {
		src  string
		kind Kind
		want string
	}{
		{`jval jptr {/items/0/kind}`, KindString, "Pod"},
		{`jval jptr {/meta/replicas}`, KindInt, "3"},
		{`jval jptr {/meta/ratio}`, KindDouble, "0.5"},
		{`jval jptr {/meta/ready}`, KindBool, "true"},
		{`jval jptr {/meta/note}`, KindUnset, ""},
		{`jval jptr {/meta/empty}`, KindUnset, ""},
		{`jval jptr {/meta}`, KindJSON, `{"name":"web","empty":"","replicas":3,"ratio":0.5,"ready":true,"note":null}`},
		{`jptr {/missing}`, KindUnset, ""},
		{`jptr {}`, KindUnset, ""},
		{`jptr {items}`, KindUnset, ""},
		{`jlen {/items}`, KindInt, "2"},
		{`jlen {/meta}`, KindInt, "6"},
		{`jlen {/meta/name}`, KindInt, "3"},
		{`jlen {/missing}`, KindUnset, ""},
		{`jlen/ptr jptr {/items}`, KindInt, "2"},
		{`jlen/ptr {/items}`, KindUnset, ""},
		{`jval jptr/root {/kind} jptr {/items/1}`, KindString, "Pod"},
		{`jval jptr/root {/kind} 5`, KindUnset, ""},
	}
	for _, tt := range tests {
		r := mustEval(t, i, tt.src)
		if r.Kind != tt.kind {
			t.Errorf("%q kind = %v, want %v", tt.src, r.Kind, tt.kind)
			continue
		}
		if got := r.String(); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestArrayIteratorExhaustion(t *testing.T) {
	i := newTestInterpreter(t, podsDoc)
	r := mustEval(t, i, `it: jait {/items} n: 0 while [v: janv it value? 'v][++ n] n`)
	if r.Int() != 2 {
		t.Errorf("elements visited = %s, want 2", r)
	}

	// Elements come back in document order.
	r = mustEval(t, i, `it: jait {/items} out: "" while [v: janv it value? 'v][out: join out [jval jptr/root {/status/phase} v ","]] out`)
	if r.Str() != "Running,Pending," {
		t.Errorf("element order = %q, want \"Running,Pending,\"", r.Str())
	}

	// Exhausted iterators stay exhausted.
	r = mustEval(t, i, `it: jait {/items} janv it janv it a: janv it b: janv it reduce [value? 'a value? 'b]`)
	if got := r.String(); got != "false false" {
		t.Errorf("after exhaustion = %q, want \"false false\"", got)
	}

	// A fresh iterator starts over.
	r = mustEval(t, i, `jval jptr/root {/status/phase} janv jait {/items}`)
	if r.Str() != "Running" {
		t.Errorf("fresh iterator first element = %q, want Running", r.Str())
	}
}

func TestObjectIterator(t *testing.T) {
	i := newTestInterpreter(t, podsDoc)
	r := mustEval(t, i, `o: joit {/meta} k: jonk o join jval k ["=" jval jonv k]`)
	if r.Str() != "name=web" {
		t.Errorf("first member = %q, want \"name=web\"", r.Str())
	}
	r = mustEval(t, i, `o: joit {/meta} keys: "" while [k: jonk o value? 'k][keys: join keys [jval k " "]] keys`)
	if r.Str() != "name empty replicas ratio ready note " {
		t.Errorf("keys = %q", r.Str())
	}
	r = mustEval(t, i, `o: joit/ptr jptr {/items/0/status} jval jonk o`)
	if r.Str() != "phase" {
		t.Errorf("joit/ptr key = %q, want phase", r.Str())
	}
}

func TestBridgeWrongHandleKinds(t *testing.T) {
	i := newTestInterpreter(t, podsDoc)
	for _, src := range []string{
		`janv jptr {/items}`,
		`janv joit {/meta}`,
		`jonk jait {/items}`,
		`jonv 5`,
		`jval 5`,
		`jval jait {/items}`,
		`jait {/meta}`,
		`joit {/items}`,
	} {
		r := mustEval(t, i, src)
		if r.Kind != KindUnset {
			t.Errorf("%q kind = %v, want unset", src, r.Kind)
		}
	}
}

func TestJrootRebinding(t *testing.T) {
	i := newTestInterpreter(t, podsDoc)
	r := mustEval(t, i, `jroot: jptr {/items/1} jval jptr {/status/phase}`)
	if r.Str() != "Pending" {
		t.Errorf("rebased lookup = %q, want Pending", r.Str())
	}

	// SetRoot resets the ambient root.
	doc := newTestInterpreter(t, podsDoc).Root()
	i.SetRoot(doc)
	r = mustEval(t, i, `jval jptr {/kind}`)
	if r.Str() != "List" {
		t.Errorf("after SetRoot = %q, want List", r.Str())
	}
}

func TestJvalTruncation(t *testing.T) {
	long := strings.Repeat("x", 300)
	multi := strings.Repeat("a", 254) + "é"
	i := newTestInterpreter(t, `{"long":"`+long+`","multi":"`+multi+`"}`)

	r := mustEval(t, i, `jval jptr {/long}`)
	if got := len(r.Str()); got != maxStringValue {
		t.Errorf("long string length = %d, want %d", got, maxStringValue)
	}
	r = mustEval(t, i, `jval jptr {/multi}`)
	if r.Str() != strings.Repeat("a", 254) {
		t.Errorf("multi-byte truncation kept %d bytes, want 254", len(r.Str()))
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "h"},
		{"héllo", 3, "hé"},
		{"日本", 4, "日"},
	}
	for _, tt := range tests {
		if got := truncateUTF8(tt.in, tt.limit); got != tt.want {
			t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestNow(t *testing.T) {
	i := newTestInterpreter(t, "")
	loc := time.FixedZone("X", 3*3600)
	i.SetClock(func() time.Time { return time.Date(2001, 2, 13, 17, 15, 16, 0, loc) })
	r := mustEval(t, i, `now`)
	if r.Str() != "2001-02-13T14:15:16Z" {
		t.Errorf("now = %q, want 2001-02-13T14:15:16Z", r.Str())
	}
}
