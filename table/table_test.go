package table

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/kutes/jsondoc"
	"github.com/chazu/kutes/manifest"
	"github.com/chazu/kutes/vm"
)

const podList = `{
  "kind": "List",
  "items": [
    {"kind": "Pod", "metadata": {"name": "web-1", "creationTimestamp": "2024-03-01T10:00:00Z"},
     "spec": {"priority": 5, "nodeName": "n1"}, "status": {"phase": "Running", "ready": true, "load": 0.456}},
    {"kind": "Pod", "metadata": {"name": "db-0", "creationTimestamp": "2024-02-20T12:00:00Z"},
     "spec": {"priority": 0}, "status": {"phase": "Pending", "ready": false, "load": 2}}
  ]
}`

var fixedNow = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func parse(t *testing.T, text string) *jsondoc.Node {
	t.Helper()
	doc, err := jsondoc.Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc.Root
}

func newView(t *testing.T, interp *vm.Interpreter, mv manifest.View) *View {
	t.Helper()
	v, err := NewView(interp, mv)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	v.Now = func() time.Time { return fixedNow }
	return v
}

func TestDefaultPodView(t *testing.T) {
	doc := parse(t, podList)
	if k := KindOf(doc); k != "Pod" {
		t.Fatalf("KindOf = %q, want Pod", k)
	}
	mv, _ := manifest.Default().ViewFor("Pod")
	tbl, err := newView(t, nil, mv).Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := &Table{
		Kind:    "Pod",
		Headers: []string{"name", "age", "priority", "status"},
		Rows: [][]string{
			{"web-1", "150m", "5", "Running"},
			{"db-0", "10d", "0", "Pending"},
		},
		Primary: 0,
		Frozen:  []bool{true, false, false, false},
	}
	if diff := cmp.Diff(want, tbl); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}

	tbl.SortByPrimary()
	if tbl.Rows[0][0] != "db-0" {
		t.Errorf("after sort first row = %v, want db-0", tbl.Rows[0])
	}
}

func TestColumnTypes(t *testing.T) {
	doc := parse(t, podList)
	mv := manifest.View{
		Kind: "Pod",
		Columns: []manifest.Column{
			{Path: "/status/ready", Type: manifest.TypeBool},
			{Path: "/status/load", Type: manifest.TypeNum},
			{Path: "/spec/priority", Type: manifest.TypeSint},
			{Path: "/metadata/creationTimestamp", Type: manifest.TypeTime},
			{Path: "/spec/nodeName", Type: manifest.TypeStr},
			{Path: "/spec/nodeName", Type: manifest.TypeUint},
		},
	}
	v := newView(t, nil, mv)
	v.TimeStyle = TimeRaw
	tbl, err := v.Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := [][]string{
		{"true", "0.46", "5", "2024-03-01T10:00:00Z", "n1", ""},
		{"false", "2.00", "0", "2024-02-20T12:00:00Z", "", ""},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	wantHeaders := []string{"ready", "load", "priority", "creation_timestamp", "node_name", "node_name"}
	if diff := cmp.Diff(wantHeaders, tbl.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestExpressionColumns(t *testing.T) {
	interp := vm.NewVM(vm.Config{}).NewInterpreter()
	other := parse(t, `{"kind":"Other"}`)
	interp.SetRoot(other)

	mv := manifest.View{
		Kind: "Pod",
		Columns: []manifest.Column{
			{Display: "name", Path: "/metadata/name", Type: manifest.TypeStr},
			{Display: "where", Expr: `n: jval jptr {/spec/nodeName} either value? 'n [n] ["-"]`, Type: manifest.TypeStr},
			{Display: "up", Expr: `jval jptr {/status/ready}`, Type: manifest.TypeBool},
		},
	}
	v := newView(t, interp, mv)
	tbl, err := v.Build(parse(t, podList))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := [][]string{{"web-1", "n1", "true"}, {"db-0", "-", "false"}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if interp.Root() != other {
		t.Error("Build did not restore the interpreter root")
	}
	if n := interp.CachedScripts(); n != 2 {
		t.Errorf("cached scripts = %d, want 2", n)
	}
}

func TestExpressionColumnErrors(t *testing.T) {
	mv := manifest.View{Kind: "Pod", Columns: []manifest.Column{{Expr: `throw "x"`}}}
	if _, err := NewView(nil, mv); err == nil {
		t.Error("NewView without interpreter succeeded")
	}

	interp := vm.NewVM(vm.Config{}).NewInterpreter()
	v := newView(t, interp, mv)
	if _, err := v.Build(parse(t, podList)); err == nil || !strings.Contains(err.Error(), "row 0") {
		t.Errorf("Build error = %v, want row 0 failure", err)
	}

	mv.Columns[0].Expr = `[unclosed`
	if _, err := NewView(interp, mv); err == nil {
		t.Error("NewView with bad expression succeeded")
	}
}

func TestSingleResourceRow(t *testing.T) {
	doc := parse(t, `{"kind":"Pod","metadata":{"name":"solo"}}`)
	rows := Rows(doc)
	if len(rows) != 1 || rows[0] != doc {
		t.Fatalf("Rows = %v, want the document itself", rows)
	}
	if k := KindOf(doc); k != "Pod" {
		t.Errorf("KindOf = %q, want Pod", k)
	}
}

func TestTimeStyles(t *testing.T) {
	v := &View{Now: func() time.Time { return fixedNow }}
	ts := jsondoc.NewString("2024-02-29T12:30:00Z")
	tests := []struct {
		style TimeStyle
		want  string
	}{
		{TimeShort, "24h"},
		{TimeRaw, "2024-02-29T12:30:00Z"},
		{TimeRelative, "1 day ago"},
	}
	for _, tt := range tests {
		v.TimeStyle = tt.style
		if got := v.render(manifest.TypeTime, ts, fixedNow); got != tt.want {
			t.Errorf("style %d = %q, want %q", tt.style, got, tt.want)
		}
	}
	if got := v.render(manifest.TypeTime, jsondoc.NewString("yesterday"), fixedNow); got != "yesterday" {
		t.Errorf("unparsable time = %q, want it unchanged", got)
	}
}

func TestShortDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{-5 * time.Second, "0s"},
		{90 * time.Second, "90s"},
		{5*time.Minute + 7*time.Second, "5m7s"},
		{5 * time.Minute, "5m"},
		{150 * time.Minute, "150m"},
		{3 * time.Hour, "3h"},
		{3*time.Hour + 20*time.Minute, "3h20m"},
		{30 * time.Hour, "30h"},
		{3*24*time.Hour + 4*time.Hour, "3d4h"},
		{100 * 24 * time.Hour, "100d"},
		{(3*365 + 10) * 24 * time.Hour, "3y10d"},
		{10 * 365 * 24 * time.Hour, "10y"},
	}
	for _, tt := range tests {
		if got := ShortDuration(tt.d); got != tt.want {
			t.Errorf("ShortDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSelect(t *testing.T) {
	mv, _ := manifest.Default().ViewFor("Pod")
	tbl, err := newView(t, nil, mv).Build(parse(t, podList))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := tbl.Select("status"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if diff := cmp.Diff([]string{"name", "status"}, tbl.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"db-0", "Pending"}, tbl.Rows[1]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if tbl.Primary != 0 {
		t.Errorf("primary = %d, want 0", tbl.Primary)
	}
	if err := tbl.Select("nope"); err == nil {
		t.Error("Select(nope) succeeded")
	}
}

func TestWriteText(t *testing.T) {
	tbl := &Table{
		Headers: []string{"name", "note"},
		Rows:    [][]string{{"日本", "x"}, {"a", "longer"}},
		Frozen:  []bool{false, false},
	}
	var buf bytes.Buffer
	if err := tbl.WriteText(&buf, TextOptions{Header: strings.ToUpper}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	want := "NAME   NOTE\n日本   x\na      longer\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteText =\n%s\nwant\n%s", got, want)
	}

	buf.Reset()
	tbl.WriteText(&buf, TextOptions{NoHeaders: true})
	if strings.Contains(buf.String(), "name") {
		t.Errorf("NoHeaders output has headers: %q", buf.String())
	}
}

func TestCBORRoundTrip(t *testing.T) {
	mv, _ := manifest.Default().ViewFor("Pod")
	tbl, err := newView(t, nil, mv).Build(parse(t, podList))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if err := tbl.WriteCBOR(&buf); err != nil {
		t.Fatalf("WriteCBOR: %v", err)
	}
	got, err := ReadCBOR(&buf)
	if err != nil {
		t.Fatalf("ReadCBOR: %v", err)
	}
	if diff := cmp.Diff(tbl, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
