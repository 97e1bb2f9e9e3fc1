// Package table turns JSON resource documents into rows and columns
// described by manifest views.
package table

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iancoleman/strcase"
	"github.com/tliron/commonlog"

	"github.com/chazu/kutes/jsondoc"
	"github.com/chazu/kutes/manifest"
	"github.com/chazu/kutes/vm"
)

var log = commonlog.GetLogger("kutes.table")

// TimeStyle selects how time columns are shown.
type TimeStyle int

const (
	TimeShort    TimeStyle = iota // "3d4h"
	TimeRaw                       // the timestamp as stored
	TimeRelative                  // "3 days ago"
)

// ParseTimeStyle maps "short", "raw" or "relative" to a TimeStyle.
func ParseTimeStyle(s string) (TimeStyle, error) {
	switch s {
	case "short", "":
		return TimeShort, nil
	case "raw":
		return TimeRaw, nil
	case "relative":
		return TimeRelative, nil
	}
	return 0, fmt.Errorf("unknown time style %q", s)
}

type column struct {
	manifest.Column
	header string
	script *vm.Script
}

// View is a manifest view prepared for rendering. Expression columns are
// compiled once, on the interpreter given to NewView, and run per row.
type View struct {
	Kind      string
	TimeStyle TimeStyle
	Now       func() time.Time

	columns []column
	interp  *vm.Interpreter
}

// NewView compiles the columns of mv. interp may be nil when no column
// uses an expression.
func NewView(interp *vm.Interpreter, mv manifest.View) (*View, error) {
	if err := mv.Validate(); err != nil {
		return nil, fmt.Errorf("view %s: %w", mv.Kind, err)
	}
	v := &View{Kind: mv.Kind, Now: time.Now, interp: interp}
	for n, c := range mv.Columns {
		col := column{Column: c, header: c.Display}
		if col.header == "" {
			col.header = defaultHeader(c, n)
		}
		if c.Expr != "" {
			if interp == nil {
				return nil, fmt.Errorf("view %s: column %s needs an interpreter", mv.Kind, col.header)
			}
			s, err := interp.Compile(c.Expr)
			if err != nil {
				return nil, fmt.Errorf("view %s: column %s: %w", mv.Kind, col.header, err)
			}
			col.script = s
		}
		v.columns = append(v.columns, col)
	}
	return v, nil
}

func defaultHeader(c manifest.Column, n int) string {
	if toks := jsondoc.Split(c.Path); len(toks) > 0 {
		return strcase.ToSnake(toks[len(toks)-1])
	}
	return fmt.Sprintf("column_%d", n)
}

// Headers returns the column headers in order.
func (v *View) Headers() []string {
	h := make([]string, len(v.columns))
	for n, c := range v.columns {
		h[n] = c.header
	}
	return h
}

// KindOf returns the kind of resource a document lists: the kind of the
// first item of a List, otherwise the document's own kind.
func KindOf(doc *jsondoc.Node) string {
	kind := doc.Get("kind").Str()
	if kind == "List" {
		if k := doc.Pointer("/items/0/kind").Str(); k != "" {
			return k
		}
	}
	return kind
}

// Rows returns the resources of a document: the elements of /items for
// a List, otherwise the document itself.
func Rows(doc *jsondoc.Node) []*jsondoc.Node {
	if doc.Get("kind").Str() != "List" {
		return []*jsondoc.Node{doc}
	}
	items := doc.Get("items")
	rows := make([]*jsondoc.Node, 0, items.Len())
	for n := 0; n < items.Len(); n++ {
		rows = append(rows, items.Index(n))
	}
	return rows
}

// Build renders every resource of doc through the view.
func (v *View) Build(doc *jsondoc.Node) (*Table, error) {
	t := &Table{Kind: v.Kind, Headers: v.Headers(), Primary: -1}
	for n, c := range v.columns {
		if c.Primary {
			t.Primary = n
		}
		t.Frozen = append(t.Frozen, c.Freeze)
	}

	if v.interp != nil {
		saved := v.interp.Root()
		defer v.interp.SetRoot(saved)
	}
	now := v.Now()
	for r, res := range Rows(doc) {
		row := make([]string, len(v.columns))
		for n, c := range v.columns {
			node, err := v.value(c, res)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r, c.header, err)
			}
			row[n] = v.render(c.Type, node, now)
		}
		t.Rows = append(t.Rows, row)
	}
	log.Debugf("built %s table: %d rows, %d columns", v.Kind, len(t.Rows), len(t.Headers))
	return t, nil
}

func (v *View) value(c column, res *jsondoc.Node) (*jsondoc.Node, error) {
	if c.script == nil {
		return res.Pointer(c.Path), nil
	}
	v.interp.SetRoot(res)
	r, err := v.interp.Run(c.script)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case vm.KindString:
		return jsondoc.NewString(r.Str()), nil
	case vm.KindInt:
		return jsondoc.NewInt(r.Int()), nil
	case vm.KindBool:
		return jsondoc.NewBool(r.Bool()), nil
	case vm.KindDouble:
		return jsondoc.NewReal(r.Double()), nil
	case vm.KindJSON:
		return r.Node(), nil
	case vm.KindUnset:
		return nil, nil
	}
	return jsondoc.NewString(r.String()), nil
}

// render formats a node as the column type. Missing values and values of
// the wrong JSON type render empty.
func (v *View) render(typ manifest.ColumnType, n *jsondoc.Node, now time.Time) string {
	k := n.Kind()
	switch typ {
	case manifest.TypeBool:
		if k == jsondoc.KindBool {
			return strconv.FormatBool(n.Bool())
		}
	case manifest.TypeUint:
		if n.IsInteger() {
			return strconv.FormatUint(n.Uint(), 10)
		}
	case manifest.TypeSint:
		if n.IsInteger() {
			return strconv.FormatInt(n.Int(), 10)
		}
	case manifest.TypeInt:
		if n.IsInteger() {
			return strconv.FormatInt(int64(int32(n.Int())), 10)
		}
	case manifest.TypeNum:
		if n.IsInteger() || k == jsondoc.KindReal {
			return strconv.FormatFloat(n.Float(), 'f', 2, 64)
		}
	case manifest.TypeStr:
		return n.Str()
	case manifest.TypeTime:
		return v.renderTime(n.Str(), now)
	}
	return ""
}

func (v *View) renderTime(s string, now time.Time) string {
	if s == "" || v.TimeStyle == TimeRaw {
		return s
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	if v.TimeStyle == TimeRelative {
		return humanize.RelTime(t, now, "ago", "from now")
	}
	return ShortDuration(now.Sub(t))
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

// Table is a rendered view.
type Table struct {
	Kind    string     `cbor:"kind" json:"kind"`
	Headers []string   `cbor:"headers" json:"headers"`
	Rows    [][]string `cbor:"rows" json:"rows"`
	Primary int        `cbor:"primary" json:"primary"`
	Frozen  []bool     `cbor:"frozen" json:"frozen"`
}

// SortByPrimary orders rows by the primary column. Tables without a
// primary column are left as they are.
func (t *Table) SortByPrimary() {
	if t.Primary < 0 {
		return
	}
	p := t.Primary
	sort.SliceStable(t.Rows, func(a, b int) bool { return t.Rows[a][p] < t.Rows[b][p] })
}

// Select keeps the frozen columns and the columns named in headers, in
// table order. Unknown names are an error.
func (t *Table) Select(headers ...string) error {
	if len(headers) == 0 {
		return nil
	}
	want := make(map[string]bool, len(headers))
	for _, h := range headers {
		want[h] = true
	}
	var keep []int
	for n, h := range t.Headers {
		if t.Frozen[n] || want[h] {
			keep = append(keep, n)
			delete(want, h)
		}
	}
	for h := range want {
		return fmt.Errorf("no column %q", h)
	}

	pick := func(src []string) []string {
		out := make([]string, len(keep))
		for n, k := range keep {
			out[n] = src[k]
		}
		return out
	}
	frozen := make([]bool, len(keep))
	primary := -1
	for n, k := range keep {
		frozen[n] = t.Frozen[k]
		if k == t.Primary {
			primary = n
		}
	}
	for r, row := range t.Rows {
		t.Rows[r] = pick(row)
	}
	t.Headers = pick(t.Headers)
	t.Frozen = frozen
	t.Primary = primary
	return nil
}
