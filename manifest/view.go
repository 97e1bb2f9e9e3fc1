package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ColumnType selects how a column value is rendered.
type ColumnType int

const (
	TypeBool ColumnType = iota
	TypeUint
	TypeSint
	TypeInt
	TypeNum
	TypeStr
	TypeTime
)

var columnTypeNames = [...]string{"bool", "uint", "sint", "int", "num", "str", "time"}

func (t ColumnType) String() string {
	if t >= 0 && int(t) < len(columnTypeNames) {
		return columnTypeNames[t]
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType maps a type name such as "uint" to its ColumnType.
func ParseColumnType(name string) (ColumnType, error) {
	for n, s := range columnTypeNames {
		if s == name {
			return ColumnType(n), nil
		}
	}
	return 0, fmt.Errorf("unknown column type %q", name)
}

func (t *ColumnType) UnmarshalText(text []byte) error {
	v, err := ParseColumnType(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// View describes the table columns shown for one resource kind.
type View struct {
	Kind    string   `toml:"kind"`
	Columns []Column `toml:"columns"`
}

// Column reads one value from each resource, either by JSON pointer
// (Path) or by evaluating an expression (Expr) with the resource as
// the document root.
type Column struct {
	Display string     `toml:"display"`
	Path    string     `toml:"path"`
	Expr    string     `toml:"expr"`
	Type    ColumnType `toml:"type"`
	Primary bool       `toml:"primary"`
	Freeze  bool       `toml:"freeze"`
}

// Validate reports malformed columns.
func (v *View) Validate() error {
	if len(v.Columns) == 0 {
		return errors.New("view has no columns")
	}
	var errs []error
	primary := 0
	for n, c := range v.Columns {
		switch {
		case c.Path == "" && c.Expr == "":
			errs = append(errs, fmt.Errorf("column %d: needs path or expr", n))
		case c.Path != "" && c.Expr != "":
			errs = append(errs, fmt.Errorf("column %d: path and expr are exclusive", n))
		case c.Path != "" && !strings.HasPrefix(c.Path, "/"):
			errs = append(errs, fmt.Errorf("column %d: path %q must start with /", n, c.Path))
		}
		if c.Primary {
			primary++
		}
	}
	if primary > 1 {
		errs = append(errs, fmt.Errorf("%d primary columns, want at most 1", primary))
	}
	return errors.Join(errs...)
}

// DefaultPodView is used for Pod resources unless kutes.toml overrides it.
func DefaultPodView() View {
	return View{
		Kind: "Pod",
		Columns: []Column{
			{Display: "name", Path: "/metadata/name", Type: TypeStr, Primary: true, Freeze: true},
			{Display: "age", Path: "/metadata/creationTimestamp", Type: TypeTime},
			{Display: "priority", Path: "/spec/priority", Type: TypeUint},
			{Display: "status", Path: "/status/phase", Type: TypeStr},
		},
	}
}

// ViewFor returns the view configured for kind, falling back to the
// built-in views. The second result is false when no view applies.
func (m *Manifest) ViewFor(kind string) (View, bool) {
	for _, v := range m.Views {
		if v.Kind == kind {
			return v, true
		}
	}
	if kind == "Pod" {
		return DefaultPodView(), true
	}
	return View{}, false
}
