package vm

// Series is the shared backing store of blocks, parens, paths, and
// strings. Block variants use cells; strings use UTF-8 text.
//
// Series are shared by every cell that references them and live as long
// as any such cell is reachable.
type Series struct {
	cells []Cell
	text  []byte
}

// NewSeries returns an empty cell series with room for n cells.
func NewSeries(n int) *Series {
	return &Series{cells: make([]Cell, 0, n)}
}

// NewBlock returns a series holding cells.
func NewBlock(cells ...Cell) *Series {
	return &Series{cells: cells}
}

// NewText returns a text series holding s.
func NewText(s string) *Series {
	return &Series{text: []byte(s)}
}

// Len returns the number of cells, or bytes for text.
func (s *Series) Len() int {
	if s.text != nil {
		return len(s.text)
	}
	return len(s.cells)
}

// Append adds cells to the end of the series.
func (s *Series) Append(cells ...Cell) {
	s.cells = append(s.cells, cells...)
}

// AppendText adds text to a string series.
func (s *Series) AppendText(t string) {
	s.text = append(s.text, t...)
}

// At returns a pointer to cell i. The pointer is invalidated by Append.
func (s *Series) At(i int) *Cell {
	return &s.cells[i]
}

func (s *Series) cellsFrom(pos int) []Cell {
	if pos >= len(s.cells) {
		return nil
	}
	return s.cells[pos:]
}

func (s *Series) textFrom(pos int) string {
	if pos >= len(s.text) {
		return ""
	}
	return string(s.text[pos:])
}

// deepCopy copies the series and every nested block-like series.
// Strings stay shared. A series that contains itself is an error.
func (s *Series) deepCopy() (*Series, error) {
	return s.copyNested(make(map[*Series]bool))
}

func (s *Series) copyNested(open map[*Series]bool) (*Series, error) {
	if open[s] {
		return nil, scriptError("block contains itself")
	}
	open[s] = true
	defer delete(open, s)

	out := &Series{cells: make([]Cell, len(s.cells))}
	copy(out.cells, s.cells)
	for i := range out.cells {
		c := &out.cells[i]
		if c.typ.IsBlock() {
			ser, err := c.ser.copyNested(open)
			if err != nil {
				return nil, err
			}
			c.ser = ser
		}
	}
	return out, nil
}
