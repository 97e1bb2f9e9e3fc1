package table

import (
	"bufio"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/mattn/go-runewidth"
)

const columnGap = "   "

// TextOptions adjusts WriteText output.
type TextOptions struct {
	// Header, when set, decorates each padded header cell.
	Header func(string) string
	// NoHeaders omits the header line.
	NoHeaders bool
}

// WriteText writes the table as aligned columns. Widths are measured in
// terminal cells, so wide characters line up.
func (t *Table) WriteText(w io.Writer, opts TextOptions) error {
	widths := make([]int, len(t.Headers))
	for n, h := range t.Headers {
		widths[n] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for n, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[n] {
				widths[n] = cw
			}
		}
	}

	bw := bufio.NewWriter(w)
	line := func(cells []string, decorate func(string) string) {
		var sb strings.Builder
		for n, cell := range cells {
			last := n == len(cells)-1
			if !last {
				cell = runewidth.FillRight(cell, widths[n])
			}
			if decorate != nil {
				cell = decorate(cell)
			}
			sb.WriteString(cell)
			if !last {
				sb.WriteString(columnGap)
			}
		}
		bw.WriteString(strings.TrimRight(sb.String(), " "))
		bw.WriteByte('\n')
	}

	if !opts.NoHeaders {
		line(t.Headers, opts.Header)
	}
	for _, row := range t.Rows {
		line(row, nil)
	}
	return bw.Flush()
}

// WriteCBOR writes the table as one CBOR map.
func (t *Table) WriteCBOR(w io.Writer) error {
	return cbor.NewEncoder(w).Encode(t)
}

// ReadCBOR decodes a table written by WriteCBOR.
func ReadCBOR(r io.Reader) (*Table, error) {
	var t Table
	if err := cbor.NewDecoder(r).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
