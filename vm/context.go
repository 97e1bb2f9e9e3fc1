package vm

import "sort"

// ---------------------------------------------------------------------------
// Context: atom -> value table
// ---------------------------------------------------------------------------

// Context maps atoms to value cells in insertion order.
//
// A sorted index over the first `sorted` entries gives binary-search
// lookup; entries appended after the last Sort are found by a linear scan,
// so Lookup is correct whether or not the context has been sorted.
type Context struct {
	atoms  []Atom
	cells  []Cell
	index  []int32 // entry numbers ordered by atom
	sorted int     // entries covered by index
	frozen bool
}

// NewContext returns an empty context with room for n entries.
func NewContext(n int) *Context {
	return &Context{
		atoms: make([]Atom, 0, n),
		cells: make([]Cell, 0, n),
	}
}

// Len returns the number of entries.
func (c *Context) Len() int { return len(c.atoms) }

// Lookup returns the entry number of atom, or -1.
func (c *Context) Lookup(atom Atom) int {
	idx := c.index
	n := sort.Search(len(idx), func(j int) bool { return c.atoms[idx[j]] >= atom })
	if n < len(idx) && c.atoms[idx[n]] == atom {
		return int(idx[n])
	}
	for j := c.sorted; j < len(c.atoms); j++ {
		if c.atoms[j] == atom {
			return j
		}
	}
	return -1
}

// Append adds a new entry holding unset and returns its number. The
// caller guarantees atom is not already present.
func (c *Context) Append(atom Atom) int {
	if c.frozen {
		panic("vm: append to frozen context")
	}
	c.atoms = append(c.atoms, atom)
	c.cells = append(c.cells, Unset())
	return len(c.atoms) - 1
}

// Intern returns the entry for atom, appending one if needed.
func (c *Context) Intern(atom Atom) int {
	if n := c.Lookup(atom); n >= 0 {
		return n
	}
	return c.Append(atom)
}

// Sort rebuilds the sorted index over every entry.
func (c *Context) Sort() {
	idx := make([]int32, len(c.atoms))
	for j := range idx {
		idx[j] = int32(j)
	}
	sort.Slice(idx, func(a, b int) bool { return c.atoms[idx[a]] < c.atoms[idx[b]] })
	c.index = idx
	c.sorted = len(c.atoms)
}

// Cell returns a pointer to entry n. The pointer is invalidated by Append.
func (c *Context) Cell(n int) *Cell { return &c.cells[n] }

// AtomAt returns the atom of entry n.
func (c *Context) AtomAt(n int) Atom { return c.atoms[n] }

// Freeze sorts the context and forbids further appends.
func (c *Context) Freeze() {
	c.Sort()
	c.frozen = true
}

// Frozen reports whether the context rejects appends.
func (c *Context) Frozen() bool { return c.frozen }

// Set stores v under atom, appending the entry if needed.
func (c *Context) Set(atom Atom, v Cell) {
	c.cells[c.Intern(atom)] = v
}

// Get returns the value stored under atom.
func (c *Context) Get(atom Atom) (Cell, bool) {
	n := c.Lookup(atom)
	if n < 0 {
		return Unset(), false
	}
	return c.cells[n], true
}
