package vm

import "sync"

// Atom is the interned identifier of a word name. Contexts and argument
// programs hold atoms, never names.
type Atom int32

// NoAtom is what Lookup returns for a name that was never interned.
const NoAtom Atom = -1

// AtomTable maps word names to atoms. It only grows; interpreters sharing a
// VM intern into it concurrently while reading scripts.
type AtomTable struct {
	mu    sync.RWMutex
	atoms map[string]Atom
	names []string
}

func NewAtomTable() *AtomTable {
	return &AtomTable{atoms: make(map[string]Atom, 256)}
}

// Intern returns the atom for name, adding name if it is new.
func (t *AtomTable) Intern(name string) Atom {
	if a := t.Lookup(name); a != NoAtom {
		return a
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.atoms[name]
	if !ok {
		a = Atom(len(t.names))
		t.atoms[name] = a
		t.names = append(t.names, name)
	}
	return a
}

func (t *AtomTable) Lookup(name string) Atom {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if a, ok := t.atoms[name]; ok {
		return a
	}
	return NoAtom
}

// Name returns the word name of a, or "" for an atom from another table.
func (t *AtomTable) Name(a Atom) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if a < 0 || int(a) >= len(t.names) {
		return ""
	}
	return t.names[a]
}
