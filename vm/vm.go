package vm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("kutes.vm")

// ---------------------------------------------------------------------------
// VM: the shared evaluation environment
// ---------------------------------------------------------------------------

// Config bounds the resources of each interpreter.
type Config struct {
	MaxFrames  int // frame stack capacity
	MaxStack   int // operand stack cells
	MaxScripts int // compiled scripts cached per interpreter
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{MaxFrames: 512, MaxStack: 4096, MaxScripts: 256}
}

// VM holds what interpreters share: the atom table and the environment
// context of natives. Natives are defined first, then the environment is
// frozen; after that a VM may be shared by interpreters on any goroutine.
type VM struct {
	atoms *AtomTable
	env   *Context
	cfg   Config

	freezeOnce sync.Once
}

// NewVM creates a VM with the built-in natives defined.
func NewVM(cfg Config) *VM {
	def := DefaultConfig()
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = def.MaxFrames
	}
	if cfg.MaxStack <= 0 {
		cfg.MaxStack = def.MaxStack
	}
	if cfg.MaxScripts <= 0 {
		cfg.MaxScripts = def.MaxScripts
	}
	vm := &VM{
		atoms: NewAtomTable(),
		env:   NewContext(64),
		cfg:   cfg,
	}
	vm.registerConstants()
	vm.registerControlNatives()
	vm.registerJSONNatives()
	vm.registerTimeNatives()
	return vm
}

// Atoms returns the VM's atom table.
func (vm *VM) Atoms() *AtomTable { return vm.atoms }

// Config returns the interpreter limits.
func (vm *VM) Config() Config { return vm.cfg }

// Define adds a native to the environment. spec is the native's name
// followed by its argument spec, as in "jptr pth /root ptr".
func (vm *VM) Define(spec string, fn NativeFunc) error {
	if vm.env.Frozen() {
		return fmt.Errorf("define %q: environment is frozen", spec)
	}
	f, err := vm.NewNative(spec, fn)
	if err != nil {
		return err
	}
	vm.env.Set(vm.atoms.Intern(f.name), FuncCell(f))
	return nil
}

// DefineValue binds name to a constant in the environment.
func (vm *VM) DefineValue(name string, v Cell) error {
	if vm.env.Frozen() {
		return fmt.Errorf("define %s: environment is frozen", name)
	}
	vm.env.Set(vm.atoms.Intern(name), v)
	return nil
}

// mustDefine registers a built-in native; specs are static, so failure is
// a programming error.
func (vm *VM) mustDefine(spec string, fn NativeFunc) {
	if err := vm.Define(spec, fn); err != nil {
		panic(err)
	}
}

// Freeze sorts the environment and forbids further definitions.
func (vm *VM) Freeze() {
	vm.freezeOnce.Do(func() {
		vm.env.Freeze()
		log.Debugf("environment frozen with %d words", vm.env.Len())
	})
}

// Lookup returns the environment value of name.
func (vm *VM) Lookup(name string) (Cell, bool) {
	atom := vm.atoms.Lookup(name)
	if atom == NoAtom {
		return Unset(), false
	}
	return vm.env.Get(atom)
}

// Words returns the names defined in the environment, sorted.
func (vm *VM) Words() []string {
	names := make([]string, vm.env.Len())
	for n := range names {
		names[n] = vm.atoms.Name(vm.env.AtomAt(n))
	}
	sort.Strings(names)
	return names
}

func (vm *VM) registerConstants() {
	for name, v := range map[string]Cell{
		"none":  None(),
		"true":  Logic(true),
		"false": Logic(false),
		"on":    Logic(true),
		"off":   Logic(false),
	} {
		vm.env.Set(vm.atoms.Intern(name), v)
	}
}
