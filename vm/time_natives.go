package vm

// timestampLayout is ISO 8601 in UTC, as in 2001-02-13T14:15:16Z.
const timestampLayout = "2006-01-02T15:04:05Z"

func (vm *VM) registerTimeNatives() {
	vm.mustDefine("now", nativeNow)
}

func nativeNow(i *Interpreter, a Args, res *Cell) error {
	*res = String(i.clock().UTC().Format(timestampLayout))
	return nil
}
