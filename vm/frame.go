package vm

// ---------------------------------------------------------------------------
// EvalFrame: one unit of suspended evaluation work
// ---------------------------------------------------------------------------

type frameKind uint8

const (
	frameDoBlock    frameKind = iota // evaluate cells [it,end) into result
	frameFuncBody                    // like DoBlock, over a user function body
	frameReduce                      // evaluate each value into out
	frameSet                         // assign result to the set-words in [it,end)
	frameCatch                       // consulted only while unwinding
	frameInvoke                      // resumable native continuation
	frameOptionIter                  // option words left over from a call path
	frameCallNative                  // collecting arguments for a native
	frameCallUser                    // collecting arguments for a user function
)

var frameKindNames = [...]string{
	frameDoBlock:    "do-block",
	frameFuncBody:   "func-body",
	frameReduce:     "reduce",
	frameSet:        "set",
	frameCatch:      "catch",
	frameInvoke:     "invoke",
	frameOptionIter: "option-iter",
	frameCallNative: "call-native",
	frameCallUser:   "call-user",
}

func (k frameKind) String() string { return frameKindNames[k] }

// isSource reports whether arguments for a call above this frame are
// fetched from its cells.
func (k frameKind) isSource() bool {
	return k == frameDoBlock || k == frameFuncBody || k == frameReduce
}

// invokeFunc continues an Invoke frame. It returns done once the frame's
// work is finished; a frame that pushed new frames returns false and is
// called again when they complete.
type invokeFunc func(i *Interpreter, f *EvalFrame) (done bool, err error)

// catchFunc decides whether a Catch frame absorbs the exception. When it
// does it stores the frame's result itself.
type catchFunc func(i *Interpreter, f *EvalFrame, exc Cell) bool

// EvalFrame is a tagged record on the frame stack. Which fields are live
// depends on kind.
type EvalFrame struct {
	kind      frameKind
	origStack int   // operand stack height to restore when the frame ends
	result    *Cell // where the frame's value goes

	// DoBlock, FuncBody, Reduce, Set, OptionIter
	block *Series
	it    int
	end   int

	// CallNative, CallUser
	fn      *Function
	pc      int
	argsPos int

	// Reduce
	out *Series

	// Invoke, Catch
	invoke invokeFunc
	catch  catchFunc
	state  int
	tmp    Cell
	data   [2]Cell
}

// Kind returns the frame kind's name.
func (f *EvalFrame) Kind() string { return f.kind.String() }

// ---------------------------------------------------------------------------
// Frame management
// ---------------------------------------------------------------------------

// pushFrame appends a zeroed frame. The frame stack never reallocates, so
// frame pointers stay valid until the frame is popped.
func (i *Interpreter) pushFrame(kind frameKind) (*EvalFrame, error) {
	n := len(i.frames)
	if n == cap(i.frames) {
		return nil, internalError("EvalFrame overflow")
	}
	i.frames = i.frames[:n+1]
	f := &i.frames[n]
	*f = EvalFrame{kind: kind, origStack: i.sp}
	return f, nil
}

// topFrame returns the innermost frame.
func (i *Interpreter) topFrame() *EvalFrame {
	return &i.frames[len(i.frames)-1]
}

// truncateFrames drops every frame at index n and above, along with the
// stack-map entries of function bodies among them.
func (i *Interpreter) truncateFrames(n int) {
	for k := n; k < len(i.frames); k++ {
		i.frames[k] = EvalFrame{}
	}
	i.frames = i.frames[:n]
	for len(i.stackMap) > 0 && i.stackMap[len(i.stackMap)-1].frame >= n {
		i.stackMap = i.stackMap[:len(i.stackMap)-1]
	}
}

// popFrame drops the innermost frame.
func (i *Interpreter) popFrame() {
	i.truncateFrames(len(i.frames) - 1)
}

// finishCall ends the innermost call frame: restore the stack and drop the
// frame plus the option iterator beneath it, if any.
func (i *Interpreter) finishCall(f *EvalFrame) {
	i.sp = f.origStack
	n := len(i.frames) - 1
	if n > 0 && i.frames[n-1].kind == frameOptionIter {
		n--
	}
	i.truncateFrames(n)
}

// sourceFrame returns the frame that supplies cells to the frame at index
// k. Calls, pending sets and option iterators in between all read from the
// same block, so they are skipped.
func (i *Interpreter) sourceFrame(k int) *EvalFrame {
	for k--; k >= 0; k-- {
		f := &i.frames[k]
		if f.kind.isSource() {
			return f
		}
		switch f.kind {
		case frameSet, frameOptionIter, frameCallNative, frameCallUser:
		default:
			return nil
		}
	}
	return nil
}

// pushDoBlock pushes a DoBlock frame over the cells of blk.
func (i *Interpreter) pushDoBlock(blk Cell, res *Cell) error {
	f, err := i.pushFrame(frameDoBlock)
	if err != nil {
		return err
	}
	f.block, f.it, f.end = blk.ser, blk.pos, len(blk.ser.cells)
	f.result = res
	*res = Unset()
	return nil
}

// pushReduce pushes a Reduce frame evaluating blk into out.
func (i *Interpreter) pushReduce(blk Cell, out *Series) error {
	f, err := i.pushFrame(frameReduce)
	if err != nil {
		return err
	}
	f.block, f.it, f.end = blk.ser, blk.pos, len(blk.ser.cells)
	f.out = out
	return nil
}

// pushInvoke pushes an Invoke frame running fn.
func (i *Interpreter) pushInvoke(fn invokeFunc, res *Cell) (*EvalFrame, error) {
	f, err := i.pushFrame(frameInvoke)
	if err != nil {
		return nil, err
	}
	f.invoke = fn
	f.result = res
	return f, nil
}

// pushCatch pushes a Catch frame that guards the frames pushed after it.
func (i *Interpreter) pushCatch(fn catchFunc, res *Cell) (*EvalFrame, error) {
	f, err := i.pushFrame(frameCatch)
	if err != nil {
		return nil, err
	}
	f.catch = fn
	f.result = res
	f.state = 1
	return f, nil
}

// replaceCall removes the calling native's frame so a native can push
// replacement frames in its place. Argument cells stay readable until the
// replacement pushes onto the operand stack.
func (i *Interpreter) replaceCall() {
	f := i.topFrame()
	if f.kind != frameCallNative {
		panic("vm: replaceCall outside of a native call")
	}
	i.finishCall(f)
}
