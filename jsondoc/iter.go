package jsondoc

// ArrayIter walks the elements of an array node.
type ArrayIter struct {
	arr *Node
	pos int
}

// ObjectIter walks the key nodes of an object node.
type ObjectIter struct {
	obj *Node
	pos int
}

// ArrayIter returns a cursor over n, or false when n is not an array.
func (n *Node) ArrayIter() (*ArrayIter, bool) {
	if n.Kind() != KindArray {
		return nil, false
	}
	return &ArrayIter{arr: n}, true
}

// ObjectIter returns a cursor over n, or false when n is not an object.
func (n *Node) ObjectIter() (*ObjectIter, bool) {
	if n.Kind() != KindObject {
		return nil, false
	}
	return &ObjectIter{obj: n}, true
}

// Next returns the next element, or nil once the array is exhausted.
func (it *ArrayIter) Next() *Node {
	if it == nil || it.pos >= len(it.arr.elems) {
		return nil
	}
	n := it.arr.elems[it.pos]
	it.pos++
	return n
}

// HasNext reports whether Next would return an element.
func (it *ArrayIter) HasNext() bool {
	return it != nil && it.pos < len(it.arr.elems)
}

// Next returns the next key node, or nil once the object is exhausted.
// The member value is available from the key's Value method.
func (it *ObjectIter) Next() *Node {
	if it == nil || it.pos >= len(it.obj.elems) {
		return nil
	}
	k := it.obj.elems[it.pos]
	it.pos++
	return k
}

func (it *ObjectIter) HasNext() bool {
	return it != nil && it.pos < len(it.obj.elems)
}
