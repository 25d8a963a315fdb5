package streamir

// CloneOp materializes a new operation of the same kind as src, inserted by
// bld, with fresh result values and the same operand values as src (the
// caller may then redirect specific uses to the clone's results). async.clone
// propagation uses it to reproduce a cheap producer such as async.splat in
// front of each consumer.
func CloneOp(bld *Builder, src *Operation) *Operation {
	data := src.data.Clone()
	resultTypes := make([]Type, len(src.results))
	for i, r := range src.results {
		resultTypes[i] = r.typ
	}
	op := bld.newOp(src.kind, src.loc, data, resultTypes...)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	for k, v := range src.attrs {
		op.SetAttr(k, v)
	}
	return op
}
