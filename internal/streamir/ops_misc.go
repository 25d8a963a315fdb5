package streamir

func init() {
	RegisterVerifier(KindReturn, func(op *Operation) error {
		if len(op.results) != 0 {
			return verifyErr(op, "return produces no results")
		}
		return nil
	})
}

// ReturnData terminates the module body with the values that make up its
// observable output; the canonicalizer must never dead-code-eliminate a
// value reachable from here.
type ReturnData struct {
	Values []*Value
}

func (d *ReturnData) Operands() []*Value { return d.Values }
func (d *ReturnData) SetOperand(i int, v *Value) {
	if i >= 0 && i < len(d.Values) {
		d.Values[i] = v
	}
}
func (d *ReturnData) Clone() OpData {
	c := ReturnData{Values: append([]*Value(nil), d.Values...)}
	return &c
}

func (b *Builder) Return(loc Location, values []*Value) *Operation {
	data := &ReturnData{Values: append([]*Value(nil), values...)}
	op := b.newOp(KindReturn, loc, data)
	for i, v := range values {
		useOperand(op, i, v)
	}
	return op
}

func init() {
	RegisterVerifier(KindConstIndex, verifyArity(0, 1))
}

// ConstIndexData materializes a compile-time-known scalar. It is the only
// value shape canonicalization patterns are allowed to inspect numerically;
// everything else is opaque.
type ConstIndexData struct {
	Value int64
}

func (d *ConstIndexData) Operands() []*Value     { return nil }
func (d *ConstIndexData) SetOperand(int, *Value) {}
func (d *ConstIndexData) Clone() OpData          { c := *d; return &c }

func (b *Builder) ConstIndex(loc Location, value int64) *Value {
	op := b.newOp(KindConstIndex, loc, &ConstIndexData{Value: value}, &IndexType{})
	return op.Result(0)
}

// AsConstIndex reports the compile-time value of v, if v was produced by a
// const_index operation.
func AsConstIndex(v *Value) (int64, bool) {
	if v == nil {
		return 0, false
	}
	def := v.DefiningOp()
	if def == nil || def.Kind() != KindConstIndex {
		return 0, false
	}
	return def.Data().(*ConstIndexData).Value, true
}

func init() {
	RegisterVerifier(KindIndexAdd, verifyArity(2, 1))
}

// IndexAddData is the one arithmetic op the pattern library may introduce:
// computing a fused offset when collapsing a subview into whatever it feeds
// (another subview, a load/store, or a cmd.* op) requires adding the
// subview's own offset to the reference it is fusing into. Never emitted by
// hand-written IR-construction code, only by canonicalization.
type IndexAddData struct {
	LHS, RHS *Value
}

func (d *IndexAddData) Operands() []*Value { return []*Value{d.LHS, d.RHS} }
func (d *IndexAddData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.LHS = v
	case 1:
		d.RHS = v
	}
}
func (d *IndexAddData) Clone() OpData { c := *d; return &c }

func (b *Builder) IndexAdd(loc Location, lhs, rhs *Value) *Value {
	data := &IndexAddData{LHS: lhs, RHS: rhs}
	op := b.newOp(KindIndexAdd, loc, data, &IndexType{})
	useOperand(op, 0, lhs)
	useOperand(op, 1, rhs)
	return op.Result(0)
}
