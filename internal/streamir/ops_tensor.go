package streamir

func init() {
	RegisterVerifier(KindTensorConstant, verifyArity(2, 1))
	RegisterVerifier(KindTensorSplat, verifyArity(2, 1))
	RegisterVerifier(KindTensorClone, verifyArity(2, 1))
}

// TensorConstantData materializes a host-visible tensor value from
// caller-supplied constant data, before it has been placed against any
// timepoint (spec's tensor layer sits above async.*: a tensor.constant only
// becomes schedulable once expanded. Canonicalization expands only the
// single-value-splat case IsSplat marks, into a tensor.splat feeding an
// async.transfer).
type TensorConstantData struct {
	Value, Size *Value
	Lifetime    Lifetime
	IsSplat     bool
}

func (d *TensorConstantData) Operands() []*Value { return []*Value{d.Value, d.Size} }
func (d *TensorConstantData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Value = v
	case 1:
		d.Size = v
	}
}
func (d *TensorConstantData) Clone() OpData { c := *d; return &c }
func (d *TensorConstantData) SizeOfResult(resultIndex int) *Value {
	if resultIndex == 0 {
		return d.Size
	}
	return nil
}

func (b *Builder) TensorConstant(loc Location, lifetime Lifetime, value, size *Value, isSplat bool) *Value {
	data := &TensorConstantData{Value: value, Size: size, Lifetime: lifetime, IsSplat: isSplat}
	op := b.newOp(KindTensorConstant, loc, data, &ResourceType{Lifetime: lifetime})
	useOperand(op, 0, value)
	useOperand(op, 1, size)
	return op.Result(0)
}

// TensorSplatData fills a fresh tensor value entirely with Value, the
// tensor-layer counterpart of async.splat before scheduling.
type TensorSplatData struct {
	Value, Size *Value
}

func (d *TensorSplatData) Operands() []*Value { return []*Value{d.Value, d.Size} }
func (d *TensorSplatData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Value = v
	case 1:
		d.Size = v
	}
}
func (d *TensorSplatData) Clone() OpData { c := *d; return &c }
func (d *TensorSplatData) SizeOfResult(resultIndex int) *Value {
	if resultIndex == 0 {
		return d.Size
	}
	return nil
}
func (d *TensorSplatData) PreferCloneToConsumers() bool { return true }

func (b *Builder) TensorSplat(loc Location, value, size *Value) *Value {
	data := &TensorSplatData{Value: value, Size: size}
	op := b.newOp(KindTensorSplat, loc, data, &ResourceType{Lifetime: Transient})
	useOperand(op, 0, value)
	useOperand(op, 1, size)
	return op.Result(0)
}

// TensorCloneData duplicates a tensor-layer value, tied to nothing (both
// sides remain independently mutable): a tensor.clone only exists to break
// an aliasing relationship the caller wants, so canonicalization elides it
// whenever no aliasing use of either side actually survives.
type TensorCloneData struct {
	Source, SourceSize *Value
}

func (d *TensorCloneData) Operands() []*Value { return []*Value{d.Source, d.SourceSize} }
func (d *TensorCloneData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Source = v
	case 1:
		d.SourceSize = v
	}
}
func (d *TensorCloneData) Clone() OpData { c := *d; return &c }
func (d *TensorCloneData) SizeOfResult(resultIndex int) *Value {
	if resultIndex == 0 {
		return d.SourceSize
	}
	return nil
}

func (b *Builder) TensorClone(loc Location, source, sourceSize *Value) *Value {
	data := &TensorCloneData{Source: source, SourceSize: sourceSize}
	op := b.newOp(KindTensorClone, loc, data, source.Type())
	useOperand(op, 0, source)
	useOperand(op, 1, sourceSize)
	return op.Result(0)
}
