package streamir

func init() {
	RegisterVerifier(KindAsyncSplat, verifyArity(2, 1))
	RegisterVerifier(KindAsyncClone, verifyArity(2, 1))
	RegisterVerifier(KindAsyncSlice, verifyArity(4, 1))
	RegisterVerifier(KindAsyncFill, verifyArity(5, 1))
	RegisterVerifier(KindAsyncUpdate, verifyArity(5, 1))
	RegisterVerifier(KindAsyncCopy, verifyArity(7, 1))
	RegisterVerifier(KindAsyncTransfer, verifyArity(2, 1))
	RegisterVerifier(KindAsyncLoad, verifyArity(3, 1))
	RegisterVerifier(KindAsyncStore, verifyArity(4, 1))
	RegisterVerifier(KindAsyncDispatch, func(op *Operation) error {
		data := op.data.(*AsyncDispatchData)
		if len(data.Resources) != len(data.Sizes) {
			return verifyErr(op, "async.dispatch must carry one size operand per resource operand")
		}
		for result, operand := range data.Tied {
			if result < 0 || result >= len(op.results) {
				return verifyErr(op, "async.dispatch tie references an out-of-range result")
			}
			if operand < 0 || operand >= len(data.Resources) {
				return verifyErr(op, "async.dispatch tie references an out-of-range resource operand")
			}
		}
		return nil
	})
}

// AsyncSplatData fills a freshly allocated resource with a repeated scalar.
// Cheap enough to reproduce that async.clone propagation re-creates this op
// in front of each consumer of a clone instead of keeping the clone (spec §4).
type AsyncSplatData struct {
	Value, Size *Value
}

func (d *AsyncSplatData) Operands() []*Value { return []*Value{d.Value, d.Size} }
func (d *AsyncSplatData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Value = v
	case 1:
		d.Size = v
	}
}
func (d *AsyncSplatData) Clone() OpData                    { c := *d; return &c }
func (d *AsyncSplatData) SizeOfResult(resultIndex int) *Value { return d.Size }
func (d *AsyncSplatData) PreferCloneToConsumers() bool      { return true }

func (b *Builder) AsyncSplat(loc Location, lifetime Lifetime, value, size *Value) *Value {
	data := &AsyncSplatData{Value: value, Size: size}
	op := b.newOp(KindAsyncSplat, loc, data, &ResourceType{Lifetime: lifetime})
	useOperand(op, 0, value)
	useOperand(op, 1, size)
	return op.Result(0)
}

// AsyncCloneData produces an independent copy of Source, breaking any
// aliasing COW materialization needed to sever.
type AsyncCloneData struct {
	Source, SourceSize *Value
}

func (d *AsyncCloneData) Operands() []*Value { return []*Value{d.Source, d.SourceSize} }
func (d *AsyncCloneData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Source = v
	case 1:
		d.SourceSize = v
	}
}
func (d *AsyncCloneData) Clone() OpData                       { c := *d; return &c }
func (d *AsyncCloneData) SizeOfResult(resultIndex int) *Value { return d.SourceSize }

func (b *Builder) AsyncClone(loc Location, source, sourceSize *Value) *Value {
	lt := source.Type().(*ResourceType).Lifetime
	// A clone of a Constant resource is a private, writable copy: it must be
	// usable as the operand side of a tie.
	if lt == Constant {
		lt = Transient
	}
	data := &AsyncCloneData{Source: source, SourceSize: sourceSize}
	op := b.newOp(KindAsyncClone, loc, data, &ResourceType{Lifetime: lt})
	useOperand(op, 0, source)
	useOperand(op, 1, sourceSize)
	return op.Result(0)
}

// AsyncSliceData copies [Offset, Offset+Length) of Source into a new,
// independent resource. Unlike resource.subview this always clones.
type AsyncSliceData struct {
	Source, SourceSize, Offset, Length *Value
}

func (d *AsyncSliceData) Operands() []*Value {
	return []*Value{d.Source, d.SourceSize, d.Offset, d.Length}
}
func (d *AsyncSliceData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Source = v
	case 1:
		d.SourceSize = v
	case 2:
		d.Offset = v
	case 3:
		d.Length = v
	}
}
func (d *AsyncSliceData) Clone() OpData                       { c := *d; return &c }
func (d *AsyncSliceData) SizeOfResult(resultIndex int) *Value { return d.Length }

func (b *Builder) AsyncSlice(loc Location, source, sourceSize, offset, length *Value) *Value {
	lt := source.Type().(*ResourceType).Lifetime
	data := &AsyncSliceData{Source: source, SourceSize: sourceSize, Offset: offset, Length: length}
	op := b.newOp(KindAsyncSlice, loc, data, &ResourceType{Lifetime: lt})
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.Result(0)
}

// AsyncFillData overwrites [Offset, Offset+Length) of Target in place with
// Value, and is tied to Target: the result aliases the same storage.
type AsyncFillData struct {
	Target, TargetSize, Offset, Length, Value *Value
}

func (d *AsyncFillData) Operands() []*Value {
	return []*Value{d.Target, d.TargetSize, d.Offset, d.Length, d.Value}
}
func (d *AsyncFillData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Target = v
	case 1:
		d.TargetSize = v
	case 2:
		d.Offset = v
	case 3:
		d.Length = v
	case 4:
		d.Value = v
	}
}
func (d *AsyncFillData) Clone() OpData { c := *d; return &c }
func (d *AsyncFillData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex == 0 {
		return 0, true
	}
	return 0, false
}

func (b *Builder) AsyncFill(loc Location, target, targetSize, offset, length, value *Value) *Value {
	data := &AsyncFillData{Target: target, TargetSize: targetSize, Offset: offset, Length: length, Value: value}
	op := b.newOp(KindAsyncFill, loc, data, target.Type())
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.Result(0)
}

// AsyncUpdateData splices Update into Target at Offset, tied to Target.
type AsyncUpdateData struct {
	Target, TargetSize, Update, UpdateSize, Offset *Value
}

func (d *AsyncUpdateData) Operands() []*Value {
	return []*Value{d.Target, d.TargetSize, d.Update, d.UpdateSize, d.Offset}
}
func (d *AsyncUpdateData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Target = v
	case 1:
		d.TargetSize = v
	case 2:
		d.Update = v
	case 3:
		d.UpdateSize = v
	case 4:
		d.Offset = v
	}
}
func (d *AsyncUpdateData) Clone() OpData { c := *d; return &c }
func (d *AsyncUpdateData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex == 0 {
		return 0, true
	}
	return 0, false
}

func (b *Builder) AsyncUpdate(loc Location, target, targetSize, update, updateSize, offset *Value) *Value {
	data := &AsyncUpdateData{Target: target, TargetSize: targetSize, Update: update, UpdateSize: updateSize, Offset: offset}
	op := b.newOp(KindAsyncUpdate, loc, data, target.Type())
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.Result(0)
}

// AsyncCopyData copies Length bytes from Source[SourceOffset:] into
// Target[TargetOffset:], tied to Target.
type AsyncCopyData struct {
	Source, SourceSize, SourceOffset, Target, TargetSize, TargetOffset, Length *Value
}

func (d *AsyncCopyData) Operands() []*Value {
	return []*Value{d.Source, d.SourceSize, d.SourceOffset, d.Target, d.TargetSize, d.TargetOffset, d.Length}
}
func (d *AsyncCopyData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Source = v
	case 1:
		d.SourceSize = v
	case 2:
		d.SourceOffset = v
	case 3:
		d.Target = v
	case 4:
		d.TargetSize = v
	case 5:
		d.TargetOffset = v
	case 6:
		d.Length = v
	}
}
func (d *AsyncCopyData) Clone() OpData { c := *d; return &c }
func (d *AsyncCopyData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex == 0 {
		return 3, true
	}
	return 0, false
}

func (b *Builder) AsyncCopy(loc Location, source, sourceSize, sourceOffset, target, targetSize, targetOffset, length *Value) *Value {
	data := &AsyncCopyData{
		Source: source, SourceSize: sourceSize, SourceOffset: sourceOffset,
		Target: target, TargetSize: targetSize, TargetOffset: targetOffset, Length: length,
	}
	op := b.newOp(KindAsyncCopy, loc, data, target.Type())
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.Result(0)
}

// AsyncTransferData moves Source to a new affinity/lifetime placement,
// producing an independent resource. Chains of transfers fold together
// when the intermediate has exactly one use (see internal/canon).
type AsyncTransferData struct {
	Source, SourceSize *Value
	SourceAffinity, TargetAffinity Attribute
}

func (d *AsyncTransferData) Operands() []*Value { return []*Value{d.Source, d.SourceSize} }
func (d *AsyncTransferData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Source = v
	case 1:
		d.SourceSize = v
	}
}
func (d *AsyncTransferData) Clone() OpData                       { c := *d; return &c }
func (d *AsyncTransferData) SizeOfResult(resultIndex int) *Value { return d.SourceSize }
func (d *AsyncTransferData) AffinityAttr() Attribute             { return d.TargetAffinity }

func (b *Builder) AsyncTransfer(loc Location, source, sourceSize *Value, targetLifetime Lifetime, sourceAffinity, targetAffinity Attribute) *Value {
	data := &AsyncTransferData{Source: source, SourceSize: sourceSize, SourceAffinity: sourceAffinity, TargetAffinity: targetAffinity}
	op := b.newOp(KindAsyncTransfer, loc, data, &ResourceType{Lifetime: targetLifetime})
	useOperand(op, 0, source)
	useOperand(op, 1, sourceSize)
	return op.Result(0)
}

// AsyncDispatchData invokes an executable entry point over a set of
// resource operands, some of which may be tied to results (in-place
// dispatch outputs), mirroring how a real kernel launch aliases its output
// buffer to one of its inputs to avoid an extra allocation.
type AsyncDispatchData struct {
	Entry     string
	Resources []*Value
	Sizes     []*Value
	Tied      map[int]int
	Affinity  Attribute
}

func (d *AsyncDispatchData) Operands() []*Value {
	return append(append([]*Value(nil), d.Resources...), d.Sizes...)
}
func (d *AsyncDispatchData) SetOperand(i int, v *Value) {
	n := len(d.Resources)
	if i < n {
		d.Resources[i] = v
	} else if i-n < len(d.Sizes) {
		d.Sizes[i-n] = v
	}
}
func (d *AsyncDispatchData) Clone() OpData {
	c := *d
	c.Resources = append([]*Value(nil), d.Resources...)
	c.Sizes = append([]*Value(nil), d.Sizes...)
	c.Tied = make(map[int]int, len(d.Tied))
	for k, v := range d.Tied {
		c.Tied[k] = v
	}
	return &c
}
func (d *AsyncDispatchData) TiedOperand(resultIndex int) (int, bool) {
	i, ok := d.Tied[resultIndex]
	return i, ok
}
func (d *AsyncDispatchData) AffinityAttr() Attribute { return d.Affinity }

func (b *Builder) AsyncDispatch(loc Location, entry string, resources, sizes []*Value, resultTypes []Type, tied map[int]int, affinity Attribute) []*Value {
	data := &AsyncDispatchData{
		Entry: entry, Resources: append([]*Value(nil), resources...), Sizes: append([]*Value(nil), sizes...),
		Tied: tied, Affinity: affinity,
	}
	op := b.newOp(KindAsyncDispatch, loc, data, resultTypes...)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.results
}

// AsyncLoadData reads a scalar out of Source at Offset. Untied.
type AsyncLoadData struct {
	Source, SourceSize, Offset *Value
}

func (d *AsyncLoadData) Operands() []*Value { return []*Value{d.Source, d.SourceSize, d.Offset} }
func (d *AsyncLoadData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Source = v
	case 1:
		d.SourceSize = v
	case 2:
		d.Offset = v
	}
}
func (d *AsyncLoadData) Clone() OpData { c := *d; return &c }

func (b *Builder) AsyncLoad(loc Location, source, sourceSize, offset *Value, scalarType Type) *Value {
	data := &AsyncLoadData{Source: source, SourceSize: sourceSize, Offset: offset}
	op := b.newOp(KindAsyncLoad, loc, data, scalarType)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.Result(0)
}

// AsyncStoreData writes a scalar into Target at Offset, tied to Target
// (the updated resource is returned so downstream users observe the write).
type AsyncStoreData struct {
	Target, TargetSize, Offset, Value *Value
}

func (d *AsyncStoreData) Operands() []*Value {
	return []*Value{d.Target, d.TargetSize, d.Offset, d.Value}
}
func (d *AsyncStoreData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Target = v
	case 1:
		d.TargetSize = v
	case 2:
		d.Offset = v
	case 3:
		d.Value = v
	}
}
func (d *AsyncStoreData) Clone() OpData { c := *d; return &c }
func (d *AsyncStoreData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex == 0 {
		return 0, true
	}
	return 0, false
}

func (b *Builder) AsyncStore(loc Location, target, targetSize, offset, value *Value) *Value {
	data := &AsyncStoreData{Target: target, TargetSize: targetSize, Offset: offset, Value: value}
	op := b.newOp(KindAsyncStore, loc, data, target.Type())
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.Result(0)
}
