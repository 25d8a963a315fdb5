package streamir

func init() {
	RegisterVerifier(KindCmdFill, verifyArity(4, 0))
	RegisterVerifier(KindCmdCopy, verifyArity(7, 0))
	RegisterVerifier(KindCmdDispatch, func(op *Operation) error {
		data := op.data.(*CmdDispatchData)
		if len(data.Resources) != len(data.Sizes) || len(data.Resources) != len(data.Offsets) {
			return verifyErr(op, "cmd.dispatch must carry one offset and one size operand per resource operand")
		}
		return nil
	})
	RegisterVerifier(KindCmdFlush, verifyArity(3, 0))
	RegisterVerifier(KindCmdInvalidate, verifyArity(3, 0))
	RegisterVerifier(KindCmdDiscard, verifyArity(3, 0))
	RegisterVerifier(KindCmdReturn, verifyArity(0, 0))
	RegisterVerifier(KindCmdSerial, func(op *Operation) error {
		if len(op.regions) != 1 || len(op.regions[0].blocks) != 1 {
			return verifyErr(op, "cmd.serial must have exactly one single-block region")
		}
		return nil
	})
	RegisterVerifier(KindCmdConcurrent, func(op *Operation) error {
		if len(op.regions) != 1 || len(op.regions[0].blocks) != 1 {
			return verifyErr(op, "cmd.concurrent must have exactly one single-block region")
		}
		return nil
	})
}

// cmd.* operations carry no results: they act on the resources captured
// into their enclosing execute region's block arguments, and that region's
// tied results are what surfaces the mutation to the caller.

type CmdFillData struct {
	Target, TargetSize, Offset, Length *Value
}

func (d *CmdFillData) Operands() []*Value { return []*Value{d.Target, d.TargetSize, d.Offset, d.Length} }
func (d *CmdFillData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Target = v
	case 1:
		d.TargetSize = v
	case 2:
		d.Offset = v
	case 3:
		d.Length = v
	}
}
func (d *CmdFillData) Clone() OpData { c := *d; return &c }

func (b *Builder) CmdFill(loc Location, target, targetSize, offset, length *Value) *Operation {
	data := &CmdFillData{Target: target, TargetSize: targetSize, Offset: offset, Length: length}
	op := b.newOp(KindCmdFill, loc, data)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op
}

type CmdCopyData struct {
	Source, SourceSize, SourceOffset, Target, TargetSize, TargetOffset, Length *Value
}

func (d *CmdCopyData) Operands() []*Value {
	return []*Value{d.Source, d.SourceSize, d.SourceOffset, d.Target, d.TargetSize, d.TargetOffset, d.Length}
}
func (d *CmdCopyData) SetOperand(i int, v *Value) {
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
func (d *CmdCopyData) Clone() OpData { c := *d; return &c }

func (b *Builder) CmdCopy(loc Location, source, sourceSize, sourceOffset, target, targetSize, targetOffset, length *Value) *Operation {
	data := &CmdCopyData{
		Source: source, SourceSize: sourceSize, SourceOffset: sourceOffset,
		Target: target, TargetSize: targetSize, TargetOffset: targetOffset, Length: length,
	}
	op := b.newOp(KindCmdCopy, loc, data)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op
}

// CmdDispatchData launches a kernel against resources captured into the
// enclosing execute region. Offsets lets a resource operand reference a
// byte range within a larger captured resource directly, the same way
// cmd.fill/cmd.copy do, so subview fusion has somewhere to push a captured
// subview's offset instead of leaving the subview materialized.
type CmdDispatchData struct {
	Entry     string
	Resources []*Value
	Offsets   []*Value
	Sizes     []*Value
	Affinity  Attribute
}

func (d *CmdDispatchData) Operands() []*Value {
	ops := append([]*Value(nil), d.Resources...)
	ops = append(ops, d.Offsets...)
	return append(ops, d.Sizes...)
}
func (d *CmdDispatchData) SetOperand(i int, v *Value) {
	n := len(d.Resources)
	switch {
	case i < n:
		d.Resources[i] = v
	case i < 2*n:
		d.Offsets[i-n] = v
	case i-2*n < len(d.Sizes):
		d.Sizes[i-2*n] = v
	}
}
func (d *CmdDispatchData) Clone() OpData {
	c := *d
	c.Resources = append([]*Value(nil), d.Resources...)
	c.Offsets = append([]*Value(nil), d.Offsets...)
	c.Sizes = append([]*Value(nil), d.Sizes...)
	return &c
}
func (d *CmdDispatchData) AffinityAttr() Attribute { return d.Affinity }

func (b *Builder) CmdDispatch(loc Location, entry string, resources, offsets, sizes []*Value, affinity Attribute) *Operation {
	data := &CmdDispatchData{
		Entry:     entry,
		Resources: append([]*Value(nil), resources...),
		Offsets:   append([]*Value(nil), offsets...),
		Sizes:     append([]*Value(nil), sizes...),
		Affinity:  affinity,
	}
	op := b.newOp(KindCmdDispatch, loc, data)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op
}

// CmdFlushData/CmdInvalidateData/CmdDiscardData are cache-management
// barriers over a byte range of Target; they never change which bytes are
// live, only the machine's view of them, so canonicalization only ever
// drops or dedups them, never reorders past a conflicting access.
type cmdRangeData struct {
	Target, Offset, Length *Value
}

func (d *cmdRangeData) Operands() []*Value { return []*Value{d.Target, d.Offset, d.Length} }
func (d *cmdRangeData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Target = v
	case 1:
		d.Offset = v
	case 2:
		d.Length = v
	}
}

type CmdFlushData struct{ cmdRangeData }
type CmdInvalidateData struct{ cmdRangeData }
type CmdDiscardData struct{ cmdRangeData }

func (d *CmdFlushData) Clone() OpData      { c := *d; return &c }
func (d *CmdInvalidateData) Clone() OpData { c := *d; return &c }
func (d *CmdDiscardData) Clone() OpData    { c := *d; return &c }

func (b *Builder) CmdFlush(loc Location, target, offset, length *Value) *Operation {
	data := &CmdFlushData{cmdRangeData{Target: target, Offset: offset, Length: length}}
	op := b.newOp(KindCmdFlush, loc, data)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op
}

func (b *Builder) CmdInvalidate(loc Location, target, offset, length *Value) *Operation {
	data := &CmdInvalidateData{cmdRangeData{Target: target, Offset: offset, Length: length}}
	op := b.newOp(KindCmdInvalidate, loc, data)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op
}

func (b *Builder) CmdDiscard(loc Location, target, offset, length *Value) *Operation {
	data := &CmdDiscardData{cmdRangeData{Target: target, Offset: offset, Length: length}}
	op := b.newOp(KindCmdDiscard, loc, data)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op
}

// cmdRegionData backs cmd.serial and cmd.concurrent: pure groupings with no
// captures of their own, since nested cmd ops reference the enclosing
// execute region's block arguments directly.
type cmdRegionData struct{}

func (d *cmdRegionData) Operands() []*Value       { return nil }
func (d *cmdRegionData) SetOperand(int, *Value)   {}

type CmdSerialData struct{ cmdRegionData }
type CmdConcurrentData struct{ cmdRegionData }

func (d *CmdSerialData) Clone() OpData     { return &CmdSerialData{} }
func (d *CmdConcurrentData) Clone() OpData { return &CmdConcurrentData{} }

func (b *Builder) CmdSerial(loc Location) (op *Operation, body *Block) {
	op = b.newOp(KindCmdSerial, loc, &CmdSerialData{})
	region := op.AddRegion()
	body = region.AppendBlock()
	return op, body
}

func (b *Builder) CmdConcurrent(loc Location) (op *Operation, body *Block) {
	op = b.newOp(KindCmdConcurrent, loc, &CmdConcurrentData{})
	region := op.AddRegion()
	body = region.AppendBlock()
	return op, body
}

// CmdReturnData terminates an execute/concurrent/serial region body.
type CmdReturnData struct{}

func (d *CmdReturnData) Operands() []*Value  { return nil }
func (d *CmdReturnData) SetOperand(int, *Value) {}
func (d *CmdReturnData) Clone() OpData       { return &CmdReturnData{} }

func (b *Builder) CmdReturn(loc Location) *Operation {
	return b.newOp(KindCmdReturn, loc, &CmdReturnData{})
}
