package streamir

// Module is the top-level container: a single function-shaped body region.
// The canonicalizer never models multiple functions or call graphs (spec's
// non-goals exclude interprocedural reasoning), so one body region is all
// that's needed to host every operation family under test.
type Module struct {
	Name string
	body *Region
}

func NewModule(name string) *Module {
	m := &Module{Name: name}
	m.body = NewRegion(nil)
	return m
}

func (m *Module) Body() *Region { return m.body }

// EntryBlock returns the module's single entry block, creating it on first
// use.
func (m *Module) EntryBlock() *Block {
	if len(m.body.blocks) == 0 {
		return m.body.AppendBlock()
	}
	return m.body.blocks[0]
}

// Builder provides fluent, side-effecting construction of operations at a
// cursor position within a block, mirroring how the pattern rewriter inserts
// new ops (see internal/rewrite.Rewriter, which reuses these constructors).
type Builder struct {
	block       *Block
	insertBefore int // index in block.ops to insert before; -1 = append
}

// NewBuilder returns a Builder appending to the end of b.
func NewBuilder(b *Block) *Builder {
	return &Builder{block: b, insertBefore: -1}
}

// AtEnd repositions the builder to append at the end of b.
func (bld *Builder) AtEnd(b *Block) { bld.block = b; bld.insertBefore = -1 }

// Before repositions the builder to insert immediately before op, which
// must belong to the block it is set on.
func (bld *Builder) Before(op *Operation) {
	bld.block = op.block
	bld.insertBefore = bld.block.IndexOf(op)
}

func (bld *Builder) insert(op *Operation) *Operation {
	op.block = bld.block
	if bld.insertBefore < 0 {
		bld.block.ops = append(bld.block.ops, op)
	} else {
		ops := bld.block.ops
		ops = append(ops, nil)
		copy(ops[bld.insertBefore+1:], ops[bld.insertBefore:])
		ops[bld.insertBefore] = op
		bld.block.ops = ops
		bld.insertBefore++
	}
	bld.block.region.markDomDirty()
	return op
}

func (bld *Builder) newOp(kind Kind, loc Location, data OpData, resultTypes ...Type) *Operation {
	id := bld.block.region.allocOpID()
	op := newOperation(id, kind, loc, data)
	for i, t := range resultTypes {
		v := &Value{id: bld.block.region.allocValueID(), typ: t, def: op, resI: i}
		op.results = append(op.results, v)
	}
	return bld.insert(op)
}

// useOperand records a use of v by op at slot i without going through
// SetOperand's remove-old-use path, for freshly constructed operations only.
func useOperand(op *Operation, i int, v *Value) {
	if v != nil {
		v.addUse(&Use{Value: v, Owner: op, OperandIndex: i})
	}
}
