package streamir

func init() {
	RegisterVerifier(KindResourceAlloc, verifyArity(1, 1))
	RegisterVerifier(KindResourceSubview, verifyArity(3, 1))
	RegisterVerifier(KindResourceSize, verifyArity(1, 1))
	RegisterVerifier(KindResourceMap, verifyArity(2, 1))
	RegisterVerifier(KindResourceTryMap, verifyArity(2, 2))
	RegisterVerifier(KindResourcePack, func(op *Operation) error {
		data, ok := op.Data().(*ResourcePackData)
		if !ok {
			return nil
		}
		if len(op.results) != len(data.Sizes)+1 {
			return verifyErr(op, "resource.pack must produce one offset per size plus a total")
		}
		return nil
	})
	RegisterVerifier(KindResourceConstants, func(op *Operation) error {
		if len(op.Operands()) != len(op.results) {
			return verifyErr(op, "resource.constants must produce one resource per size operand")
		}
		return nil
	})
	RegisterVerifier(KindResourceLoad, verifyArity(3, 1))
	RegisterVerifier(KindResourceStore, verifyArity(4, 1))
}

// ResourceAllocData allocates a new, uninitialized resource of a given byte
// size. Never tied: it has no operand resource to alias.
type ResourceAllocData struct {
	Size *Value
}

func (d *ResourceAllocData) Operands() []*Value  { return []*Value{d.Size} }
func (d *ResourceAllocData) SetOperand(i int, v *Value) {
	if i == 0 {
		d.Size = v
	}
}
func (d *ResourceAllocData) Clone() OpData { c := *d; return &c }
func (d *ResourceAllocData) SizeOfResult(resultIndex int) *Value {
	if resultIndex == 0 {
		return d.Size
	}
	return nil
}

func (b *Builder) ResourceAlloc(loc Location, lifetime Lifetime, size *Value) *Value {
	data := &ResourceAllocData{Size: size}
	op := b.newOp(KindResourceAlloc, loc, data, &ResourceType{Lifetime: lifetime})
	useOperand(op, 0, size)
	return op.Result(0)
}

// ResourceSubviewData produces a view of Source starting at Offset for
// Length bytes. The result is tied to Source: writes through the view alias
// the source buffer, so COW materialization counts it as a tied use of
// Source, but never inserts a clone in front of a subview itself.
type ResourceSubviewData struct {
	Source, Offset, Length *Value
}

func (d *ResourceSubviewData) Operands() []*Value { return []*Value{d.Source, d.Offset, d.Length} }
func (d *ResourceSubviewData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Source = v
	case 1:
		d.Offset = v
	case 2:
		d.Length = v
	}
}
func (d *ResourceSubviewData) Clone() OpData { c := *d; return &c }
func (d *ResourceSubviewData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex == 0 {
		return 0, true
	}
	return 0, false
}
func (d *ResourceSubviewData) SizeOfResult(resultIndex int) *Value {
	if resultIndex == 0 {
		return d.Length
	}
	return nil
}

func (b *Builder) ResourceSubview(loc Location, source, offset, length *Value) *Value {
	lt := source.Type().(*ResourceType).Lifetime
	data := &ResourceSubviewData{Source: source, Offset: offset, Length: length}
	op := b.newOp(KindResourceSubview, loc, data, &ResourceType{Lifetime: lt})
	useOperand(op, 0, source)
	useOperand(op, 1, offset)
	useOperand(op, 2, length)
	return op.Result(0)
}

// ResourceSizeData reads the byte size of a resource. Untied; foldable to
// the operand's own SizeAware producer when one is known (see
// internal/canon's resource-size fold).
type ResourceSizeData struct {
	Resource *Value
}

func (d *ResourceSizeData) Operands() []*Value { return []*Value{d.Resource} }
func (d *ResourceSizeData) SetOperand(i int, v *Value) {
	if i == 0 {
		d.Resource = v
	}
}
func (d *ResourceSizeData) Clone() OpData { c := *d; return &c }

func (b *Builder) ResourceSize(loc Location, resource *Value) *Value {
	data := &ResourceSizeData{Resource: resource}
	op := b.newOp(KindResourceSize, loc, data, &IndexType{})
	useOperand(op, 0, resource)
	return op.Result(0)
}

// ResourceMapData maps Length bytes of external, host-visible memory
// starting at Offset into a resource. Never tied.
type ResourceMapData struct {
	Offset, Length *Value
}

func (d *ResourceMapData) Operands() []*Value { return []*Value{d.Offset, d.Length} }
func (d *ResourceMapData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Offset = v
	case 1:
		d.Length = v
	}
}
func (d *ResourceMapData) Clone() OpData { c := *d; return &c }
func (d *ResourceMapData) SizeOfResult(resultIndex int) *Value {
	if resultIndex == 0 {
		return d.Length
	}
	return nil
}

func (b *Builder) ResourceMap(loc Location, offset, length *Value) *Value {
	data := &ResourceMapData{Offset: offset, Length: length}
	op := b.newOp(KindResourceMap, loc, data, &ResourceType{Lifetime: External})
	useOperand(op, 0, offset)
	useOperand(op, 1, length)
	return op.Result(0)
}

// ResourceTryMapData is ResourceMapData's failable form: a second i1 result
// reports whether the mapping succeeded, matching the original dialect's
// try_map (spec's original_source supplement).
type ResourceTryMapData struct {
	Offset, Length *Value
}

func (d *ResourceTryMapData) Operands() []*Value { return []*Value{d.Offset, d.Length} }
func (d *ResourceTryMapData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Offset = v
	case 1:
		d.Length = v
	}
}
func (d *ResourceTryMapData) Clone() OpData { c := *d; return &c }
func (d *ResourceTryMapData) SizeOfResult(resultIndex int) *Value {
	if resultIndex == 0 {
		return d.Length
	}
	return nil
}

func (b *Builder) ResourceTryMap(loc Location, offset, length *Value) (resource, didMap *Value) {
	data := &ResourceTryMapData{Offset: offset, Length: length}
	op := b.newOp(KindResourceTryMap, loc, data, &ResourceType{Lifetime: External}, &IntegerType{Bits: 1})
	useOperand(op, 0, offset)
	useOperand(op, 1, length)
	return op.Result(0), op.Result(1)
}

// ResourcePackData computes a packed offset for each requested Sizes[i]
// within a single allocation, plus the allocation's total size as the final
// result. BaseOffset is an optional extra displacement applied uniformly to
// every packed offset (a convenience for splitting a larger pack into
// several smaller ones; it has no effect on the packing decision itself).
// Folds away entirely when there are zero or one packed slices — the only
// cases with no actual packing to perform (see internal/canon), matching
// the original dialect's pack folder.
type ResourcePackData struct {
	Sizes      []*Value
	BaseOffset *Value // nil means no base offset
}

func (d *ResourcePackData) Operands() []*Value {
	if d.BaseOffset == nil {
		return d.Sizes
	}
	return append(append([]*Value(nil), d.Sizes...), d.BaseOffset)
}
func (d *ResourcePackData) SetOperand(i int, v *Value) {
	if i >= 0 && i < len(d.Sizes) {
		d.Sizes[i] = v
		return
	}
	if d.BaseOffset != nil && i == len(d.Sizes) {
		d.BaseOffset = v
	}
}
func (d *ResourcePackData) Clone() OpData {
	c := ResourcePackData{Sizes: append([]*Value(nil), d.Sizes...), BaseOffset: d.BaseOffset}
	return &c
}

func (b *Builder) ResourcePack(loc Location, sizes []*Value, baseOffset *Value) (offsets []*Value, total *Value) {
	data := &ResourcePackData{Sizes: append([]*Value(nil), sizes...), BaseOffset: baseOffset}
	resultTypes := make([]Type, len(sizes)+1)
	for i := range resultTypes {
		resultTypes[i] = &IndexType{}
	}
	op := b.newOp(KindResourcePack, loc, data, resultTypes...)
	for i, s := range sizes {
		useOperand(op, i, s)
	}
	if baseOffset != nil {
		useOperand(op, len(sizes), baseOffset)
	}
	return op.results[:len(sizes)], op.results[len(sizes)]
}

// ResourceConstantsData materializes N immutable resources in one op, each
// backed by Sizes[i] bytes of caller-supplied constant data.
type ResourceConstantsData struct {
	Sizes []*Value
}

func (d *ResourceConstantsData) Operands() []*Value { return d.Sizes }
func (d *ResourceConstantsData) SetOperand(i int, v *Value) {
	if i >= 0 && i < len(d.Sizes) {
		d.Sizes[i] = v
	}
}
func (d *ResourceConstantsData) Clone() OpData {
	c := ResourceConstantsData{Sizes: append([]*Value(nil), d.Sizes...)}
	return &c
}
func (d *ResourceConstantsData) SizeOfResult(resultIndex int) *Value {
	if resultIndex >= 0 && resultIndex < len(d.Sizes) {
		return d.Sizes[resultIndex]
	}
	return nil
}

func (b *Builder) ResourceConstants(loc Location, sizes []*Value) []*Value {
	data := &ResourceConstantsData{Sizes: append([]*Value(nil), sizes...)}
	resultTypes := make([]Type, len(sizes))
	for i := range resultTypes {
		resultTypes[i] = &ResourceType{Lifetime: Constant}
	}
	op := b.newOp(KindResourceConstants, loc, data, resultTypes...)
	for i, s := range sizes {
		useOperand(op, i, s)
	}
	return op.results
}

// ResourceLoadData reads a single scalar out of Source at byte Offset,
// outside any execution timeline: a host-visible peek at a resource's
// current contents. Untied: reading never aliases the source for write
// purposes.
type ResourceLoadData struct {
	Source, SourceSize, Offset *Value
}

func (d *ResourceLoadData) Operands() []*Value {
	return []*Value{d.Source, d.SourceSize, d.Offset}
}
func (d *ResourceLoadData) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		d.Source = v
	case 1:
		d.SourceSize = v
	case 2:
		d.Offset = v
	}
}
func (d *ResourceLoadData) Clone() OpData { c := *d; return &c }

func (b *Builder) ResourceLoad(loc Location, source, sourceSize, offset *Value, scalarType Type) *Value {
	data := &ResourceLoadData{Source: source, SourceSize: sourceSize, Offset: offset}
	op := b.newOp(KindResourceLoad, loc, data, scalarType)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.Result(0)
}

// ResourceStoreData writes Value into Target at byte Offset. Tied: the
// result aliases Target, matching resource.subview's write-through model so
// COW materialization and subview fusion treat it uniformly with the other
// tied resource ops.
type ResourceStoreData struct {
	Target, TargetSize, Offset, Value *Value
}

func (d *ResourceStoreData) Operands() []*Value {
	return []*Value{d.Target, d.TargetSize, d.Offset, d.Value}
}
func (d *ResourceStoreData) SetOperand(i int, v *Value) {
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
func (d *ResourceStoreData) Clone() OpData { c := *d; return &c }
func (d *ResourceStoreData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex == 0 {
		return 0, true
	}
	return 0, false
}
func (d *ResourceStoreData) SizeOfResult(resultIndex int) *Value {
	if resultIndex == 0 {
		return d.TargetSize
	}
	return nil
}

func (b *Builder) ResourceStore(loc Location, target, targetSize, offset, value *Value) *Value {
	data := &ResourceStoreData{Target: target, TargetSize: targetSize, Offset: offset, Value: value}
	op := b.newOp(KindResourceStore, loc, data, target.Type())
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.Result(0)
}
