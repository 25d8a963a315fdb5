package streamir

func init() {
	RegisterVerifier(KindTimepointImmediate, verifyArity(0, 1))
	RegisterVerifier(KindTimepointAwait, func(op *Operation) error {
		data := op.data.(*TimepointAwaitData)
		if len(op.results) != len(data.Resources) {
			return verifyErr(op, "timepoint.await must produce one resource per awaited resource operand")
		}
		return nil
	})
}

// TimepointImmediateData is the always-ready timepoint constant, the
// canonical target for folding an await of a join with no other operands
// and for representing "no wait needed" without a sentinel nil operand.
type TimepointImmediateData struct{}

func (d *TimepointImmediateData) Operands() []*Value     { return nil }
func (d *TimepointImmediateData) SetOperand(int, *Value) {}
func (d *TimepointImmediateData) Clone() OpData          { return &TimepointImmediateData{} }

func (b *Builder) TimepointImmediate(loc Location) *Value {
	op := b.newOp(KindTimepointImmediate, loc, &TimepointImmediateData{}, &TimepointType{})
	return op.Result(0)
}

// TimepointJoinData resolves once every one of Timepoints has resolved.
// Immediate operands, duplicate operands, and a lone remaining operand all
// fold away (see internal/canon), matching the original dialect's
// AsyncJoinOp folder chain.
type TimepointJoinData struct {
	Timepoints []*Value
}

func (d *TimepointJoinData) Operands() []*Value { return d.Timepoints }
func (d *TimepointJoinData) SetOperand(i int, v *Value) {
	if i >= 0 && i < len(d.Timepoints) {
		d.Timepoints[i] = v
	}
}
func (d *TimepointJoinData) Clone() OpData {
	c := TimepointJoinData{Timepoints: append([]*Value(nil), d.Timepoints...)}
	return &c
}

func (b *Builder) TimepointJoin(loc Location, timepoints []*Value) *Value {
	data := &TimepointJoinData{Timepoints: append([]*Value(nil), timepoints...)}
	op := b.newOp(KindTimepointJoin, loc, data, &TimepointType{})
	for i, v := range timepoints {
		useOperand(op, i, v)
	}
	return op.Result(0)
}

// TimepointAwaitData blocks until Timepoint resolves, then hands back each
// of Resources as ready for host-side/CPU use. Each result is tied 1:1 to
// the resource operand at the same position.
type TimepointAwaitData struct {
	Timepoint     *Value
	Resources     []*Value
	ResourceSizes []*Value
}

func (d *TimepointAwaitData) Operands() []*Value {
	ops := append([]*Value{d.Timepoint}, d.Resources...)
	return append(ops, d.ResourceSizes...)
}
func (d *TimepointAwaitData) SetOperand(i int, v *Value) {
	n := len(d.Resources)
	switch {
	case i == 0:
		d.Timepoint = v
	case i-1 < n:
		d.Resources[i-1] = v
	default:
		d.ResourceSizes[i-1-n] = v
	}
}
func (d *TimepointAwaitData) Clone() OpData {
	c := *d
	c.Resources = append([]*Value(nil), d.Resources...)
	c.ResourceSizes = append([]*Value(nil), d.ResourceSizes...)
	return &c
}
func (d *TimepointAwaitData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex < len(d.Resources) {
		return resultIndex + 1, true
	}
	return 0, false
}

func (b *Builder) TimepointAwait(loc Location, timepoint *Value, resources, resourceSizes []*Value) []*Value {
	data := &TimepointAwaitData{Timepoint: timepoint, Resources: append([]*Value(nil), resources...), ResourceSizes: append([]*Value(nil), resourceSizes...)}
	resultTypes := make([]Type, len(resources))
	for i, r := range resources {
		resultTypes[i] = r.Type()
	}
	op := b.newOp(KindTimepointAwait, loc, data, resultTypes...)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	return op.results
}
