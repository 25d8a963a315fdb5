package streamir

func init() {
	RegisterVerifier(KindAsyncExecute, func(op *Operation) error {
		if len(op.regions) != 1 || len(op.regions[0].blocks) != 1 {
			return verifyErr(op, "async.execute must have exactly one single-block region")
		}
		data := op.data.(*AsyncExecuteData)
		if len(op.results) != len(data.Captures)+1 {
			return verifyErr(op, "async.execute must produce one result per capture plus a completion timepoint")
		}
		return nil
	})
	RegisterVerifier(KindAsyncConcurrent, func(op *Operation) error {
		if len(op.regions) != 1 || len(op.regions[0].blocks) != 1 {
			return verifyErr(op, "async.concurrent must have exactly one single-block region")
		}
		data := op.data.(*AsyncConcurrentData)
		if len(op.results) != len(data.Captures) {
			return verifyErr(op, "async.concurrent must produce one result per capture")
		}
		return nil
	})
}

// AsyncExecuteData schedules a region of cmd.* operations to run once every
// entry in AwaitTimepoints resolves, capturing a set of resources into the
// region's block arguments. Every result is tied 1:1 to the capture at the
// same index (spec's "regions consume by reference, produce by tie" model);
// the final result is always the completion timepoint and carries no tie.
//
// AwaitTimepoints is variable-length and its length can change under
// canonicalization (elide-immediate-awaits, dedup, chaining all shrink or
// grow it), unlike every other operand group on this op. Mutating it goes
// through Operation.SetAwaitTimepoints, not SetOperand, since SetOperand's
// per-index contract has no way to express a resize.
type AsyncExecuteData struct {
	Captures        []*Value
	CaptureSizes    []*Value
	AwaitTimepoints []*Value
	Affinity        Attribute
}

func (d *AsyncExecuteData) Operands() []*Value {
	ops := append(append([]*Value(nil), d.Captures...), d.CaptureSizes...)
	return append(ops, d.AwaitTimepoints...)
}
func (d *AsyncExecuteData) SetOperand(i int, v *Value) {
	n := len(d.Captures)
	switch {
	case i < n:
		d.Captures[i] = v
	case i < 2*n:
		d.CaptureSizes[i-n] = v
	case i-2*n < len(d.AwaitTimepoints):
		d.AwaitTimepoints[i-2*n] = v
	}
}
func (d *AsyncExecuteData) Clone() OpData {
	c := *d
	c.Captures = append([]*Value(nil), d.Captures...)
	c.CaptureSizes = append([]*Value(nil), d.CaptureSizes...)
	c.AwaitTimepoints = append([]*Value(nil), d.AwaitTimepoints...)
	return &c
}
func (d *AsyncExecuteData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex < len(d.Captures) {
		return resultIndex, true
	}
	return 0, false // final result is the timepoint, untied
}
func (d *AsyncExecuteData) AffinityAttr() Attribute { return d.Affinity }

// AsyncExecute begins building an execute region over the given captured
// resources; the caller populates the returned block with cmd.* ops
// operating on its block arguments (one per capture, in order) and closes
// it with a CmdReturn. Results returned are one resource per capture
// (tied) followed by the completion timepoint. awaits may be empty (the
// region is then ready to run immediately).
func (b *Builder) AsyncExecute(loc Location, captures, captureSizes, awaits []*Value, affinity Attribute) (op *Operation, body *Block) {
	data := &AsyncExecuteData{
		Captures: append([]*Value(nil), captures...), CaptureSizes: append([]*Value(nil), captureSizes...),
		AwaitTimepoints: append([]*Value(nil), awaits...), Affinity: affinity,
	}
	resultTypes := make([]Type, len(captures)+1)
	for i, c := range captures {
		resultTypes[i] = c.Type()
	}
	resultTypes[len(captures)] = &TimepointType{}
	op = b.newOp(KindAsyncExecute, loc, data, resultTypes...)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	region := op.AddRegion()
	argTypes := make([]Type, len(captures))
	for i, c := range captures {
		argTypes[i] = c.Type()
	}
	body = region.AppendBlock(argTypes...)
	return op, body
}

// SetAwaitTimepoints replaces op's await list wholesale. Unlike SetOperand,
// which only rewrites a fixed slot, this can change the operand count, so it
// manages the use-list bookkeeping SetOperand normally handles by hand: drop
// every use the old list held, then add one for each entry in newList.
// op must carry *AsyncExecuteData.
func (op *Operation) SetAwaitTimepoints(newList []*Value) {
	data := op.data.(*AsyncExecuteData)
	base := 2 * len(data.Captures)
	for i, old := range data.AwaitTimepoints {
		if old != nil {
			old.removeUse(op, base+i)
		}
	}
	data.AwaitTimepoints = append([]*Value(nil), newList...)
	for i, v := range data.AwaitTimepoints {
		if v != nil {
			v.addUse(&Use{Value: v, Owner: op, OperandIndex: base + i})
		}
	}
}

// AsyncConcurrentData groups a set of cmd.* operations that are
// independent of one another and may execute in any relative order within
// the enclosing execute region. Ties work the same way as AsyncExecuteData.
type AsyncConcurrentData struct {
	Captures     []*Value
	CaptureSizes []*Value
}

func (d *AsyncConcurrentData) Operands() []*Value {
	return append(append([]*Value(nil), d.Captures...), d.CaptureSizes...)
}
func (d *AsyncConcurrentData) SetOperand(i int, v *Value) {
	n := len(d.Captures)
	if i < n {
		d.Captures[i] = v
	} else {
		d.CaptureSizes[i-n] = v
	}
}
func (d *AsyncConcurrentData) Clone() OpData {
	c := *d
	c.Captures = append([]*Value(nil), d.Captures...)
	c.CaptureSizes = append([]*Value(nil), d.CaptureSizes...)
	return &c
}
func (d *AsyncConcurrentData) TiedOperand(resultIndex int) (int, bool) {
	if resultIndex < len(d.Captures) {
		return resultIndex, true
	}
	return 0, false
}

func (b *Builder) AsyncConcurrent(loc Location, captures, captureSizes []*Value) (op *Operation, body *Block) {
	data := &AsyncConcurrentData{Captures: append([]*Value(nil), captures...), CaptureSizes: append([]*Value(nil), captureSizes...)}
	resultTypes := make([]Type, len(captures))
	for i, c := range captures {
		resultTypes[i] = c.Type()
	}
	op = b.newOp(KindAsyncConcurrent, loc, data, resultTypes...)
	for i, v := range data.Operands() {
		useOperand(op, i, v)
	}
	region := op.AddRegion()
	argTypes := make([]Type, len(captures))
	for i, c := range captures {
		argTypes[i] = c.Type()
	}
	body = region.AppendBlock(argTypes...)
	return op, body
}
