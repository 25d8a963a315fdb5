package streamir

// ReplaceAllUsesWith redirects every use of old to new, leaving old with no
// uses. Callers are responsible for erasing old's defining op afterward if
// it is now dead; this function only rewires operands.
func ReplaceAllUsesWith(old, new *Value) {
	if old == new {
		return
	}
	uses := append([]*Use(nil), old.uses...)
	for _, u := range uses {
		u.Owner.SetOperand(u.OperandIndex, new)
	}
}

// ReplaceAllUsesExcept is ReplaceAllUsesWith but leaves uses owned by
// exempt untouched. Used where a pattern inserts an op that itself consumes
// old and redirects every other use to that op's result (capture-subview
// cloning, sinking a subview across an await, resource.pack base-offset
// propagation).
func ReplaceAllUsesExcept(old, new *Value, exempt map[*Operation]bool) {
	if old == new {
		return
	}
	uses := append([]*Use(nil), old.uses...)
	for _, u := range uses {
		if exempt[u.Owner] {
			continue
		}
		u.Owner.SetOperand(u.OperandIndex, new)
	}
}

// EraseOp removes op from its block. It panics if op still has a use,
// matching the rewriter's own precondition (patterns must replace uses
// before erasing); dead-code elimination is expected to check IsUnused
// results itself before calling this.
func EraseOp(op *Operation) {
	for _, r := range op.results {
		if !r.IsUnused() {
			panic("streamir: EraseOp on operation with live results")
		}
	}
	for i, v := range op.Operands() {
		if v != nil {
			v.removeUse(op, i)
		}
	}
	b := op.block
	if b == nil {
		return
	}
	idx := b.IndexOf(op)
	if idx < 0 {
		return
	}
	b.ops = append(b.ops[:idx], b.ops[idx+1:]...)
	b.region.markDomDirty()
	op.block = nil
}

// CanMoveBefore reports whether op can be relocated to just before target
// without violating dominance: every operand of op must be defined at or
// before the insertion point, and op must not need to move across a use of
// one of its own results that is not itself being moved along with it.
func CanMoveBefore(op, target *Operation) bool {
	if op.block != target.block {
		return false
	}
	targetIdx := op.block.IndexOf(target)
	for _, operand := range op.Operands() {
		if operand == nil {
			continue
		}
		def := operand.DefiningOp()
		if def == nil {
			continue // block argument, always dominates
		}
		if def.block != op.block {
			continue
		}
		if op.block.IndexOf(def) >= targetIdx {
			return false
		}
	}
	return true
}

// MoveBefore relocates op to immediately precede target within the same
// block. Panics if CanMoveBefore would return false; callers must check
// first (patterns do, before calling this from a rewrite).
func MoveBefore(op, target *Operation) {
	if !CanMoveBefore(op, target) {
		panic("streamir: illegal MoveBefore, would violate dominance")
	}
	b := op.block
	idx := b.IndexOf(op)
	b.ops = append(b.ops[:idx], b.ops[idx+1:]...)
	targetIdx := b.IndexOf(target)
	b.ops = append(b.ops, nil)
	copy(b.ops[targetIdx+1:], b.ops[targetIdx:])
	b.ops[targetIdx] = op
	b.region.markDomDirty()
}
