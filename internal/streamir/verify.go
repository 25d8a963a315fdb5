package streamir

import "fmt"

// VerificationError reports a single structural or dominance violation
// found while verifying a module. The canonicalizer runs Verify once, after
// its worklist has quiesced; the demo CLI also runs it before
// canonicalization.
type VerificationError struct {
	Op      *Operation
	Message string
}

func (e *VerificationError) Error() string {
	if e.Op == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op.Loc(), e.Message, e.Op.Kind())
}

func verifyErr(op *Operation, msg string) error {
	return &VerificationError{Op: op, Message: msg}
}

func verifyArity(operands, results int) VerifyFunc {
	return func(op *Operation) error {
		if len(op.Operands()) != operands {
			return verifyErr(op, fmt.Sprintf("expected %d operands, got %d", operands, len(op.Operands())))
		}
		if len(op.results) != results {
			return verifyErr(op, fmt.Sprintf("expected %d results, got %d", results, len(op.results)))
		}
		return nil
	}
}

// Verify walks the module checking the six structural invariants the
// canonicalizer depends on:
//  1. every operand is defined by a dominating operation or a dominating
//     block argument;
//  2. every tied result's type equals the type of the operand it is tied
//     to;
//  3. no tied operand is a Constant-lifetime resource (COW forbids
//     mutating a constant in place; a module relying on this invariant
//     must route a Constant through async.clone before any tied write);
//  4. cmd.* operations only occur inside an async.execute (transitively, a
//     cmd.serial/cmd.concurrent) region body;
//  5. a block's terminator, if any, is its last operation;
//  6. per-kind operand/result arity matches the kind's registered verifier.
func Verify(m *Module) error {
	return verifyRegion(m.body, false)
}

func verifyRegion(r *Region, insideCmdRegion bool) error {
	for _, b := range r.blocks {
		if err := verifyBlock(b, insideCmdRegion); err != nil {
			return err
		}
	}
	return nil
}

func verifyBlock(b *Block, insideCmdRegion bool) error {
	for i, op := range b.ops {
		if op.IsTerminator() && i != len(b.ops)-1 {
			return verifyErr(op, "terminator is not the last operation in its block")
		}
		if fn, ok := verifiers[op.kind]; ok {
			if err := fn(op); err != nil {
				return err
			}
		}
		isCmd := op.kind >= KindCmdFill && op.kind <= KindCmdReturn
		if isCmd && !insideCmdRegion {
			return verifyErr(op, "cmd operation used outside an execute region")
		}
		for _, operand := range op.Operands() {
			if operand == nil {
				return verifyErr(op, "nil operand")
			}
			defBlock := operand.DefiningBlock()
			if defBlock == nil {
				continue
			}
			if !dominatesOperandUse(operand, op) {
				return verifyErr(op, "operand not dominated by its definition")
			}
		}
		for ri := range op.results {
			if tiedTo, ok := op.TiedOperand(ri); ok {
				operand := op.Operand(tiedTo)
				if operand == nil {
					continue
				}
				if !operand.Type().Equal(op.results[ri].Type()) {
					return verifyErr(op, "tied result type does not match tied operand type")
				}
				if rt, ok := operand.Type().(*ResourceType); ok && rt.Lifetime == Constant {
					return verifyErr(op, "tied operand is a Constant-lifetime resource")
				}
			}
		}
		childInsideCmd := insideCmdRegion || op.kind == KindAsyncExecute
		for _, region := range op.regions {
			if err := verifyRegion(region, childInsideCmd); err != nil {
				return err
			}
		}
	}
	return nil
}

func dominatesOperandUse(operand *Value, use *Operation) bool {
	if operand.IsBlockArgument() {
		return blockDominates(operand.OwnerBlock(), use.block) || operand.OwnerBlock() == use.block
	}
	def := operand.DefiningOp()
	if def == nil {
		return false
	}
	return Dominates(def, use)
}
