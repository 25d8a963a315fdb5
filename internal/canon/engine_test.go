package canon

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"streamcanon/internal/streamir"
)

func TestTransferChainCollapsesToSingleHop(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	src := bld.AsyncSplat(loc, streamir.Transient, value, size)

	a := &streamir.AffinityAttr{Name: "a"}
	b := &streamir.AffinityAttr{Name: "b"}
	c := &streamir.AffinityAttr{Name: "c"}
	d := &streamir.AffinityAttr{Name: "d"}

	hop1 := bld.AsyncTransfer(loc, src, size, streamir.Staging, a, b)
	hop2 := bld.AsyncTransfer(loc, hop1, size, streamir.Transient, b, a)
	hop3 := bld.AsyncTransfer(loc, hop2, size, streamir.External, c, d)
	bld.Return(loc, []*streamir.Value{hop3})

	require.NoError(t, Run(m))

	ret := returnOperandsOf(t, m)
	require.Len(t, ret, 1)
	final := ret[0].DefiningOp()
	require.Equal(t, streamir.KindAsyncTransfer, final.Kind())
	data := final.Data().(*streamir.AsyncTransferData)
	require.Equal(t, src, data.Source, "the round trip back to the source's own placement should fold away, leaving one hop straight from the source")
	require.Equal(t, d, data.TargetAffinity)
}

func TestJoinOfDuplicatesAndImmediatesConvergesToOneOperand(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	src := bld.AsyncSplat(loc, streamir.Transient, value, size)
	imm0 := bld.TimepointImmediate(loc)
	execOp, body := bld.AsyncExecute(loc, []*streamir.Value{src}, []*streamir.Value{size}, []*streamir.Value{imm0}, nil)
	execBld := streamir.NewBuilder(body)
	execBld.CmdFill(loc, body.Args()[0], size, value, size)
	execBld.CmdReturn(loc)
	tp := execOp.Results()[len(execOp.Results())-1]

	imm1 := bld.TimepointImmediate(loc)
	imm2 := bld.TimepointImmediate(loc)

	joined := bld.TimepointJoin(loc, []*streamir.Value{tp, imm1, imm2})
	awaited := bld.TimepointAwait(loc, joined, []*streamir.Value{src}, []*streamir.Value{size})
	bld.Return(loc, awaited)

	require.NoError(t, Run(m))
	// The join should have folded away entirely once immediates are
	// dropped and a single real timepoint remains: nothing should still
	// reference a timepoint.join operation.
	for _, op := range m.EntryBlock().Operations() {
		require.NotEqual(t, streamir.KindTimepointJoin, op.Kind(), "join with a single surviving real operand should fold away")
	}
}

func TestCanonicalizationIsIdempotent(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	zero := bld.ConstIndex(loc, 0)

	a := &streamir.AffinityAttr{Name: "a"}
	b := &streamir.AffinityAttr{Name: "b"}
	c := &streamir.AffinityAttr{Name: "c"}

	splat := bld.AsyncSplat(loc, streamir.Transient, value, size)
	sub := bld.ResourceSubview(loc, splat, zero, size)
	hop1 := bld.AsyncTransfer(loc, sub, size, streamir.Staging, a, b)
	hop2 := bld.AsyncTransfer(loc, hop1, size, streamir.External, b, c)

	imm0 := bld.TimepointImmediate(loc)
	imm1 := bld.TimepointImmediate(loc)
	joined := bld.TimepointJoin(loc, []*streamir.Value{imm0, imm0, imm1})
	awaited := bld.TimepointAwait(loc, joined, []*streamir.Value{hop2}, []*streamir.Value{size})

	constants := bld.ResourceConstants(loc, []*streamir.Value{size})
	cst := constants[0]
	filled1 := bld.AsyncFill(loc, cst, size, value, size, value)
	filled2 := bld.AsyncFill(loc, cst, size, value, size, value)

	bld.Return(loc, append(awaited, filled1, filled2))

	require.NoError(t, Run(m))
	firstPass := snapshotModule(m)

	require.NoError(t, Run(m), "a second run over an already-canonical module must still succeed")
	secondPass := snapshotModule(m)

	require.Equal(t, firstPass, secondPass, "running canonicalization again on an already-canonical module must change nothing")
}

// snapshotModule renders enough of a module's shape to detect further
// rewriting: each operation's kind and operand identities, in block order,
// including nested region bodies. Two snapshots compare equal only if
// nothing about the module's structure (not just its size) changed between
// them, which a fresh *Value/*Operation identity from a real rewrite would
// break even if a result happened to land at the same list index.
func snapshotModule(m *streamir.Module) []string {
	var lines []string
	var walk func(r *streamir.Region)
	walk = func(r *streamir.Region) {
		if r == nil {
			return
		}
		for _, blk := range r.Blocks() {
			for _, op := range blk.Operations() {
				operands := op.Operands()
				ids := make([]int, len(operands))
				for i, v := range operands {
					if v != nil {
						ids[i] = v.ID()
					} else {
						ids[i] = -1
					}
				}
				lines = append(lines, fmt.Sprintf("%s %v", op.Kind(), ids))
				for _, nested := range op.Regions() {
					walk(nested)
				}
			}
		}
	}
	walk(m.Body())
	return lines
}

func TestLongChainOfFusibleRewritesStillTerminates(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 256)
	value := bld.ConstIndex(loc, 0)
	splat := bld.AsyncSplat(loc, streamir.Transient, value, size)

	// A long chain of nested identity subviews, each wrapping the one
	// before it at a growing offset: every inner subview has exactly one
	// use, so each step both fuses into its neighbor and cascades another
	// fusion opportunity outward. A driver that doesn't converge cleanly
	// here would hit FixedPointError well before 40 hops.
	var offset int64
	cur := splat
	for i := 0; i < 40; i++ {
		off := bld.ConstIndex(loc, offset)
		length := bld.ConstIndex(loc, 256-offset)
		cur = bld.ResourceSubview(loc, cur, off, length)
		offset++
	}
	bld.Return(loc, []*streamir.Value{cur})

	require.NoError(t, Run(m), "a long chain of fusible subviews must still reach a fixed point within budget")

	ret := returnOperandsOf(t, m)
	fused := ret[0].DefiningOp()
	require.Equal(t, streamir.KindResourceSubview, fused.Kind())
	data := fused.Data().(*streamir.ResourceSubviewData)
	require.Equal(t, splat, data.Source, "forty nested subviews should still fuse down to a single subview of the original splat")
}

func TestFixedPointCapIsGenerousEnoughForRealModules(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	var prev *streamir.Value
	for i := 0; i < 25; i++ {
		prev = bld.ConstIndex(loc, int64(i))
	}
	bld.Return(loc, []*streamir.Value{prev})

	require.NoError(t, Run(m), "a module with no oscillating patterns must never hit the fixed-point cap")
}
