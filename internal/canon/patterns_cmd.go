package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterPattern(streamir.KindCmdFlush, dedupAdjacentRangeBarrier)
	RegisterPattern(streamir.KindCmdInvalidate, dedupAdjacentRangeBarrier)
	RegisterPattern(streamir.KindCmdDiscard, dedupAdjacentRangeBarrier)
}

func rangeOf(op *streamir.Operation) (target, offset, length *streamir.Value, ok bool) {
	switch d := op.Data().(type) {
	case *streamir.CmdFlushData:
		return d.Target, d.Offset, d.Length, true
	case *streamir.CmdInvalidateData:
		return d.Target, d.Offset, d.Length, true
	case *streamir.CmdDiscardData:
		return d.Target, d.Offset, d.Length, true
	default:
		return nil, nil, nil, false
	}
}

// dedupAdjacentRangeBarrier drops a cache-management barrier that
// immediately repeats the one directly before it in program order over the
// identical byte range: the second one observes nothing new.
func dedupAdjacentRangeBarrier(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	b := op.Block()
	idx := b.IndexOf(op)
	if idx <= 0 {
		return false
	}
	prev := b.Operations()[idx-1]
	if prev.Kind() != op.Kind() {
		return false
	}
	pt, po, pl, ok := rangeOf(prev)
	if !ok {
		return false
	}
	t, o, l, ok := rangeOf(op)
	if !ok || t != pt || o != po || l != pl {
		return false
	}
	rw.EraseOp(op)
	return true
}
