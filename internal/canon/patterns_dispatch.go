package canon

import "streamcanon/internal/streamir"

func init() {
	// async.dispatch invokes an opaque executable entry point: canonicalization
	// never simplifies what a dispatch computes, only whether its results are
	// observed at all. This is the same stance the original dialect takes on
	// its own dispatch op (it canonicalizes operand lists and tie sets, never
	// the effect), and it's exactly ElideUnused's job: async.dispatch carries
	// side effects, so the driver's own dead-code check leaves it alone, but a
	// dispatch every one of whose results the caller discarded still has
	// nothing left to observe it.
	RegisterPattern(streamir.KindAsyncDispatch, ElideUnused)
}
