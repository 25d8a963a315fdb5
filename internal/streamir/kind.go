package streamir

// Kind identifies an operation's family and behavior. It is the tag half of
// the "tagged variants with capability lookup" design (spec §9): dispatch on
// Kind is only ever used for structural questions (is this a terminator,
// does it have side effects); operand-level behavior always goes through the
// OpData capability interfaces instead of a kind switch.
type Kind int

const (
	KindInvalid Kind = iota

	// resource.* — buffer-level operations outside any execution timeline.
	KindResourceAlloc
	KindResourceSubview
	KindResourceSize
	KindResourceMap
	KindResourceTryMap
	KindResourcePack
	KindResourceConstants
	KindResourceLoad
	KindResourceStore

	// tensor.* — host-visible values not yet placed against a timepoint.
	KindTensorConstant
	KindTensorSplat
	KindTensorClone

	// async.* — resource operations scheduled against a timepoint.
	KindAsyncSplat
	KindAsyncClone
	KindAsyncSlice
	KindAsyncFill
	KindAsyncUpdate
	KindAsyncCopy
	KindAsyncTransfer
	KindAsyncDispatch
	KindAsyncLoad
	KindAsyncStore
	KindAsyncExecute
	KindAsyncConcurrent

	// cmd.* — valid only inside an async.execute region body.
	KindCmdFill
	KindCmdCopy
	KindCmdDispatch
	KindCmdFlush
	KindCmdInvalidate
	KindCmdDiscard
	KindCmdSerial
	KindCmdConcurrent
	KindCmdReturn

	// timepoint.* — first-class completion events.
	KindTimepointImmediate
	KindTimepointJoin
	KindTimepointAwait

	// module-level terminator for a builder-modeled function body.
	KindReturn

	// KindConstIndex materializes a compile-time-known index/integer value,
	// the only source of constants patterns can reason about numerically
	// (offsets, sizes, splat fill values).
	KindConstIndex

	// KindIndexAdd is a generic scalar add over index-typed values, the one
	// arithmetic primitive the pattern library needs to compute a fused
	// offset (subview-of-subview, subview-into-load/store/cmd.*) without
	// resorting to a fold that isn't allowed to create new operations.
	KindIndexAdd
)

var kindNames = map[Kind]string{
	KindResourceAlloc:      "resource.alloc",
	KindResourceSubview:    "resource.subview",
	KindResourceSize:       "resource.size",
	KindResourceMap:        "resource.map",
	KindResourceTryMap:     "resource.try_map",
	KindResourcePack:       "resource.pack",
	KindResourceConstants:  "resource.constants",
	KindResourceLoad:       "resource.load",
	KindResourceStore:      "resource.store",
	KindTensorConstant:     "tensor.constant",
	KindTensorSplat:        "tensor.splat",
	KindTensorClone:        "tensor.clone",
	KindAsyncSplat:         "async.splat",
	KindAsyncClone:         "async.clone",
	KindAsyncSlice:         "async.slice",
	KindAsyncFill:          "async.fill",
	KindAsyncUpdate:        "async.update",
	KindAsyncCopy:          "async.copy",
	KindAsyncTransfer:      "async.transfer",
	KindAsyncDispatch:      "async.dispatch",
	KindAsyncLoad:          "async.load",
	KindAsyncStore:         "async.store",
	KindAsyncExecute:       "async.execute",
	KindAsyncConcurrent:    "async.concurrent",
	KindCmdFill:            "cmd.fill",
	KindCmdCopy:            "cmd.copy",
	KindCmdDispatch:        "cmd.dispatch",
	KindCmdFlush:           "cmd.flush",
	KindCmdInvalidate:      "cmd.invalidate",
	KindCmdDiscard:         "cmd.discard",
	KindCmdSerial:          "cmd.serial",
	KindCmdConcurrent:      "cmd.concurrent",
	KindCmdReturn:          "cmd.return",
	KindTimepointImmediate: "timepoint.immediate",
	KindTimepointJoin:      "timepoint.join",
	KindTimepointAwait:     "timepoint.await",
	KindReturn:             "return",
	KindConstIndex:         "const_index",
	KindIndexAdd:           "index.add",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "<invalid>"
}

type kindTraits struct {
	terminator    bool
	sideEffecting bool
	hasRegion     bool
}

var kindInfo = map[Kind]kindTraits{
	KindReturn:          {terminator: true},
	KindCmdReturn:        {terminator: true},
	KindAsyncExecute:    {sideEffecting: true, hasRegion: true},
	KindAsyncConcurrent: {sideEffecting: true, hasRegion: true},
	KindCmdSerial:       {sideEffecting: true, hasRegion: true},
	KindCmdConcurrent:   {sideEffecting: true, hasRegion: true},
	KindCmdFill:         {sideEffecting: true},
	KindCmdCopy:         {sideEffecting: true},
	KindCmdFlush:        {sideEffecting: true},
	KindCmdInvalidate:   {sideEffecting: true},
	KindCmdDiscard:      {sideEffecting: true},
	KindAsyncDispatch:   {sideEffecting: true},
	KindCmdDispatch:     {sideEffecting: true},
	KindAsyncStore:      {sideEffecting: true},
	KindResourceStore:   {sideEffecting: true},
}
