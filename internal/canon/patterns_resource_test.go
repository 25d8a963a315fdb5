package canon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamcanon/internal/streamir"
)

func TestFoldsIdentitySubviewOfSplat(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 32)
	zero := bld.ConstIndex(loc, 0)
	value := bld.ConstIndex(loc, 1)
	splat := bld.AsyncSplat(loc, streamir.Transient, value, size)
	sub := bld.ResourceSubview(loc, splat, zero, size)
	bld.Return(loc, []*streamir.Value{sub})

	require.NoError(t, Run(m))

	ret := returnOperandsOf(t, m)
	require.Equal(t, splat, ret[0], "identity subview should fold away to the splat's own result")
}

func TestResourcePackOfZeroSlicesFoldsToZeroLengthSlab(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	_, total := bld.ResourcePack(loc, nil, nil)
	bld.Return(loc, []*streamir.Value{total})

	require.NoError(t, Run(m))

	ret := returnOperandsOf(t, m)
	totalV, ok := streamir.AsConstIndex(ret[0])
	require.True(t, ok)
	require.Equal(t, int64(0), totalV, "packing no slices produces a zero-length slab")
}

func TestResourcePackOfSingleSliceFoldsToItsOwnSize(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 48)
	offsets, total := bld.ResourcePack(loc, []*streamir.Value{size}, nil)
	bld.Return(loc, append(offsets, total))

	require.NoError(t, Run(m))

	ret := returnOperandsOf(t, m)
	require.Len(t, ret, 2)
	off0, ok := streamir.AsConstIndex(ret[0])
	require.True(t, ok)
	require.Equal(t, int64(0), off0, "a single slice with no base offset starts at zero")
	require.Equal(t, size, ret[1], "a single slice's total is just its own size")
}

func TestResourcePackOfSingleSliceFoldsOffsetToBaseOffset(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 48)
	base := bld.ConstIndex(loc, 32)
	offsets, total := bld.ResourcePack(loc, []*streamir.Value{size}, base)
	bld.Return(loc, append(offsets, total))

	require.NoError(t, Run(m))

	ret := returnOperandsOf(t, m)
	require.Len(t, ret, 2)
	require.Equal(t, base, ret[0], "a single slice's offset is its supplied base offset")
	require.Equal(t, size, ret[1])
}

func TestResourcePackOfMultipleSlicesSurvivesUnfolded(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	a := bld.ConstIndex(loc, 16)
	b := bld.ConstIndex(loc, 48)
	offsets, total := bld.ResourcePack(loc, []*streamir.Value{a, b}, nil)
	bld.Return(loc, append(offsets, total))

	require.NoError(t, Run(m))

	ret := returnOperandsOf(t, m)
	require.Len(t, ret, 3)
	require.Equal(t, streamir.KindResourcePack, ret[2].DefiningOp().Kind(), "packing more than one slice is an actual allocator decision, not a fold")
}

func TestResourcePackBaseOffsetPropagatesIntoEachSliceOffset(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	a := bld.ConstIndex(loc, 16)
	b := bld.ConstIndex(loc, 48)
	base := bld.ConstIndex(loc, 8)
	offsets, total := bld.ResourcePack(loc, []*streamir.Value{a, b}, base)
	bld.Return(loc, append(offsets, total))

	require.NoError(t, Run(m))

	packOp := total.DefiningOp()
	require.Equal(t, streamir.KindResourcePack, packOp.Kind())
	data := packOp.Data().(*streamir.ResourcePackData)
	require.Nil(t, data.BaseOffset, "the base offset should be stripped from the pack once propagated")

	ret := returnOperandsOf(t, m)
	for i := 0; i < 2; i++ {
		addOp := ret[i].DefiningOp()
		require.Equal(t, streamir.KindIndexAdd, addOp.Kind(), "each returned offset should now be the pack's own offset plus the base")
	}
}

func TestResourcePackZeroBaseOffsetIsJustStripped(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	a := bld.ConstIndex(loc, 16)
	b := bld.ConstIndex(loc, 48)
	zero := bld.ConstIndex(loc, 0)
	offsets, total := bld.ResourcePack(loc, []*streamir.Value{a, b}, zero)
	bld.Return(loc, append(offsets, total))

	require.NoError(t, Run(m))

	ret := returnOperandsOf(t, m)
	for i := 0; i < 2; i++ {
		require.NotEqual(t, streamir.KindIndexAdd, ret[i].DefiningOp().Kind(), "a zero base offset needs no index.add, just stripping")
	}
}

func TestResourceSizeFoldsToKnownProducerSize(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	splat := bld.AsyncSplat(loc, streamir.Transient, value, size)
	got := bld.ResourceSize(loc, splat)
	bld.Return(loc, []*streamir.Value{got})

	require.NoError(t, Run(m))
	require.Equal(t, size, returnOperandsOf(t, m)[0])
}

func returnOperandsOf(t *testing.T, m *streamir.Module) []*streamir.Value {
	t.Helper()
	block := m.EntryBlock()
	term := block.Terminator()
	require.NotNil(t, term, "module body should still have a terminator after canonicalization")
	return term.Data().(*streamir.ReturnData).Values
}
