package canon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamcanon/internal/streamir"
)

func TestUnusedAsyncDispatchIsElided(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	src := bld.ResourceAlloc(loc, streamir.Transient, size)
	bld.AsyncDispatch(loc, "kernel", []*streamir.Value{src}, []*streamir.Value{size}, []streamir.Type{&streamir.ResourceType{Lifetime: streamir.Transient}}, map[int]int{0: 0}, nil)
	bld.Return(loc, nil)

	require.NoError(t, canonicalizeAndVerify(m))

	for _, op := range m.EntryBlock().Operations() {
		require.NotEqual(t, streamir.KindAsyncDispatch, op.Kind(), "a dispatch whose result nobody observes should be elided")
	}
}

func TestAsyncDispatchSurvivesWhenResultIsUsed(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	src := bld.ResourceAlloc(loc, streamir.Transient, size)
	results := bld.AsyncDispatch(loc, "kernel", []*streamir.Value{src}, []*streamir.Value{size}, []streamir.Type{&streamir.ResourceType{Lifetime: streamir.Transient}}, map[int]int{0: 0}, nil)
	bld.Return(loc, results)

	require.NoError(t, canonicalizeAndVerify(m))

	ret := returnOperandsOf(t, m)
	require.Equal(t, streamir.KindAsyncDispatch, ret[0].DefiningOp().Kind(), "a dispatch whose result is observed must survive")
}

func TestUnusedResourceMapIsElided(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	offset := bld.ConstIndex(loc, 0)
	length := bld.ConstIndex(loc, 8)
	bld.ResourceMap(loc, offset, length)
	bld.Return(loc, nil)

	require.NoError(t, canonicalizeAndVerify(m))

	for _, op := range m.EntryBlock().Operations() {
		require.NotEqual(t, streamir.KindResourceMap, op.Kind(), "an unobserved mapping should be elided")
	}
}

func TestUnusedResourceTryMapIsElidedOnlyWhenBothResultsAreDead(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	offset := bld.ConstIndex(loc, 0)
	length := bld.ConstIndex(loc, 8)
	_, didMap := bld.ResourceTryMap(loc, offset, length)
	bld.Return(loc, []*streamir.Value{didMap})

	require.NoError(t, canonicalizeAndVerify(m))

	ret := returnOperandsOf(t, m)
	require.Equal(t, streamir.KindResourceTryMap, ret[0].DefiningOp().Kind(), "the mapping must survive while its success flag is still observed")
}
