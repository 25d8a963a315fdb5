package streamir

import "testing"

func TestValueUseTracking(t *testing.T) {
	m := NewModule("t")
	bld := NewBuilder(m.EntryBlock())
	loc := Location{File: "t.ir", Line: 1}

	size := bld.ConstIndex(loc, 16)
	value := bld.ConstIndex(loc, 0)
	splat := bld.AsyncSplat(loc, Transient, value, size)

	if !size.HasOneUse() {
		t.Fatalf("expected size to have exactly one use before second use added, got %d", len(size.Uses()))
	}

	sub := bld.ResourceSubview(loc, splat, value, size)
	if size.HasOneUse() {
		t.Fatalf("size should now have two uses (splat and subview)")
	}
	if len(size.Uses()) != 2 {
		t.Fatalf("expected 2 uses, got %d", len(size.Uses()))
	}
	if !sub.IsUnused() {
		t.Fatalf("subview result should have no uses yet")
	}
}

func TestReplaceAllUsesWith(t *testing.T) {
	m := NewModule("t")
	bld := NewBuilder(m.EntryBlock())
	loc := Location{}

	a := bld.ConstIndex(loc, 1)
	bVal := bld.ConstIndex(loc, 2)
	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	splat := bld.AsyncSplat(loc, Transient, value, size)
	_ = bld.ResourceSubview(loc, splat, a, size)

	ReplaceAllUsesWith(a, bVal)
	if !a.IsUnused() {
		t.Fatalf("a should have no uses after ReplaceAllUsesWith")
	}
	if len(bVal.Uses()) != 1 {
		t.Fatalf("b should have picked up the redirected use, got %d uses", len(bVal.Uses()))
	}
}

func TestEraseOpPanicsOnLiveResult(t *testing.T) {
	m := NewModule("t")
	bld := NewBuilder(m.EntryBlock())
	loc := Location{}
	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	splat := bld.AsyncSplat(loc, Transient, value, size)
	_ = bld.ResourceSubview(loc, splat, value, size) // keeps splat's result live

	defer func() {
		if recover() == nil {
			t.Fatalf("expected EraseOp to panic on an operation with live results")
		}
	}()
	EraseOp(splat.DefiningOp())
}
