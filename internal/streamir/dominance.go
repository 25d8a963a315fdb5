package streamir

// domCache memoizes the immediate-dominator map for a region's block list
// keyed by the region itself; Block/Region mutation invalidates its entry
// via markDomDirty rather than keeping it incrementally correct.
var domCache = map[*Region]map[*Block]*Block{}

// idom computes immediate dominators for a region under the simplifying
// assumption this IR actually needs: blocks within a region execute in
// list order with fallthrough control flow (no conditional branches), so
// block i's sole predecessor is block i-1. This covers straight-line
// function bodies and execute-region bodies, which is everything the
// canonicalizer's patterns reason about.
func idom(r *Region) map[*Block]*Block {
	if r == nil {
		return nil
	}
	if cached, ok := domCache[r]; ok {
		return cached
	}
	m := make(map[*Block]*Block, len(r.blocks))
	for i, b := range r.blocks {
		if i == 0 {
			m[b] = nil
			continue
		}
		m[b] = r.blocks[i-1]
	}
	domCache[r] = m
	return m
}

// blockDominates reports whether a dominates b within their common region.
func blockDominates(a, b *Block) bool {
	if a == nil || b == nil {
		return false
	}
	if a.region != b.region {
		return false
	}
	m := idom(a.region)
	for cur := b; cur != nil; cur = m[cur] {
		if cur == a {
			return true
		}
	}
	return false
}

// Dominates reports whether operation a dominates operation b: every
// execution reaching b must have already executed a. Handles the
// cross-region case used by sinking patterns — an operation dominates
// everything inside a nested region owned by an operation it dominates and
// precedes (or is) in the same block.
func Dominates(a, b *Operation) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.block != nil && a.block == b.block {
		return a.block.IndexOf(a) <= b.block.IndexOf(b)
	}
	// Walk b up through its enclosing regions until we land in a's block,
	// or exhaust the nesting, checking blockDominates at each level for
	// blocks that are siblings under fallthrough flow.
	for cur := b; cur != nil; {
		curBlock := cur.block
		if curBlock == nil {
			return false
		}
		if curBlock == a.block {
			return a.block.IndexOf(a) <= curBlock.IndexOf(cur)
		}
		if blockDominates(a.block, curBlock) {
			return true
		}
		parentRegion := curBlock.region
		if parentRegion == nil || parentRegion.parent == nil {
			return false
		}
		cur = parentRegion.parent
	}
	return false
}

// StrictlyDominates is Dominates excluding the identity case.
func StrictlyDominates(a, b *Operation) bool {
	return a != b && Dominates(a, b)
}

// NearestCommonDominatorBlock returns the innermost block that dominates
// both a and b, walking up through region nesting as needed.
func NearestCommonDominatorBlock(a, b *Block) *Block {
	if a == nil || b == nil {
		return nil
	}
	ancestors := map[*Block]bool{}
	for cur := a; cur != nil; {
		ancestors[cur] = true
		if cur.region == nil || cur.region.parent == nil {
			break
		}
		cur = cur.region.parent.block
	}
	for cur := b; cur != nil; {
		if ancestors[cur] {
			return cur
		}
		if cur.region == nil || cur.region.parent == nil {
			return nil
		}
		cur = cur.region.parent.block
	}
	return nil
}
