package predicate

import "github.com/google/btree"

// boundaryItem is one bucket's lower edge, ordered by value for btree storage.
type boundaryItem struct {
	value  int
	bucket int
}

func (b boundaryItem) Less(other btree.Item) bool {
	return b.value < other.(boundaryItem).value
}

// bucketBoundaryIndex is an ordered index over a histogram's bucket lower
// edges. It backs the LIKE-prefix range estimate: a "prefix%" predicate is
// treated as a range over the encoded prefix, and the index finds which
// buckets that range spans without a linear scan.
type bucketBoundaryIndex struct {
	tree *btree.BTree
}

// newBucketBoundaryIndex builds an index of h's bucket lower edges.
func newBucketBoundaryIndex(h *IntHistogram) *bucketBoundaryIndex {
	tree := btree.New(8)
	for i := range h.buckets {
		left, _ := h.bucketBounds(i)
		tree.ReplaceOrInsert(boundaryItem{value: left, bucket: i})
	}
	return &bucketBoundaryIndex{tree: tree}
}

// firstBucketAtOrAfter returns the lowest bucket whose left edge is >= v,
// or -1 if v is past every bucket's left edge.
func (idx *bucketBoundaryIndex) firstBucketAtOrAfter(v int) int {
	found := -1
	idx.tree.AscendGreaterOrEqual(boundaryItem{value: v}, func(item btree.Item) bool {
		found = item.(boundaryItem).bucket
		return false
	})
	return found
}

// EstimatePrefixSelectivity estimates the selectivity of a "LIKE prefix%"
// predicate by treating it as a range query over the encoded prefix and
// summing the bucket fractions the range spans.
func (h *StringHistogram) EstimatePrefixSelectivity(prefix string) float64 {
	if h.inner.ntups == 0 {
		return 0.0
	}
	idx := newBucketBoundaryIndex(h.inner)
	lo := encodeStringPrefix(prefix)
	n := len(prefix)
	if n > stringEncodeLen {
		n = stringEncodeLen
	}
	hi := lo + 1<<(8*(stringEncodeLen-n))
	start := h.inner.bucketFor(lo)
	end := idx.firstBucketAtOrAfter(hi)
	if end < 0 {
		end = len(h.inner.buckets)
	}
	var total int64
	for i := start; i < end; i++ {
		total += h.inner.buckets[i]
	}
	return float64(total) / float64(h.inner.ntups)
}
