package evaluator

// denseLimit is the widest output for which bucket counts live in a slice.
const denseLimit = 20

// buckets counts groups per hash value.
type buckets struct {
	dense  []int32
	sparse map[uint32]int
}

func newBuckets(wO int) buckets {
	if wO <= denseLimit {
		return buckets{dense: make([]int32, 1<<uint(wO))}
	}
	return buckets{sparse: map[uint32]int{}}
}

func (b *buckets) get(v uint32) int {
	if b.dense != nil {
		return int(b.dense[v])
	}
	return b.sparse[v]
}

func (b *buckets) add(v uint32, d int) {
	if b.dense != nil {
		b.dense[v] += int32(d)
		return
	}
	if n := b.sparse[v] + d; n != 0 {
		b.sparse[v] = n
	} else {
		delete(b.sparse, v)
	}
}
