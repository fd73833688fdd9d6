package bitvector

// Variants iterates over the concrete vectors a pattern stands for. The
// don't-care positions are resolved in binary counter order, the lowest
// position being the least significant counter bit. Vectors are built lazily.
//
//	it := v.Variants()
//	for it.Next() {
//		use(it.Value())
//	}
type Variants struct {
	bits      []Bit
	undefined []int
	offset    int
	count     int
	started   bool
}

// Variants returns a fresh iterator over the variants of v.
func (v Vector) Variants() *Variants {
	it := &Variants{bits: v.Bits()}
	for i, b := range it.bits {
		if b == DontCare {
			it.undefined = append(it.undefined, i)
		}
	}
	it.count = 1 << uint(len(it.undefined))
	it.Reset()
	return it
}

// Reset rewinds the iterator to before the first variant.
func (it *Variants) Reset() {
	it.offset = 0
	it.started = false
	it.resolve()
}

// Next advances to the next variant, returning false once all have been seen.
func (it *Variants) Next() bool {
	if !it.started {
		it.started = true
		return it.count > 0
	}
	if it.offset+1 >= it.count {
		it.offset = it.count
		return false
	}
	it.offset++
	it.resolve()
	return true
}

func (it *Variants) resolve() {
	for i, pos := range it.undefined {
		it.bits[pos] = Bit((it.offset >> uint(i)) & 1)
	}
}

// Index is the counter value of the current variant.
func (it *Variants) Index() int {
	return it.offset
}

// Len is the total number of variants.
func (it *Variants) Len() int {
	return it.count
}

// Value returns the current variant.
func (it *Variants) Value() Vector {
	return New(it.bits...)
}

// First returns the variant with every don't-care resolved to zero.
func (v Vector) First() Vector {
	if v.IsConcrete() {
		return v
	}
	res := v.Bits()
	for i, b := range res {
		if b == DontCare {
			res[i] = Zero
		}
	}
	return New(res...)
}

// All materializes every variant of v.
func (v Vector) All() []Vector {
	res := make([]Vector, 0, v.VariantsCount())
	it := v.Variants()
	for it.Next() {
		res = append(res, it.Value())
	}
	return res
}
