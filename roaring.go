package bitvec

import "github.com/RoaringBitmap/roaring/v2"

// ToRoaring returns a roaring bitmap containing the indices of all set bits.
func (bv *BitVector) ToRoaring() (*roaring.Bitmap, error) {
	if err := bv.ready(); err != nil {
		return nil, err
	}
	rb := roaring.New()
	for i := range bv.All() {
		rb.Add(i)
	}
	return rb, nil
}

// FromRoaring creates a vector of numEntries bits with every index in rb set.
// Every index in rb must be below numEntries.
func FromRoaring(rb *roaring.Bitmap, numEntries uint32, opts ...Option) (*BitVector, error) {
	if rb == nil {
		return nil, ErrNullArgument
	}
	if !rb.IsEmpty() {
		if hi := rb.Maximum(); hi >= numEntries {
			if numEntries < 1 {
				return nil, ErrEmpty
			}
			return nil, &IndexError{Index: hi, Len: numEntries}
		}
	}
	bv, err := New(numEntries, opts...)
	if err != nil {
		return nil, err
	}
	it := rb.Iterator()
	for it.HasNext() {
		i := it.Next()
		bv.bits[i/8] |= mask(i)
	}
	return bv, nil
}
