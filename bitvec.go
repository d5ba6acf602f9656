package bitvec

import (
	"bytes"
	"iter"
	"math/bits"
	"strings"

	"github.com/hupe1980/bitvec/resource"
)

// BitVector is a fixed-capacity array of bits packed MSB-first into bytes:
// bit i lives in byte i/8 at position 7-(i%8), so bit 0 is the most
// significant bit of byte 0.
//
// A BitVector exclusively owns its buffer. It is not safe for concurrent use;
// concurrent Set/Clear on bits sharing a byte race.
type BitVector struct {
	numEntries uint32
	byteLength uint32
	bits       []byte
	rc         *resource.Controller
}

// New creates a BitVector with numEntries bits, all clear.
func New(numEntries uint32, opts ...Option) (*BitVector, error) {
	if numEntries < 1 {
		return nil, ErrEmpty
	}
	o := applyOptions(opts)
	return allocate(numEntries, bytesFor(numEntries), o.rc)
}

// bytesFor returns ceil(numEntries/8) without overflowing near MaxUint32.
func bytesFor(numEntries uint32) uint32 {
	n := numEntries / 8
	if numEntries%8 != 0 {
		n++
	}
	return n
}

func allocate(numEntries, byteLength uint32, rc *resource.Controller) (*BitVector, error) {
	if !rc.TryAcquireMemory(int64(byteLength)) {
		return nil, ErrOutOfMemory
	}
	return &BitVector{
		numEntries: numEntries,
		byteLength: byteLength,
		bits:       make([]byte, byteLength),
		rc:         rc,
	}, nil
}

// Release frees the backing buffer and resets the vector to an empty,
// unusable state. Every later access returns ErrNotInitialized.
// Calling Release more than once is a no-op.
func (bv *BitVector) Release() {
	if bv == nil || bv.bits == nil {
		return
	}
	bv.rc.ReleaseMemory(int64(len(bv.bits)))
	bv.bits = nil
	bv.numEntries = 0
	bv.byteLength = 0
	bv.rc = nil
}

func (bv *BitVector) ready() error {
	if bv == nil {
		return ErrNullArgument
	}
	if bv.bits == nil {
		return ErrNotInitialized
	}
	return nil
}

func (bv *BitVector) check(i uint32) error {
	if err := bv.ready(); err != nil {
		return err
	}
	if i >= bv.numEntries {
		return &IndexError{Index: i, Len: bv.numEntries}
	}
	return nil
}

func mask(i uint32) byte {
	return 1 << (7 - i%8)
}

// Get reports whether bit i is set.
func (bv *BitVector) Get(i uint32) (bool, error) {
	if err := bv.check(i); err != nil {
		return false, err
	}
	return bv.bits[i/8]&mask(i) != 0, nil
}

// Bit returns bit i as 0 or 1.
func (bv *BitVector) Bit(i uint32) (uint8, error) {
	if err := bv.check(i); err != nil {
		return 0, err
	}
	return bv.bits[i/8] >> (7 - i%8) & 1, nil
}

// Set sets bit i to 1.
func (bv *BitVector) Set(i uint32) error {
	if err := bv.check(i); err != nil {
		return err
	}
	bv.bits[i/8] |= mask(i)
	return nil
}

// Clear sets bit i to 0.
func (bv *BitVector) Clear(i uint32) error {
	if err := bv.check(i); err != nil {
		return err
	}
	bv.bits[i/8] &^= mask(i)
	return nil
}

// SetTo sets bit i to val, which must be 0 or 1.
func (bv *BitVector) SetTo(i uint32, val uint8) error {
	if err := bv.check(i); err != nil {
		return err
	}
	switch val {
	case 0:
		bv.bits[i/8] &^= mask(i)
	case 1:
		bv.bits[i/8] |= mask(i)
	default:
		return ErrInvalidArgument
	}
	return nil
}

// ClearAll zeroes every bit. Len and ByteLen are unchanged.
func (bv *BitVector) ClearAll() error {
	if err := bv.ready(); err != nil {
		return err
	}
	clear(bv.bits)
	return nil
}

// Len returns the number of addressable bits (0 once released).
func (bv *BitVector) Len() uint32 {
	if bv == nil {
		return 0
	}
	return bv.numEntries
}

// ByteLen returns the length of the backing buffer in bytes.
func (bv *BitVector) ByteLen() uint32 {
	if bv == nil {
		return 0
	}
	return bv.byteLength
}

// Bytes returns a copy of the backing buffer.
func (bv *BitVector) Bytes() []byte {
	if bv == nil {
		return nil
	}
	return bytes.Clone(bv.bits)
}

// Count returns the number of set bits among the addressable indices.
func (bv *BitVector) Count() int {
	if bv.ready() != nil {
		return 0
	}
	used := bv.bits[:bytesFor(bv.numEntries)]
	count := 0
	for _, b := range used[:len(used)-1] {
		count += bits.OnesCount8(b)
	}
	last := used[len(used)-1]
	if rem := bv.numEntries % 8; rem != 0 {
		last &= 0xFF << (8 - rem)
	}
	return count + bits.OnesCount8(last)
}

// NextSet returns the index of the first set bit at or after from.
func (bv *BitVector) NextSet(from uint32) (uint32, bool) {
	if bv.ready() != nil || from >= bv.numEntries {
		return 0, false
	}
	idx := from / 8
	limit := bytesFor(bv.numEntries)
	b := bv.bits[idx] & (0xFF >> (from % 8))
	for {
		if b != 0 {
			i := idx*8 + uint32(bits.LeadingZeros8(b))
			if i < bv.numEntries {
				return i, true
			}
			return 0, false
		}
		idx++
		if idx >= limit {
			return 0, false
		}
		b = bv.bits[idx]
	}
}

// All returns an iterator over the indices of set bits in ascending order.
func (bv *BitVector) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		i, ok := bv.NextSet(0)
		for ok {
			if !yield(i) {
				return
			}
			i, ok = bv.NextSet(i + 1)
		}
	}
}

// Equal reports whether both vectors have the same sizes and buffer bytes.
func (bv *BitVector) Equal(other *BitVector) bool {
	if bv == nil || other == nil {
		return bv == other
	}
	return bv.numEntries == other.numEntries &&
		bv.byteLength == other.byteLength &&
		bytes.Equal(bv.bits, other.bits)
}

// Clone returns an independent deep copy charged to the same memory budget.
func (bv *BitVector) Clone() (*BitVector, error) {
	if err := bv.ready(); err != nil {
		return nil, err
	}
	out, err := allocate(bv.numEntries, bv.byteLength, bv.rc)
	if err != nil {
		return nil, err
	}
	copy(out.bits, bv.bits)
	return out, nil
}

// String renders the vector as a string of '0' and '1', bit 0 first.
func (bv *BitVector) String() string {
	switch {
	case bv == nil:
		return "<nil>"
	case bv.bits == nil:
		return "<released>"
	}
	var sb strings.Builder
	sb.Grow(int(bv.numEntries))
	for i := uint32(0); i < bv.numEntries; i++ {
		if bv.bits[i/8]&mask(i) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
