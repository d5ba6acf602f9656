package bitvec

import (
	"encoding/binary"
	"errors"
	"io"
)

// HeaderSize is the size of the raw serialization header:
// numEntries and byteLength as uint32 in native byte order.
const HeaderSize = 8

// Serialize encodes bv in the raw format:
//
//	[0,4)            numEntries  uint32, native byte order
//	[4,8)            byteLength  uint32, native byte order
//	[8,8+byteLength) backing buffer, verbatim
//
// The format carries no byte-order marker; producer and consumer must share
// byte order. The returned slice is owned by the caller.
func Serialize(bv *BitVector) ([]byte, error) {
	if err := bv.ready(); err != nil {
		return nil, err
	}
	return bv.appendRaw(make([]byte, 0, HeaderSize+int(bv.byteLength))), nil
}

func (bv *BitVector) appendRaw(b []byte) []byte {
	b = binary.NativeEndian.AppendUint32(b, bv.numEntries)
	b = binary.NativeEndian.AppendUint32(b, bv.byteLength)
	return append(b, bv.bits...)
}

// Deserialize decodes a raw payload produced by Serialize into a new,
// independently owned BitVector. data is neither retained nor modified.
func Deserialize(data []byte, opts ...Option) (*BitVector, error) {
	numEntries, byteLength, err := parseRaw(data)
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	bv, err := allocate(numEntries, byteLength, o.rc)
	if err != nil {
		return nil, err
	}
	copy(bv.bits, data[HeaderSize:])
	return bv, nil
}

func parseRaw(data []byte) (numEntries, byteLength uint32, err error) {
	if data == nil {
		return 0, 0, ErrNullArgument
	}
	if len(data) < HeaderSize {
		return 0, 0, formatErr(ErrNullArgument, "payload of %d bytes is shorter than the %d-byte header", len(data), HeaderSize)
	}
	numEntries = binary.NativeEndian.Uint32(data[0:4])
	byteLength = binary.NativeEndian.Uint32(data[4:8])
	if err := validateHeader(numEntries, byteLength); err != nil {
		return 0, 0, err
	}
	if uint64(len(data)-HeaderSize) < uint64(byteLength) {
		return 0, 0, formatErr(ErrNullArgument, "payload truncated: want %d data bytes, have %d", byteLength, len(data)-HeaderSize)
	}
	return numEntries, byteLength, nil
}

// validateHeader applies New's preconditions to a decoded header. A header
// byteLength above ceil(numEntries/8) is kept as-is; one below it would leave
// valid indices without storage.
func validateHeader(numEntries, byteLength uint32) error {
	if numEntries < 1 {
		return ErrEmpty
	}
	if want := bytesFor(numEntries); byteLength < want {
		return formatErr(ErrInvalidArgument, "byte length %d too small for %d entries (need %d)", byteLength, numEntries, want)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler using the raw format.
func (bv *BitVector) MarshalBinary() ([]byte, error) {
	return Serialize(bv)
}

// AppendBinary implements encoding.BinaryAppender using the raw format.
func (bv *BitVector) AppendBinary(b []byte) ([]byte, error) {
	if err := bv.ready(); err != nil {
		return b, err
	}
	return bv.appendRaw(b), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. On success bv takes
// over a fresh buffer in place of its previous one; on error bv is left
// untouched.
func (bv *BitVector) UnmarshalBinary(data []byte) error {
	if bv == nil {
		return ErrNullArgument
	}
	numEntries, byteLength, err := parseRaw(data)
	if err != nil {
		return err
	}
	return bv.replace(numEntries, byteLength, func(buf []byte) error {
		copy(buf, data[HeaderSize:])
		return nil
	})
}

// replace swaps in a new buffer filled by fill. Only the growth over the
// current buffer is charged to the controller.
func (bv *BitVector) replace(numEntries, byteLength uint32, fill func([]byte) error) error {
	have, need := int64(len(bv.bits)), int64(byteLength)
	if need > have && !bv.rc.TryAcquireMemory(need-have) {
		return ErrOutOfMemory
	}
	buf := make([]byte, byteLength)
	if err := fill(buf); err != nil {
		if need > have {
			bv.rc.ReleaseMemory(need - have)
		}
		return err
	}
	if need < have {
		bv.rc.ReleaseMemory(have - need)
	}
	bv.numEntries = numEntries
	bv.byteLength = byteLength
	bv.bits = buf
	return nil
}

// WriteTo writes the raw encoding of bv to w.
func (bv *BitVector) WriteTo(w io.Writer) (int64, error) {
	if err := bv.ready(); err != nil {
		return 0, err
	}
	var hdr [HeaderSize]byte
	binary.NativeEndian.PutUint32(hdr[0:4], bv.numEntries)
	binary.NativeEndian.PutUint32(hdr[4:8], bv.byteLength)

	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(bv.bits)
	return int64(n + m), err
}

// ReadFrom reads exactly one raw encoding from r and replaces the contents
// of bv. On error bv is left untouched.
func (bv *BitVector) ReadFrom(r io.Reader) (int64, error) {
	if bv == nil {
		return 0, ErrNullArgument
	}
	var hdr [HeaderSize]byte
	n, err := io.ReadFull(r, hdr[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return int64(n), formatErr(ErrNullArgument, "short header: %v", err)
		}
		return int64(n), err
	}
	numEntries := binary.NativeEndian.Uint32(hdr[0:4])
	byteLength := binary.NativeEndian.Uint32(hdr[4:8])
	if err := validateHeader(numEntries, byteLength); err != nil {
		return int64(n), err
	}

	var m int
	err = bv.replace(numEntries, byteLength, func(buf []byte) error {
		var err error
		m, err = io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return formatErr(ErrNullArgument, "payload truncated: want %d data bytes, have %d", byteLength, m)
		}
		return err
	})
	return int64(n + m), err
}
