// Package frame wraps the raw bit vector encoding in a self-describing
// container with a magic number, format version, byte-order tag and CRC32C
// checksum.
//
// Layout (header integers are little-endian):
//
//	Offset  Length  Field
//	0       4       magic "BVF1"
//	4       1       version (1)
//	5       1       byte order of the raw payload ('L' or 'B')
//	6       2       reserved, zero
//	8       4       payload length
//	12      4       CRC32C of payload
//	16      n       raw payload (see bitvec.Serialize)
//
// The raw payload keeps the producer's native byte order. Decode swaps the
// raw header words when the tag differs from the host, so framed payloads
// can move between machines of different endianness.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/bitvec"
	"github.com/hupe1980/bitvec/internal/hash"
)

const (
	// Magic identifies framed payloads.
	Magic = "BVF1"
	// Version is the current container version.
	Version = 1
	// HeaderSize is the size of the container header.
	HeaderSize = 16

	// OrderLittle tags a little-endian raw payload.
	OrderLittle byte = 'L'
	// OrderBig tags a big-endian raw payload.
	OrderBig byte = 'B'
)

var (
	// ErrInvalidMagic is returned when data does not start with Magic.
	ErrInvalidMagic = errors.New("frame: invalid magic")
	// ErrUnsupportedVersion is returned for a container version other than Version.
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	// ErrInvalidByteOrder is returned when the byte-order tag is neither OrderLittle nor OrderBig.
	ErrInvalidByteOrder = errors.New("frame: invalid byte order tag")
	// ErrChecksumMismatch is returned when the payload does not match its CRC32C.
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
	// ErrTruncated is returned when data is shorter than the header or its declared payload.
	ErrTruncated = errors.New("frame: truncated")
)

// Header is the decoded container header.
type Header struct {
	Version    uint8
	ByteOrder  byte
	PayloadLen uint32
	Checksum   uint32
}

// NativeOrder returns the byte-order tag of the running host.
func NativeOrder() byte {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 1 {
		return OrderLittle
	}
	return OrderBig
}

// Encode frames the raw encoding of bv.
func Encode(bv *bitvec.BitVector) ([]byte, error) {
	if bv == nil {
		return nil, bitvec.ErrNullArgument
	}
	buf := make([]byte, HeaderSize, HeaderSize+bitvec.HeaderSize+int(bv.ByteLen()))
	buf, err := bv.AppendBinary(buf)
	if err != nil {
		return nil, err
	}
	payload := buf[HeaderSize:]

	copy(buf[0:4], Magic)
	buf[4] = Version
	buf[5] = NativeOrder()
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[12:16], hash.CRC32C(payload))
	return buf, nil
}

// ParseHeader validates and decodes the container header of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d for header", ErrTruncated, len(data), HeaderSize)
	}
	if string(data[0:4]) != Magic {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		Version:    data[4],
		ByteOrder:  data[5],
		PayloadLen: binary.LittleEndian.Uint32(data[8:12]),
		Checksum:   binary.LittleEndian.Uint32(data[12:16]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.ByteOrder != OrderLittle && h.ByteOrder != OrderBig {
		return Header{}, fmt.Errorf("%w: %q", ErrInvalidByteOrder, h.ByteOrder)
	}
	return h, nil
}

// Decode verifies a framed payload and decodes it into a new BitVector.
// data is neither retained nor modified.
func Decode(data []byte, opts ...bitvec.Option) (*bitvec.BitVector, error) {
	if data == nil {
		return nil, bitvec.ErrNullArgument
	}
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)-HeaderSize) < uint64(h.PayloadLen) {
		return nil, fmt.Errorf("%w: payload wants %d bytes, have %d", ErrTruncated, h.PayloadLen, len(data)-HeaderSize)
	}
	payload := data[HeaderSize : HeaderSize+int(h.PayloadLen)]
	if sum := hash.CRC32C(payload); sum != h.Checksum {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksumMismatch, sum, h.Checksum)
	}

	if h.ByteOrder != NativeOrder() && len(payload) >= bitvec.HeaderSize {
		swapped := make([]byte, len(payload))
		copy(swapped, payload)
		swapWords(swapped[0:bitvec.HeaderSize])
		payload = swapped
	}
	return bitvec.Deserialize(payload, opts...)
}

// swapWords reverses the byte order of each 4-byte word in b.
func swapWords(b []byte) {
	for i := 0; i+4 <= len(b); i += 4 {
		b[i], b[i+1], b[i+2], b[i+3] = b[i+3], b[i+2], b[i+1], b[i]
	}
}
