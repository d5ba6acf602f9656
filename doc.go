// Package bitvec provides a fixed-capacity bit vector with a compact binary
// serialization format.
//
// Bits are packed MSB-first: bit i lives in byte i/8 at position 7-(i%8),
// so bit 0 is the most significant bit of byte 0. The packing is part of the
// wire contract and never changes.
//
// # Quick Start
//
//	bv, err := bitvec.New(9)
//	if err != nil {
//	    return err
//	}
//	defer bv.Release()
//
//	_ = bv.Set(0)
//	_ = bv.Set(8)   // bytes are now 0x80 0x80
//	on, _ := bv.Get(8)
//
//	data, _ := bitvec.Serialize(bv)
//	clone, _ := bitvec.Deserialize(data)
//
// # Raw Format
//
//	Offset  Length      Field        Encoding
//	0       4           numEntries   uint32, native byte order
//	4       4           byteLength   uint32, native byte order
//	8       byteLength  bit storage  packed bits, MSB-first
//
// The raw format has no magic, version or checksum and assumes producer and
// consumer share byte order. Package frame wraps it in a self-describing
// container when payloads cross machines.
//
// # Errors
//
// Every operation validates its preconditions and returns one of the
// sentinel errors (ErrNullArgument, ErrInvalidArgument, ErrEmpty,
// ErrNotInitialized, ErrIndexOutOfBounds, ErrOutOfMemory) without mutating
// the vector. Match them with errors.Is.
//
// # Concurrency
//
// A BitVector is not safe for concurrent use. Callers must serialize access.
//
// # Memory Budget
//
// WithController charges backing buffers against a [resource.Controller];
// allocations that exceed the budget fail with ErrOutOfMemory.
package bitvec
