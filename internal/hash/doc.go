// Package hash provides the CRC32-Castagnoli checksum used by framed bit
// vector payloads.
//
//	checksum := hash.CRC32C(payload)
//
//	h := hash.NewCRC32C()
//	h.Write(header)
//	h.Write(body)
//	checksum := h.Sum32()
//
// hash/crc32 uses SSE4.2 or the ARM CRC extension for this polynomial when
// the CPU has them.
package hash
