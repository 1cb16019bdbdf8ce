// Package wire centralizes the single byte order this protocol uses on
// the wire, the way the teacher's own encoding/binary wrapper centralizes
// binary.ByteOrder for its callers.
package wire

import "encoding/binary"

// ByteOrder is re-exported so callers never need to import encoding/binary
// directly just to name BigEndian.
type ByteOrder = binary.ByteOrder

// BigEndian is the only byte order this protocol uses on the wire.
var BigEndian ByteOrder = binary.BigEndian

// PutUint16 writes the big-endian encoding of v into b[0:2].
func PutUint16(b []byte, v uint16) {
	BigEndian.PutUint16(b, v)
}

// Uint16 reads a big-endian uint16 from the front of b.
func Uint16(b []byte) uint16 {
	return BigEndian.Uint16(b)
}
