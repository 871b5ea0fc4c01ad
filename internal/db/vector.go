package db

import (
	"encoding/binary"
	"math"
)

// VectorToBytes encodes a float32 vector as the little-endian binary blob
// FT.SEARCH and HSET vector fields expect.
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
