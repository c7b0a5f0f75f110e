package db

import (
	"encoding/binary"
	"math"
)

// VectorToBytes encodes a float32 vector as the little-endian blob
// RediSearch expects for FLOAT32 vector fields.
func VectorToBytes(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
