package probe

import (
	"encoding/binary"
	"math"
)

// SampleSize is the packed on-disk and on-wire size of a Sample, in bytes.
const SampleSize = 16

// Sample is a fixed 16-byte record appended to a SampleLog. Reinterpreting
// raw little-endian bytes as host-memory Samples is not attempted anywhere
// in this package: every Sample is
// explicitly encoded/decoded through EncodeSample/DecodeSample so the
// layout is correct regardless of host endianness.
type Sample struct {
	TimeS  uint32
	AddrID uint32
	Value  float32
	SD     float32
}

// IsAggregate reports whether sd is a real standard deviation rather than
// the single-measurement marker (a NaN SD). A zero SD counts as an
// aggregate.
func (s Sample) IsAggregate() bool {
	return !math.IsNaN(float64(s.SD))
}

// EncodeSample writes s into b, which must be at least SampleSize bytes.
func EncodeSample(b []byte, s Sample) {
	_ = b[SampleSize-1]
	binary.LittleEndian.PutUint32(b[0:4], s.TimeS)
	binary.LittleEndian.PutUint32(b[4:8], s.AddrID)
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(s.Value))
	binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(s.SD))
}

// DecodeSample reads a Sample out of b, which must be at least SampleSize
// bytes.
func DecodeSample(b []byte) Sample {
	_ = b[SampleSize-1]
	return Sample{
		TimeS:  binary.LittleEndian.Uint32(b[0:4]),
		AddrID: binary.LittleEndian.Uint32(b[4:8]),
		Value:  math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		SD:     math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])),
	}
}

// nodataBits is the reserved NaN bit pattern used for the NODATA sentinel on
// the wire and in the Reader's scratch slots. It is bit-distinguishable from
// the default quiet NaN (0x7fc00000) that workers emit for measurement
// failure (see SPEC_FULL.md §E).
const nodataBits uint32 = 0x7fc00001

// NODATA is the sentinel value emitted by the Reader for a time group in
// which a currently-subscribed AddrId has no stored sample.
var NODATA = math.Float32frombits(nodataBits)

// IsNODATA reports whether v is the NODATA sentinel (as opposed to an
// ordinary measurement-failure NaN or a real value).
func IsNODATA(v float32) bool {
	return math.Float32bits(v) == nodataBits
}
