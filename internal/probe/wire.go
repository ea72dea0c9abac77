package probe

import (
	"encoding/binary"
	"math"
)

// EncodeBroadcastFrame builds the live-broadcast wire frame for pkg (spec
// §6.3): u32 kind_id | u32 time_s | one f32 per subscribed addr, in
// Options.Addrs order, all little-endian. The values are taken in the order
// of pkg's own entries, which the Worker builds in Options.Addrs order.
func EncodeBroadcastFrame(pkg TimePackage) []byte {
	buf := make([]byte, 8+4*len(pkg.Entries))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(pkg.Kind.ID()))
	binary.LittleEndian.PutUint32(buf[4:8], pkg.TimeS)
	for i, e := range pkg.Entries {
		binary.LittleEndian.PutUint32(buf[8+4*i:12+4*i], math.Float32bits(e.Value))
	}
	return buf
}
