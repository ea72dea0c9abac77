package metricsx

import (
	"io"
	"net/netip"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mmcloughlin/geohash"
	"github.com/pg9182/ip2x"
)

// GeoCounter2 is a standalone level-2 geohash-bucketed counter (1024 cells
// plus an "unknown" bucket). It must not be copied after first use.
type GeoCounter2 struct {
	name string
	ctr  [1 << (5 * 2)]uint64
	unk  uint64
}

// NewGeoCounter2 creates a new GeoCounter2 with the provided metric name,
// e.g. `stabping_addr_geohash_total{kind="tcpping"}`.
func NewGeoCounter2(name string) *GeoCounter2 {
	b, a := splitName(name)
	n := formatName(b, a, "geohash", "")
	if !strings.HasSuffix(n, `geohash=""}`) {
		panic("metricsx: unexpected formatName output")
	}
	return &GeoCounter2{name: n}
}

// Inc increments the counter bucket for the given latitude/longitude.
func (c *GeoCounter2) Inc(lat, lng float64) {
	if c == nil {
		return
	}
	if h := geohash2(lat, lng); h < 1<<(5*2) {
		atomic.AddUint64(&c.ctr[h], 1)
	}
}

// IncUnknown increments the bucket for addresses with no known location.
func (c *GeoCounter2) IncUnknown() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.unk, 1)
}

// WritePrometheus writes Prometheus text-format output for the counter.
func (c *GeoCounter2) WritePrometheus(w io.Writer) {
	n := len(c.name)
	b := make([]byte, 0, n+2+1+20+1)
	b = append(b, c.name...)
	w.Write(append(strconv.AppendUint(append(b, ' '), atomic.LoadUint64(&c.unk), 10), '\n'))
	b = append(b, `"} `...)
	_ = b[n-2]
	for h := uint64(0); h < 1<<(5*2); h++ {
		if v := atomic.LoadUint64(&c.ctr[h]); v != 0 {
			b[n-1] = "0123456789bcdefghjkmnpqrstuvwxyz"[(h>>0)&0x1f]
			b[n-2] = "0123456789bcdefghjkmnpqrstuvwxyz"[(h>>5)&0x1f]
			w.Write(append(strconv.AppendUint(b, v, 10), '\n'))
		}
	}
}

func geohash2(lat, lng float64) uint64 {
	return geohash.EncodeIntWithPrecision(lat, lng, 5*2)
}

// AddrGeoLocator resolves a probe target's IP to a (lat, lng) pair using an
// IP2Location-format database, and feeds a GeoCounter2. When db is nil
// every address is counted in the unknown bucket, so the feature is
// entirely opt-in (see SPEC_FULL.md §C.3).
type AddrGeoLocator struct {
	db *ip2x.DB
}

// NewAddrGeoLocator wraps db (which may be nil) for use by ObserveAddr.
func NewAddrGeoLocator(db *ip2x.DB) *AddrGeoLocator {
	return &AddrGeoLocator{db: db}
}

// ObserveAddr looks up ip and records it against ctr, falling back to the
// unknown bucket if there is no database loaded or the lookup fails.
func (g *AddrGeoLocator) ObserveAddr(ctr *GeoCounter2, ip netip.Addr) {
	if g == nil || g.db == nil || !ip.IsValid() {
		ctr.IncUnknown()
		return
	}
	rec, err := g.db.Lookup(ip)
	if err != nil {
		ctr.IncUnknown()
		return
	}
	lat, haveLat := rec.GetFloat(ip2x.Latitude)
	lng, haveLng := rec.GetFloat(ip2x.Longitude)
	if !haveLat || !haveLng {
		ctr.IncUnknown()
		return
	}
	ctr.Inc(lat, lng)
}
