package probe

import (
	"context"
	"math"
	"net"
	"net/netip"
	"time"

	"github.com/rs/zerolog"

	"github.com/jordanbertasso/stabping-go/internal/metricsx"
)

// Measurer performs a single measurement of addr, returning a value in
// milliseconds or NaN on failure. TCPConnect is the production
// implementation; tests may substitute a fake.
type Measurer func(ctx context.Context, addr string) float32

// Worker runs the forever scheduling loop (spec §4.4) for one probe kind: it
// snapshots Options, fans out one measurement task per address, harvests
// whatever finished within the tick's interval, and sends a TimePackage to
// Dispatch. The interval sleep doubles as the per-measurement deadline — any
// task still outstanding when the tick ends is recorded as NaN.
type Worker struct {
	Manager  *Manager
	Kind     Kind
	Dispatch chan<- TimePackage
	Logger   zerolog.Logger
	Measure  Measurer

	// GeoLocator feeds the supplemental addr-geohash metric (SPEC_FULL.md
	// §C.3). Nil (the default) means every address is counted as unknown.
	GeoLocator *metricsx.AddrGeoLocator

	// clock lets tests control t0 independently of wall-clock time.
	clock func() time.Time
}

// NewWorker constructs a Worker for m using TCPConnect as the measurer.
func NewWorker(m *Manager, dispatch chan<- TimePackage, logger zerolog.Logger) *Worker {
	return &Worker{
		Manager:  m,
		Kind:     m.Kind,
		Dispatch: dispatch,
		Logger:   logger,
		Measure:  TCPConnect,
		clock:    time.Now,
	}
}

type entryResult struct {
	addrID AddrID
	value  float32
}

// observeAddrGeo feeds the addr-geohash metric from addr's host, if it is
// already a literal IP; hostnames are counted as unknown rather than
// triggering a DNS lookup on every tick.
func (w *Worker) observeAddrGeo(addr string) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		defaultMetrics.addr_geohash.IncUnknown()
		return
	}
	w.GeoLocator.ObserveAddr(defaultMetrics.addr_geohash, ip)
}

// Run executes the scheduling loop until ctx is cancelled. In-flight
// measurement tasks when ctx is cancelled are abandoned (no harvest
// guarantee), matching spec §4.4's cancellation contract.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.tick(ctx)
	}
}

func (w *Worker) tick(ctx context.Context) {
	snap := w.Manager.Options()
	if snap.IntervalMS == 0 {
		snap.IntervalMS = 1000
	}
	interval := time.Duration(snap.IntervalMS) * time.Millisecond

	addrs := snap.Addrs
	t0 := w.clock().Unix()

	results := make(chan entryResult, len(addrs))
	for _, addrID := range addrs {
		addr, ok := w.Manager.AddrIndex().AddrOf(addrID)
		if !ok {
			results <- entryResult{addrID: addrID, value: float32(math.NaN())}
			continue
		}
		w.observeAddrGeo(addr)
		go func(id AddrID, a string) {
			mctx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			v := w.Measure(mctx, a)
			select {
			case results <- entryResult{addrID: id, value: v}:
			default:
			}
		}(addrID, addr)
	}

	sleep := time.NewTimer(interval)
	select {
	case <-ctx.Done():
		sleep.Stop()
		return
	case <-sleep.C:
	}

	byAddr := make(map[AddrID]float32, len(addrs))
drain:
	for {
		select {
		case r := <-results:
			byAddr[r.addrID] = r.value
		default:
			break drain
		}
	}

	entries := make([]Entry, len(addrs))
	for i, addrID := range addrs {
		v, ok := byAddr[addrID]
		if !ok {
			v = float32(math.NaN())
		}
		entries[i] = Entry{AddrID: addrID, Value: v, SD: float32(math.NaN())}
	}

	pkg := TimePackage{
		Kind:    w.Kind,
		Nonce:   snap.Nonce,
		TimeS:   uint32(t0),
		Entries: entries,
	}

	defaultMetrics.worker_ticks_total(w.Kind.Name()).Inc()
	defaultMetrics.worker_tick_measurements.Update(float64(len(entries)))

	select {
	case w.Dispatch <- pkg:
	case <-ctx.Done():
	}
}
