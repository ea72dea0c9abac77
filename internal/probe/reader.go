package probe

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"sort"
)

// RangeQuery services one historical range query (spec §4.6). nonce must
// match the manager's current options nonce or ErrNonceConflict is
// returned and nothing is written. On success it streams the selected
// slice of the Raw sample log into w as a sequence of rows: u32 time_s
// followed by one f32 per currently-subscribed address (in Options.Addrs
// order), all little-endian. A slot left untouched within a time group is
// written as NODATA (see IsNODATA), which is bit-distinct from an ordinary
// measurement-failure NaN.
func RangeQuery(m *Manager, nonce int32, lowerS, upperS uint32, w io.Writer) error {
	currentNonce, ordered := m.CurrentIndices()
	if nonce != currentNonce {
		defaultMetrics.reader_queries_total.reject_nonce(m.Kind.Name()).Inc()
		return ErrNonceConflict
	}

	mapped, err := m.RawLog().Map()
	if err != nil {
		defaultMetrics.reader_queries_total.fail_other(m.Kind.Name()).Inc()
		return err
	}
	defer mapped.Close()

	n := mapped.Len()
	begin := sort.Search(n, func(i int) bool { return mapped.At(i).TimeS >= lowerS })
	end := sort.Search(n, func(i int) bool { return mapped.At(i).TimeS > upperS })

	bw := bufio.NewWriter(w)
	if begin >= end {
		if err := bw.Flush(); err != nil {
			defaultMetrics.reader_queries_total.fail_other(m.Kind.Name()).Inc()
			return err
		}
		defaultMetrics.reader_queries_total.success(m.Kind.Name()).Inc()
		return nil
	}

	slotIndex := make(map[AddrID]int, len(ordered))
	for i, id := range ordered {
		slotIndex[id] = i
	}
	slots := make([]float32, len(ordered))
	resetSlots := func() {
		for i := range slots {
			slots[i] = NODATA
		}
	}
	resetSlots()

	var hdr [4]byte
	var val [4]byte

	writeRow := func(timeS uint32) error {
		binary.LittleEndian.PutUint32(hdr[:], timeS)
		if _, err := bw.Write(hdr[:]); err != nil {
			return err
		}
		for _, v := range slots {
			binary.LittleEndian.PutUint32(val[:], math.Float32bits(v))
			if _, err := bw.Write(val[:]); err != nil {
				return err
			}
		}
		return nil
	}

	groupTime := mapped.At(begin).TimeS
	for i := begin; i < end; i++ {
		s := mapped.At(i)
		if s.TimeS != groupTime {
			if err := writeRow(groupTime); err != nil {
				defaultMetrics.reader_queries_total.fail_other(m.Kind.Name()).Inc()
				return err
			}
			resetSlots()
			groupTime = s.TimeS
		}
		if slot, ok := slotIndex[AddrID(s.AddrID)]; ok {
			slots[slot] = s.Value
		}
	}
	if err := writeRow(groupTime); err != nil {
		defaultMetrics.reader_queries_total.fail_other(m.Kind.Name()).Inc()
		return err
	}

	if err := bw.Flush(); err != nil {
		defaultMetrics.reader_queries_total.fail_other(m.Kind.Name()).Inc()
		return err
	}
	defaultMetrics.reader_queries_total.success(m.Kind.Name()).Inc()
	return nil
}
