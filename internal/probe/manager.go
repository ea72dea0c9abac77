package probe

import (
	"fmt"
	"path/filepath"
)

// Manager is the ownership root for one probe kind: it owns the AddrIndex,
// the raw SampleLog, and the Options document, each independently
// synchronized so that hot read paths never block one another. It is
// shared (multi-reader) by the Worker, the Dispatcher, and every in-flight
// Reader/HTTP handler for its kind.
type Manager struct {
	Kind Kind

	addrIndex *AddrIndex
	options   *OptionsStore
	rawLog    *SampleLog

	dataDir string
}

// NewManager creates (or reopens) the on-disk triad for kind rooted at
// dataDir: "<dataDir>/<kind>.index.txt", "<dataDir>/<kind>.options.json",
// and "<dataDir>/<kind>.data.dat".
func NewManager(dataDir string, kind Kind) (*Manager, error) {
	idx, err := LoadAddrIndex(filepath.Join(dataDir, kind.Name()+".index.txt"))
	if err != nil {
		return nil, fmt.Errorf("manager %s: %w", kind.Name(), err)
	}

	opts, err := LoadOptionsStore(filepath.Join(dataDir, kind.Name()+".options.json"), idx, kind)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("manager %s: %w", kind.Name(), err)
	}

	raw, err := OpenSampleLog(filepath.Join(dataDir, kind.Name()+"."+FeedRaw.String()+".dat"))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("manager %s: %w", kind.Name(), err)
	}

	return &Manager{
		Kind:      kind,
		addrIndex: idx,
		options:   opts,
		rawLog:    raw,
		dataDir:   dataDir,
	}, nil
}

// FeedPath returns the reserved on-disk path for feed, whether or not
// anything currently writes to it (see SPEC_FULL.md §C.1).
func (m *Manager) FeedPath(feed Feed) string {
	return filepath.Join(m.dataDir, m.Kind.Name()+"."+feed.String()+".dat")
}

// AddrIndex returns the manager's address index.
func (m *Manager) AddrIndex() *AddrIndex { return m.addrIndex }

// Options returns a snapshot of the current options.
func (m *Manager) Options() Options { return m.options.Read() }

// Nonce returns the current options nonce.
func (m *Manager) Nonce() int32 { return m.options.Nonce() }

// UpdateOptions validates and applies next, returning the new nonce.
func (m *Manager) UpdateOptions(next Options) (int32, error) {
	return m.options.Update(next, m.addrIndex)
}

// RawLog returns the manager's Raw-feed sample log.
func (m *Manager) RawLog() *SampleLog { return m.rawLog }

// AppendPackage converts pkg into a contiguous slice of Samples (resolving
// each entry's address to an AddrId it already carries) and appends them to
// the Raw sample log, provided pkg's nonce still matches the current
// options nonce. If the nonce is stale the package is silently discarded
// (ok=false) per spec §4.7/§4.3 — this is the expected outcome of a racing
// options update, not an error.
func (m *Manager) AppendPackage(pkg TimePackage) (ok bool, err error) {
	if pkg.Nonce != m.Nonce() {
		return false, nil
	}

	samples := make([]Sample, len(pkg.Entries))
	for i, e := range pkg.Entries {
		samples[i] = Sample{
			TimeS:  pkg.TimeS,
			AddrID: uint32(e.AddrID),
			Value:  e.Value,
			SD:     e.SD,
		}
	}
	if err := m.rawLog.Append(samples); err != nil {
		return false, err
	}
	return true, nil
}

// CurrentIndices snapshots (nonce, the AddrIds in Options.Addrs order)
// atomically under the options read lock, for use by the Reader.
func (m *Manager) CurrentIndices() (nonce int32, ordered []AddrID) {
	o := m.Options()
	return o.Nonce, o.Addrs
}

func (m *Manager) Close() error {
	m.addrIndex.Close()
	return m.rawLog.Close()
}
