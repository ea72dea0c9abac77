package probe

import (
	"encoding/json"
	"os"
	"sync"
)

// Options is the single mutable configuration for one probe kind. Nonce is
// the concurrency-safety token: every mutating update must present the
// current nonce, and every in-flight measurement batch and range query is
// tagged with the nonce it was computed under.
type Options struct {
	Nonce      int32    `json:"nonce"`
	Addrs      []AddrID `json:"addrs"`
	IntervalMS uint32   `json:"interval"`
	AvgAcross  uint32   `json:"avg_across"`
	PauseMS    uint32   `json:"pause"`
}

func (o Options) clone() Options {
	c := o
	c.Addrs = append([]AddrID(nil), o.Addrs...)
	return c
}

// OptionsStore owns the single Options document for a probe kind, guarding
// it with a multi-reader/single-writer lock, and the path mutex used while
// writing the backing file (spec §5).
type OptionsStore struct {
	mu      sync.RWMutex
	current Options

	pathMu sync.Mutex
	path   string
}

// LoadOptionsStore reads path if it exists and is non-empty; otherwise it
// creates addr (via idx) and writes out kind's bootstrap defaults.
func LoadOptionsStore(path string, idx *AddrIndex, kind Kind) (*OptionsStore, error) {
	s := &OptionsStore{path: path}

	fi, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, optionsFileIO(OpMetadata, path, err)
	}

	if err == nil && fi.Size() > 0 {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, optionsFileIO(OpRead, path, err)
		}
		var o Options
		if err := json.Unmarshal(b, &o); err != nil {
			return nil, optionsFileIO(OpParse, path, err)
		}
		s.current = o
		return s, nil
	}

	addr, interval := kind.DefaultOptionsBootstrap()
	addrID, err := idx.Add(addr)
	if err != nil {
		return nil, err
	}
	s.current = Options{
		Nonce:      0,
		Addrs:      []AddrID{addrID},
		IntervalMS: uint32(interval.Milliseconds()),
		AvgAcross:  3,
		PauseMS:    100,
	}
	if err := s.writeLocked(s.current); err != nil {
		return nil, err
	}
	return s, nil
}

// Read returns a snapshot of the current Options.
func (s *OptionsStore) Read() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Nonce returns just the current nonce, without copying Addrs.
func (s *OptionsStore) Nonce() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Nonce
}

// Update attempts to replace the current Options with next, whose Nonce
// must match the current value. On success the nonce is incremented
// (wrapping to 0 on overflow), the new document is written atomically
// (truncate+write+flush), and the new nonce is returned. idx is used to
// validate that every address in next.Addrs exists.
func (s *OptionsStore) Update(next Options, idx *AddrIndex) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next.Nonce != s.current.Nonce {
		return 0, ErrNonceConflict
	}
	for _, id := range next.Addrs {
		if !idx.Has(id) {
			return 0, ErrInvalidAddrArgument
		}
	}

	var newNonce int32
	if s.current.Nonce == 1<<31-1 {
		newNonce = 0
	} else {
		newNonce = s.current.Nonce + 1
	}
	next.Nonce = newNonce

	if err := s.writeLocked(next); err != nil {
		return 0, err
	}
	s.current = next
	return newNonce, nil
}

func (s *OptionsStore) writeLocked(o Options) error {
	s.pathMu.Lock()
	defer s.pathMu.Unlock()

	b, err := json.Marshal(o)
	if err != nil {
		return optionsFileIO(OpWrite, s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return optionsFileIO(OpOpen, s.path, err)
	}
	defer f.Close()

	if err := f.Truncate(0); err != nil {
		return optionsFileIO(OpWrite, s.path, err)
	}
	if _, err := f.WriteAt(b, 0); err != nil {
		return optionsFileIO(OpWrite, s.path, err)
	}
	if err := f.Sync(); err != nil {
		return optionsFileIO(OpWrite, s.path, err)
	}
	return nil
}
