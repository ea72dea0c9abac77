package probe

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// AddrIndex gives each distinct address a stable small-integer id so that
// on-disk samples need not store strings. It is backed by a newline-
// delimited text file: line number equals AddrId.
type AddrIndex struct {
	mu   sync.RWMutex
	path string
	file *os.File
	list []string
	rev  map[string]AddrID
}

// LoadAddrIndex opens (creating if necessary) the index file at path and
// reads back any existing entries.
func LoadAddrIndex(path string) (*AddrIndex, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, indexFileIO(OpOpen, path, err)
	}

	idx := &AddrIndex{
		path: path,
		file: f,
		rev:  make(map[string]AddrID),
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, indexFileIO(OpMetadata, path, err)
	}
	if fi.Size() > 0 {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			addr := sc.Text()
			idx.rev[addr] = AddrID(len(idx.list))
			idx.list = append(idx.list, addr)
		}
		if err := sc.Err(); err != nil {
			f.Close()
			return nil, indexFileIO(OpRead, path, err)
		}
	}
	return idx, nil
}

// Add returns the existing id for addr if known; otherwise it appends addr
// to the index (new id = previous length) and appends "addr\n" to the
// backing file.
func (idx *AddrIndex) Add(addr string) (AddrID, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if id, ok := idx.rev[addr]; ok {
		return id, nil
	}

	id := AddrID(len(idx.list))
	if _, err := fmt.Fprintf(idx.file, "%s\n", addr); err != nil {
		return 0, indexFileIO(OpWrite, idx.path, err)
	}
	idx.list = append(idx.list, addr)
	idx.rev[addr] = id
	return id, nil
}

// IDOf is a pure lookup of addr's id.
func (idx *AddrIndex) IDOf(addr string) (AddrID, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.rev[addr]
	return id, ok
}

// AddrOf is a pure lookup of id's address string.
func (idx *AddrIndex) AddrOf(id AddrID) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(idx.list) {
		return "", false
	}
	return idx.list[id], true
}

// Len returns the number of distinct addresses known to the index.
func (idx *AddrIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.list)
}

// Has reports whether id is a valid, currently-assigned AddrId.
func (idx *AddrIndex) Has(id AddrID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return int(id) < len(idx.list)
}

func (idx *AddrIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.file.Close()
}
