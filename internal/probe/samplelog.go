package probe

import (
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// SampleLog is a durable, append-only, mmap-readable sequence of Sample
// records. The Dispatcher is the sole writer of a given log; Readers take
// the read lock only long enough to obtain a mapping.
type SampleLog struct {
	mu   sync.RWMutex
	path string
	file *os.File
}

// OpenSampleLog opens (creating if necessary) the log file at path for
// read+append.
func OpenSampleLog(path string) (*SampleLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, dataFileIO(OpOpen, path, err)
	}
	return &SampleLog{path: path, file: f}, nil
}

// Append writes samples as a contiguous byte sequence. Partial writes are
// retried until complete. The write is ordered with respect to earlier
// appends to the same log (single-writer lock).
func (l *SampleLog) Append(samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	buf := make([]byte, len(samples)*SampleSize)
	for i, s := range samples {
		EncodeSample(buf[i*SampleSize:(i+1)*SampleSize], s)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for len(buf) > 0 {
		n, err := l.file.Write(buf)
		if err != nil {
			return dataFileIO(OpWrite, l.path, err)
		}
		buf = buf[n:]
	}
	return nil
}

// MappedSamples is a read-only view of a SampleLog's contents at the time
// Map was called. Concurrent appends may extend the underlying file beyond
// the mapping's end, but the mapped bytes themselves are never mutated.
type MappedSamples struct {
	m mmap.MMap
	n int
}

// Len returns the number of complete Sample records in the mapping.
func (m *MappedSamples) Len() int { return m.n }

// At decodes the i'th Sample in the mapping.
func (m *MappedSamples) At(i int) Sample {
	return DecodeSample(m.m[i*SampleSize : (i+1)*SampleSize])
}

// Close unmaps the view. It is safe (a no-op) to skip calling Close on
// short-lived request-scoped mappings only if the process is about to exit;
// callers should otherwise always Close.
func (m *MappedSamples) Close() error {
	if m.m == nil {
		return nil
	}
	err := m.m.Unmap()
	m.m = nil
	return err
}

// Map returns a read-only view of the entire file as a sequence of Samples.
// It fails with a parse FileError if the file length is not a multiple of
// SampleSize.
func (l *SampleLog) Map() (*MappedSamples, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fi, err := l.file.Stat()
	if err != nil {
		return nil, dataFileIO(OpMetadata, l.path, err)
	}

	size := fi.Size()
	if size%SampleSize != 0 {
		return nil, dataFileIO(OpParse, l.path, errSampleLogMisaligned)
	}
	if size == 0 {
		return &MappedSamples{n: 0}, nil
	}

	m, err := mmap.Map(l.file, mmap.RDONLY, 0)
	if err != nil {
		return nil, dataFileIO(OpRead, l.path, err)
	}
	return &MappedSamples{m: m, n: int(size / SampleSize)}, nil
}

func (l *SampleLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

var errSampleLogMisaligned = sampleLogMisalignedError{}

type sampleLogMisalignedError struct{}

func (sampleLogMisalignedError) Error() string {
	return "sample log length is not a multiple of the sample size"
}
