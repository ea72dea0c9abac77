// Package probelog configures the process-wide zerolog logger from a
// config.Config, following the teacher's stdout/file output and
// SIGHUP-reopenable log file pattern.
package probelog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jordanbertasso/stabping-go/internal/config"
)

// levelWriter wraps an io.Writer (or zerolog.LevelWriter) with its own
// minimum level and lets the underlying writer be swapped atomically, used
// for the reopenable log file.
type levelWriter struct {
	w io.Writer
	l zerolog.Level
	m sync.Mutex
}

var _ zerolog.LevelWriter = (*levelWriter)(nil)

func newLevelWriter(w io.Writer, l zerolog.Level) *levelWriter {
	return &levelWriter{w: w, l: l}
}

func (wl *levelWriter) Write(p []byte) (int, error) {
	wl.m.Lock()
	defer wl.m.Unlock()
	if wl.w != nil {
		return wl.w.Write(p)
	}
	return len(p), nil
}

func (wl *levelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l >= wl.l {
		wl.m.Lock()
		defer wl.m.Unlock()
		if wl.w != nil {
			if lw, ok := wl.w.(zerolog.LevelWriter); ok {
				return lw.WriteLevel(l, p)
			}
			return wl.w.Write(p)
		}
	}
	return len(p), nil
}

func (wl *levelWriter) swap(fn func(io.Writer) io.Writer) {
	wl.m.Lock()
	defer wl.m.Unlock()
	wl.w = fn(wl.w)
}

// Configure builds the process logger from c. The returned reopen func (nil
// if c has no log file configured) should be called on SIGHUP to close and
// reopen the log file, e.g. after log rotation.
func Configure(c *config.Config) (logger zerolog.Logger, reopen func(), err error) {
	var outputs []io.Writer
	if c.LogStdout {
		if c.LogStdoutPretty {
			outputs = append(outputs, newLevelWriter(zerolog.ConsoleWriter{Out: os.Stdout}, c.LogStdoutLevel))
		} else {
			outputs = append(outputs, newLevelWriter(os.Stdout, c.LogStdoutLevel))
		}
	}

	if fn := c.LogFile; fn != "" {
		x := newLevelWriter(nil, c.LogFileLevel)
		if fn, err = filepath.Abs(fn); err != nil {
			err = fmt.Errorf("resolve log file: %w", err)
			return
		}
		reopen = func() {
			x.swap(func(old io.Writer) io.Writer {
				if o, ok := old.(io.Closer); ok {
					o.Close()
				}
				f, ferr := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
				if ferr != nil {
					fmt.Fprintf(os.Stderr, "error: failed to open log file: %v\n", ferr)
					return nil
				}
				if c.LogFileChmod != 0 {
					if cerr := f.Chmod(c.LogFileChmod); cerr != nil {
						fmt.Fprintf(os.Stderr, "error: chmod log file: %v\n", cerr)
					}
				}
				return f
			})
		}
		outputs = append(outputs, x)
		reopen()
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(outputs...)).
		Level(c.LogLevel).
		With().
		Timestamp().
		Logger()
	return
}
