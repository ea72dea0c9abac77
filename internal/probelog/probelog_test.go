package probelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jordanbertasso/stabping-go/internal/config"
)

func TestConfigureWritesToLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stabping.log")

	c := &config.Config{
		LogStdout:    false,
		LogLevel:     zerolog.InfoLevel,
		LogFile:      path,
		LogFileLevel: zerolog.InfoLevel,
	}

	logger, reopen, err := Configure(c)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if reopen == nil {
		t.Fatal("Configure with LogFile set should return a non-nil reopen func")
	}

	logger.Info().Msg("hello")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "hello") {
		t.Errorf("log file contents = %q, want it to contain %q", b, "hello")
	}
}

func TestConfigureNoLogFileReturnsNilReopen(t *testing.T) {
	c := &config.Config{LogStdout: false}
	_, reopen, err := Configure(c)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if reopen != nil {
		t.Error("Configure with no LogFile should return a nil reopen func")
	}
}

func TestConfigureReopenRotatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stabping.log")

	c := &config.Config{LogFile: path, LogFileLevel: zerolog.InfoLevel}
	logger, reopen, err := Configure(c)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	logger.Info().Msg("first")
	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	reopen()
	logger.Info().Msg("second")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rotated log file: %v", err)
	}
	if !strings.Contains(string(b), "second") || strings.Contains(string(b), "first") {
		t.Errorf("rotated log file contents = %q, want only the post-reopen message", b)
	}
}
