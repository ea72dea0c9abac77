package probe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddrIndexBijection(t *testing.T) {
	dir := t.TempDir()
	idx, err := LoadAddrIndex(filepath.Join(dir, "tcpping.index.txt"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	addrs := []string{"a.example:80", "b.example:443", "c.example:22", "a.example:80"}
	ids := make([]AddrID, len(addrs))
	for i, a := range addrs {
		id, err := idx.Add(a)
		if err != nil {
			t.Fatalf("add %q: %v", a, err)
		}
		ids[i] = id
	}

	if ids[0] != ids[3] {
		t.Errorf("re-adding %q should return the same id, got %d and %d", addrs[0], ids[0], ids[3])
	}
	if idx.Len() != 3 {
		t.Errorf("expected 3 distinct addrs, got %d", idx.Len())
	}

	for i := 0; i < idx.Len(); i++ {
		addr, ok := idx.AddrOf(AddrID(i))
		if !ok {
			t.Fatalf("AddrOf(%d) missing", i)
		}
		id, ok := idx.IDOf(addr)
		if !ok || id != AddrID(i) {
			t.Errorf("IDOf(AddrOf(%d)) = (%d, %v), want (%d, true)", i, id, ok, i)
		}
	}
}

func TestAddrIndexPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tcpping.index.txt")

	idx, err := LoadAddrIndex(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, a := range []string{"one:1", "two:2", "three:3"} {
		if _, err := idx.Add(a); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	idx.Close()

	idx2, err := LoadAddrIndex(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer idx2.Close()

	if idx2.Len() != 3 {
		t.Fatalf("reloaded index has %d entries, want 3", idx2.Len())
	}
	for i, want := range []string{"one:1", "two:2", "three:3"} {
		got, ok := idx2.AddrOf(AddrID(i))
		if !ok || got != want {
			t.Errorf("AddrOf(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestAddrIndexFileGrowsOneLinePerAdd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tcpping.index.txt")
	idx, err := LoadAddrIndex(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer idx.Close()

	if _, err := idx.Add("first:1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "first:1\n" {
		t.Errorf("file contents = %q, want %q", b, "first:1\n")
	}
}
