package probe

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeArchival struct {
	inserted []TimePackage
	err      error
}

func (f *fakeArchival) InsertPackage(pkg TimePackage) error {
	f.inserted = append(f.inserted, pkg)
	return f.err
}

func TestDispatcherAppendsAndBroadcasts(t *testing.T) {
	m := newTestManager(t)
	b := NewBroadcaster()
	var sent []byte
	b.Update(func(frame []byte) error {
		sent = frame
		return nil
	})

	d := NewDispatcher([]*Manager{m}, b, zerolog.Nop())

	addr := m.Options().Addrs[0]
	pkg := TimePackage{
		Kind:  TCPPing,
		Nonce: m.Nonce(),
		TimeS: 42,
		Entries: []Entry{
			{AddrID: addr, Value: 12.5, SD: float32(0)},
		},
	}
	d.handle(pkg)

	mapped, err := m.RawLog().Map()
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	defer mapped.Close()
	if mapped.Len() != 1 {
		t.Fatalf("sample log has %d entries, want 1", mapped.Len())
	}
	if mapped.At(0).TimeS != 42 {
		t.Errorf("appended sample time = %d, want 42", mapped.At(0).TimeS)
	}

	if len(sent) == 0 {
		t.Error("dispatcher did not broadcast a frame")
	}
}

func TestDispatcherDiscardsStaleNonce(t *testing.T) {
	m := newTestManager(t)
	b := NewBroadcaster()
	d := NewDispatcher([]*Manager{m}, b, zerolog.Nop())

	pkg := TimePackage{
		Kind:  TCPPing,
		Nonce: m.Nonce() + 1,
		TimeS: 1,
		Entries: []Entry{
			{AddrID: m.Options().Addrs[0], Value: 1},
		},
	}
	d.handle(pkg)

	mapped, err := m.RawLog().Map()
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	defer mapped.Close()
	if mapped.Len() != 0 {
		t.Errorf("sample log has %d entries, want 0 (stale-nonce package should be discarded)", mapped.Len())
	}
}

func TestDispatcherArchivalFailureIsNonFatal(t *testing.T) {
	m := newTestManager(t)
	b := NewBroadcaster()
	archival := &fakeArchival{err: errors.New("disk full")}
	d := NewDispatcher([]*Manager{m}, b, zerolog.Nop())
	d.Archival = archival

	pkg := TimePackage{
		Kind:  TCPPing,
		Nonce: m.Nonce(),
		TimeS: 7,
		Entries: []Entry{
			{AddrID: m.Options().Addrs[0], Value: 3},
		},
	}
	d.handle(pkg)

	if len(archival.inserted) != 1 {
		t.Fatalf("archival sink got %d packages, want 1", len(archival.inserted))
	}

	mapped, err := m.RawLog().Map()
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	defer mapped.Close()
	if mapped.Len() != 1 {
		t.Errorf("raw log entries = %d, want 1 even though archival sink failed", mapped.Len())
	}
}

func TestDispatcherUnknownKindIsIgnored(t *testing.T) {
	m := newTestManager(t)
	b := NewBroadcaster()
	d := NewDispatcher([]*Manager{m}, b, zerolog.Nop())

	unknown := Kind{id: 99, name: "unknown"}
	pkg := TimePackage{Kind: unknown, Nonce: 0, TimeS: 1}
	d.handle(pkg)

	mapped, err := m.RawLog().Map()
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	defer mapped.Close()
	if mapped.Len() != 0 {
		t.Errorf("sample log entries = %d, want 0", mapped.Len())
	}
}
